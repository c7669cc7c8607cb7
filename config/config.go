// Package config resolves the engine's configuration once from the process
// environment, grounded on the original tool's OPT_* variables and the
// teacher's package-level, no-CLI-framework style (this domain's config is
// read directly from the environment by a traced process, not parsed from
// command-line flags, so viper/cobra have no host here -- see DESIGN.md).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	envOptB      = "OPT_B" // bytes threshold for tcp_info sampling
	envOptC      = "OPT_C" // reserved passthrough
	envOptD      = "OPT_D" // logs root directory, must already exist
	envOptE      = "OPT_E" // json_flush_every_events
	envOptF      = "OPT_F" // stderr log level
	envOptI      = "OPT_I" // optional instance/app identifier
	envOptL      = "OPT_L" // file log level
	envOptP      = "OPT_P" // reserved passthrough
	envOptU      = "OPT_U" // microseconds threshold for tcp_info sampling
	envOptV      = "OPT_V" // reserved passthrough
	envCaptureDev = "NETSPY_DEV"
)

// Level mirrors the original tool's integer log levels, used for both OPT_F
// and OPT_L.
type Level int64

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// Config is the engine's fully resolved, immutable configuration. It is
// built once by FromEnv and never mutated afterward.
type Config struct {
	BytesThreshold       uint64
	OptC                 int64
	LogsRoot             string
	JSONFlushEvery       uint64
	FileLogLevel         Level
	InstanceID           string
	StderrLogLevel       Level
	TCPInfoTimeThreshold time.Duration
	OptP                 int64
	OptV                 int64
	CaptureDevice        string
}

// FromEnv resolves a Config from the process environment. LogsRoot (OPT_D)
// must name a directory that already exists; every other variable has a
// default matching the original tool's.
func FromEnv() (*Config, error) {
	logsRoot := os.Getenv(envOptD)
	if logsRoot == "" {
		return nil, fmt.Errorf("config: %s not set", envOptD)
	}
	if info, err := os.Stat(logsRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("config: %s %q is not a directory: %w", envOptD, logsRoot, err)
	}

	return &Config{
		BytesThreshold:       uint64(getIntOrDefault(envOptB, 4096)),
		OptC:                 getIntOrDefault(envOptC, 0),
		LogsRoot:             logsRoot,
		JSONFlushEvery:       uint64(getIntOrDefault(envOptE, 1000)),
		FileLogLevel:         Level(getIntOrDefault(envOptL, int64(LevelWarn))),
		InstanceID:           os.Getenv(envOptI),
		StderrLogLevel:       Level(getIntOrDefault(envOptF, int64(LevelWarn))),
		TCPInfoTimeThreshold: time.Duration(getIntOrDefault(envOptU, 0)) * time.Microsecond,
		OptP:                 getIntOrDefault(envOptP, 0),
		OptV:                 getIntOrDefault(envOptV, 0),
		CaptureDevice:        os.Getenv(envCaptureDev),
	}, nil
}

func getIntOrDefault(key string, def int64) int64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
