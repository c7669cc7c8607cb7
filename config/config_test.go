package config

import (
	"os"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envOptB, envOptC, envOptD, envOptE, envOptF, envOptI, envOptL, envOptP, envOptU, envOptV, envCaptureDev} {
		os.Unsetenv(k)
	}
}

func TestFromEnvRequiresLogsRoot(t *testing.T) {
	clearEnv(t)
	_, err := FromEnv()
	assert.ErrorContains(t, err, envOptD)
}

func TestFromEnvDefaultsAndOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	os.Setenv(envOptD, dir)
	os.Setenv(envOptE, "500")
	os.Setenv(envCaptureDev, "eth0")

	cfg, err := FromEnv()
	assert.NilError(t, err)
	assert.Equal(t, cfg.LogsRoot, dir)
	assert.Equal(t, cfg.BytesThreshold, uint64(4096))
	assert.Equal(t, cfg.JSONFlushEvery, uint64(500))
	assert.Equal(t, cfg.FileLogLevel, LevelWarn)
	assert.Equal(t, cfg.CaptureDevice, "eth0")
}

func TestFromEnvTCPInfoThresholds(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	os.Setenv(envOptD, dir)
	os.Setenv(envOptB, "2000")
	os.Setenv(envOptU, "50000")

	cfg, err := FromEnv()
	assert.NilError(t, err)
	assert.Equal(t, cfg.BytesThreshold, uint64(2000))
	assert.Equal(t, cfg.TCPInfoTimeThreshold, 50*time.Millisecond)
}

func TestFromEnvRejectsNonDirectory(t *testing.T) {
	clearEnv(t)
	f, err := os.CreateTemp(t.TempDir(), "notadir")
	assert.NilError(t, err)
	defer f.Close()

	os.Setenv(envOptD, f.Name())
	_, err = FromEnv()
	assert.Assert(t, err != nil)
}
