package logging

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/netsnitch/netsnitch/config"
)

func TestNewWritesToFileAtConfiguredLevel(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "log.json")

	cfg := &config.Config{
		FileLogLevel:   config.LevelInfo,
		StderrLogLevel: config.LevelError,
	}

	logger, err := New(cfg, logFile)
	assert.NilError(t, err)

	logger.Info("hello")
	logger.Debug("should be dropped")

	data, err := os.ReadFile(logFile)
	assert.NilError(t, err)
	assert.Assert(t, len(data) > 0)
}

func TestNewWithoutFilePath(t *testing.T) {
	cfg := &config.Config{FileLogLevel: config.LevelWarn, StderrLogLevel: config.LevelWarn}
	logger, err := New(cfg, "")
	assert.NilError(t, err)
	logger.Warn("stderr only")
}
