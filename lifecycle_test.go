package netsnitch

import (
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestCreateLogsDirNumbersSequentially(t *testing.T) {
	root := t.TempDir()

	first, err := createLogsDir(root)
	assert.NilError(t, err)
	assert.Equal(t, first, filepath.Join(root, "0"))

	second, err := createLogsDir(root)
	assert.NilError(t, err)
	assert.Equal(t, second, filepath.Join(root, "1"))
}

func TestInitIsIdempotent(t *testing.T) {
	root := t.TempDir()
	t.Setenv("OPT_D", root)

	e := newEngine()
	assert.NilError(t, e.Init())
	logsDir := e.logsDir

	assert.NilError(t, e.Init())
	assert.Equal(t, e.logsDir, logsDir)
}

func TestResetAfterForkClearsState(t *testing.T) {
	root := t.TempDir()
	t.Setenv("OPT_D", root)

	e := newEngine()
	assert.NilError(t, e.Init())
	assert.Equal(t, e.State(), Initialized)

	e.ResetAfterFork()
	assert.Equal(t, e.State(), Uninitialized)
	assert.Equal(t, e.registry.Size(), 0)
}

func TestResetAfterForkNoopWhenUninitialized(t *testing.T) {
	e := newEngine()
	e.ResetAfterFork() // must not panic
	assert.Equal(t, e.State(), Uninitialized)
}

