package netsnitch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/netsnitch/netsnitch/event"
)

func initTestEngine(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("OPT_D", root)
	t.Setenv("OPT_E", "2")

	defaultEngine = newEngine()
	assert.NilError(t, defaultEngine.Init())
	return root
}

func TestRecordSocketThenCloseWritesEventsJSON(t *testing.T) {
	root := initTestEngine(t)

	RecordSocket(100, "AF_INET", "SOCK_STREAM", 0, 100, "")
	RecordConnect(100, event.Address{IP: "127.0.0.1", Port: 443}, 0, "")
	RecordClose(100, 0, "")

	handle, ok := defaultEngine.registry.Acquire(100)
	assert.Assert(t, !ok)
	_ = handle

	_, err := os.Stat(filepath.Join(root, "0", "0", eventsFileName))
	assert.NilError(t, err)
}

func TestRecordSocketEvictsStaleOccupant(t *testing.T) {
	initTestEngine(t)

	RecordSocket(7, "AF_INET", "SOCK_STREAM", 0, 7, "")
	h, ok := defaultEngine.registry.Acquire(7)
	assert.Assert(t, ok)
	firstID := h.Conn().ID
	h.Release()

	// fd 7 reused before close() observed.
	RecordSocket(7, "AF_INET", "SOCK_STREAM", 0, 7, "")
	h2, ok := defaultEngine.registry.Acquire(7)
	assert.Assert(t, ok)
	defer h2.Release()
	assert.Assert(t, h2.Conn().ID != firstID)
}

func TestFlushWritesValidJSONArray(t *testing.T) {
	root := initTestEngine(t)

	RecordSocket(5, "AF_INET", "SOCK_STREAM", 0, 5, "")
	RecordConnect(5, event.Address{IP: "10.0.0.1", Port: 80}, 0, "")
	RecordWrite(5, 4, 4, "")
	RecordClose(5, 0, "")

	// The connection was id 0 under this fresh engine.
	eventsPath := filepath.Join(root, "0", "0", eventsFileName)
	data, err := os.ReadFile(eventsPath)
	assert.NilError(t, err)

	var decoded []map[string]any
	assert.NilError(t, json.Unmarshal(data, &decoded))
	assert.Assert(t, len(decoded) >= 3)
}
