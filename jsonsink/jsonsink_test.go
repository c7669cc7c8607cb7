package jsonsink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/netsnitch/netsnitch/event"
)

func newTestLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return logrus.NewEntry(l)
}

func TestSinkProducesValidJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	sink, err := Open(path, newTestLogger())
	assert.NilError(t, err)

	ev1 := event.New(event.Socket, 4, "", 0)
	ev2 := event.New(event.Close, 0, "", 1)
	sink.Append([]*event.Event{ev1})
	sink.Append([]*event.Event{ev2})

	assert.NilError(t, sink.Close())

	data, err := os.ReadFile(path)
	assert.NilError(t, err)

	var decoded []map[string]any
	assert.NilError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, len(decoded), 2)
	assert.Equal(t, decoded[0]["kind"], "socket")
	assert.Equal(t, decoded[1]["kind"], "close")
}

func TestSinkWithNoEventsIsValidEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	sink, err := Open(path, newTestLogger())
	assert.NilError(t, err)
	assert.NilError(t, sink.Close())

	data, err := os.ReadFile(path)
	assert.NilError(t, err)

	var decoded []any
	assert.NilError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, len(decoded), 0)
}

func TestSinkCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idempotent.json")
	sink, err := Open(path, newTestLogger())
	assert.NilError(t, err)
	assert.NilError(t, sink.Close())
	assert.NilError(t, sink.Close())
}

func TestAppendAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "afterclose.json")
	sink, err := Open(path, newTestLogger())
	assert.NilError(t, err)
	assert.NilError(t, sink.Close())

	sink.Append([]*event.Event{event.New(event.Read, 1, "", 0)})

	data, err := os.ReadFile(path)
	assert.NilError(t, err)
	var decoded []any
	assert.NilError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, len(decoded), 0)
}
