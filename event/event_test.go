package event

import (
	"encoding/json"
	"testing"

	"gotest.tools/v3/assert"
)

func TestNewSuccessTable(t *testing.T) {
	cases := []struct {
		kind        Kind
		returnValue int
		success     bool
	}{
		{Socket, 4, true},
		{Socket, 0, false},
		{Close, 0, true},
		{Close, -1, false},
		{Connect, -1, false},
		{Connect, 0, true},
		{Read, 128, true},
		{Read, -1, false},
	}
	for _, c := range cases {
		ev := New(c.kind, c.returnValue, "boom", 0)
		assert.Equal(t, ev.Success, c.success)
		if c.success {
			assert.Assert(t, ev.ErrorStr == nil)
		} else {
			assert.Assert(t, ev.ErrorStr != nil)
			assert.Equal(t, *ev.ErrorStr, "boom")
		}
	}
}

func TestNewSuccessNoErrorString(t *testing.T) {
	ev := New(Read, -1, "", 3)
	assert.Assert(t, !ev.Success)
	assert.Assert(t, ev.ErrorStr == nil)
}

func TestEventMarshalJSONInlinesHeaderAndNestsPayload(t *testing.T) {
	ev := New(Read, 12, "", 7)
	ev.Payload = ReadPayload{RequestedBytes: 16, ReadBytes: 12}

	raw, err := json.Marshal(ev)
	assert.NilError(t, err)

	var out map[string]any
	assert.NilError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, out["kind"], "read")
	assert.Equal(t, out["id"], float64(7))
	payload, ok := out["payload"].(map[string]any)
	assert.Assert(t, ok)
	assert.Equal(t, payload["readBytes"], float64(12))
}

func TestKindStringUnknown(t *testing.T) {
	var k Kind = 200
	assert.Equal(t, k.String(), "unknown")
}
