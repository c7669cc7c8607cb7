package registry

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/netsnitch/netsnitch/internal/conn"
)

func TestPutAcquireRelease(t *testing.T) {
	r := New()
	c := conn.New(1, "/tmp/logs/0/1")

	h, evicted := r.Put(5, c)
	assert.Assert(t, evicted == nil)
	h.Release()

	assert.Assert(t, r.Present(5))
	assert.Equal(t, r.Size(), 1)

	h2, ok := r.Acquire(5)
	assert.Assert(t, ok)
	assert.Equal(t, h2.Conn().ID, uint64(1))
	h2.Release()
}

func TestPutEvictsStaleOccupant(t *testing.T) {
	r := New()
	first := conn.New(1, "/tmp/logs/0/1")
	h, _ := r.Put(5, first)
	h.Release()

	second := conn.New(2, "/tmp/logs/0/2")
	h2, evicted := r.Put(5, second)
	defer h2.Release()

	assert.Assert(t, evicted != nil)
	assert.Equal(t, evicted.ID, uint64(1))
	assert.Equal(t, h2.Conn().ID, uint64(2))
}

func TestTakeRemovesSlot(t *testing.T) {
	r := New()
	c := conn.New(1, "/tmp/logs/0/1")
	h, _ := r.Put(3, c)
	h.Release()

	taken, ok := r.Take(3)
	assert.Assert(t, ok)
	assert.Equal(t, taken.ID, uint64(1))
	assert.Assert(t, !r.Present(3))

	_, ok = r.Take(3)
	assert.Assert(t, !ok)
}

func TestAcquireUnoccupiedFails(t *testing.T) {
	r := New()
	_, ok := r.Acquire(42)
	assert.Assert(t, !ok)
}

func TestResetDropsWithoutDestructor(t *testing.T) {
	r := New()
	h, _ := r.Put(1, conn.New(1, "/tmp/logs/0/1"))
	h.Release()
	h2, _ := r.Put(2, conn.New(2, "/tmp/logs/0/2"))
	h2.Release()

	r.Reset()

	assert.Equal(t, r.Size(), 0)
	assert.Assert(t, !r.Present(1))
	assert.Assert(t, !r.Present(2))
}

func TestFreeInvokesDestroyForEveryOccupant(t *testing.T) {
	r := New()
	h1, _ := r.Put(1, conn.New(1, "/tmp/logs/0/1"))
	h1.Release()
	h2, _ := r.Put(2, conn.New(2, "/tmp/logs/0/2"))
	h2.Release()

	var destroyed []uint64
	r.Free(func(c *conn.Connection) {
		destroyed = append(destroyed, c.ID)
	})

	assert.Equal(t, len(destroyed), 2)
	assert.Equal(t, r.Size(), 0)
}
