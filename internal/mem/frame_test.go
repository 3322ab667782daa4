package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/bootcfg"
)

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	cfg := bootcfg.Default()
	cfg.RAM = []bootcfg.RAMRegion{{BaseFrame: 0, NumFrames: 64}}
	return NewAllocator(cfg)
}

func TestAllocateFreeRoundTrip(t *testing.T) {
	a := newTestAllocator(t)
	total, free, _ := a.Stats()
	require.Equal(t, 64, total)
	require.Equal(t, 64, free)

	f, err := a.AllocateFrames(4, 0)
	require.Zero(t, int(err))
	_, free2, _ := a.Stats()
	assert.Equal(t, 60, free2)

	a.FreeFrames(f, 4)
	_, free3, _ := a.Stats()
	assert.Equal(t, 64, free3)
}

func TestDoubleFreePanics(t *testing.T) {
	a := newTestAllocator(t)
	f, _ := a.AllocateFrames(1, 0)
	a.FreeFrames(f, 1)
	assert.Panics(t, func() { a.FreeFrames(f, 1) })
}

func TestOutOfMemory(t *testing.T) {
	a := newTestAllocator(t)
	_, err := a.AllocateFrames(100, 0)
	assert.Equal(t, int(-12), int(err)) // ENOMEM
}

func TestZeroFillGuarantee(t *testing.T) {
	a := newTestAllocator(t)
	f, _ := a.AllocateFrames(1, 0)
	buf := a.Bytes(f)
	buf[0] = 0xAA
	a.FreeFrames(f, 1)

	f2, _ := a.AllocateFrames(1, 0)
	buf2 := a.Bytes(f2)
	assert.Equal(t, byte(0), buf2[0], "refreshed frame must be zero-filled")
}

func TestRefcountDeferredFree(t *testing.T) {
	a := newTestAllocator(t)
	f, _ := a.AllocateFrames(1, 0)
	a.Refup(f) // now refcount == 2 (shared, e.g. CoW)
	assert.False(t, a.Refdown(f))
	assert.True(t, a.Refdown(f))
	assert.Panics(t, func() { a.Refdown(f) })
}
