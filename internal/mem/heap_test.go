package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/bootcfg"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	cfg := bootcfg.Default()
	cfg.RAM = []bootcfg.RAMRegion{{NumFrames: 32}}
	return NewHeap(NewAllocator(cfg))
}

func TestHeapSmallAllocAligned(t *testing.T) {
	h := newTestHeap(t)
	buf, err := h.Alloc(40, 16)
	require.Zero(t, int(err))
	assert.GreaterOrEqual(t, len(buf), 40)
	h.Free(buf)
}

func TestHeapLargeAllocSpansFrames(t *testing.T) {
	h := newTestHeap(t)
	buf, err := h.Alloc(PageSize*2+10, 8)
	require.Zero(t, int(err))
	assert.Equal(t, PageSize*2+10, len(buf))
	buf[0] = 1
	buf[len(buf)-1] = 2
	h.Free(buf)
}

func TestHeapFreeUnknownPanics(t *testing.T) {
	h := newTestHeap(t)
	assert.Panics(t, func() { h.Free(make([]byte, 8)) })
}

func TestHeapReusesFreedSlabChunk(t *testing.T) {
	h := newTestHeap(t)
	a, _ := h.Alloc(8, 1)
	h.Free(a)
	b, _ := h.Alloc(8, 1)
	assert.Equal(t, 1, h.CachedPages())
	h.Free(b)
}
