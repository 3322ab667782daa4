// Package mem implements the physical frame allocator (spec.md §4.1) and
// the kernel heap layered on top of it (spec.md §4.2). It is grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/mem/mem.go's Physmem_t: a refcounted,
// mutex-protected table of physical pages with a free list, reworked
// from the teacher's per-CPU cr3/pmap bookkeeping (bare-metal only) into
// a single contiguous byte arena a hosted simulation can actually back
// with real memory.
package mem

import (
	"sync"

	"github.com/veridian-os/kernel/internal/bootcfg"
	"github.com/veridian-os/kernel/internal/ktypes"
)

// PageShift is the base-2 exponent of the page size.
const PageShift = 12

// PageSize is the size of a single frame in bytes (4 KiB).
const PageSize = 1 << PageShift

// FrameNum indexes a physical page. Frame 0 is never issued to a caller
// (reserved as a sentinel the way null pointers are).
type FrameNum uint64

// slot is the bookkeeping record for one physical frame.
type slot struct {
	refcount int32
	free     bool
}

// Allocator is the physical frame allocator: it exclusively owns every
// unallocated frame (spec.md §3's ownership summary).
type Allocator struct {
	mu      sync.Mutex
	arena   []byte // backing bytes, len == len(slots)*PageSize
	slots   []slot
	cursor  int // next-fit search cursor
	freeLen int
}

// NewAllocator builds an allocator spanning the RAM regions a boot
// config describes. Frame 0 is reserved so FrameNum zero can serve as a
// "no frame" sentinel (spec.md §3: "physical_frames: ... or sentinel for
// unbacked").
func NewAllocator(cfg bootcfg.Config) *Allocator {
	total := cfg.TotalFrames()
	if total == 0 {
		total = 1
	}
	n := int(total) + 1
	a := &Allocator{
		arena: make([]byte, n*PageSize),
		slots: make([]slot, n),
	}
	a.slots[0].free = false // reserved sentinel, never allocated
	for i := 1; i < n; i++ {
		a.slots[i].free = true
	}
	a.freeLen = n - 1
	return a
}

// AllocateFrames returns the base of a physically contiguous n-frame
// region. numaHint is accepted for API fidelity with spec.md §4.1 but
// this single-arena allocator has no NUMA topology to honor.
func (a *Allocator) AllocateFrames(n int, numaHint int) (FrameNum, ktypes.Err_t) {
	if n <= 0 {
		return 0, ktypes.EINVAL
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	total := len(a.slots)
	start := a.findRun(n, total)
	if start < 0 {
		return 0, ktypes.ENOMEM
	}
	for i := start; i < start+n; i++ {
		a.slots[i].free = false
		a.slots[i].refcount = 1
	}
	a.freeLen -= n
	a.cursor = (start + n) % total
	base := FrameNum(start)
	a.zero(base, n)
	return base, 0
}

// findRun locates n consecutive free slots starting the search at the
// cursor (next-fit), wrapping once. Caller holds a.mu.
func (a *Allocator) findRun(n, total int) int {
	tryFrom := func(from int) int {
		run := 0
		for i := from; i < total; i++ {
			if a.slots[i].free {
				run++
				if run == n {
					return i - n + 1
				}
			} else {
				run = 0
			}
		}
		return -1
	}
	if start := tryFrom(a.cursor); start >= 0 {
		return start
	}
	return tryFrom(1)
}

// zero clears the backing bytes of n frames starting at base, the
// information-leak guard spec.md §4.1 requires before a frame is handed
// to a new owner. Caller holds a.mu.
func (a *Allocator) zero(base FrameNum, n int) {
	off := int(base) * PageSize
	length := n * PageSize
	clear(a.arena[off : off+length])
}

// FreeFrames returns n frames starting at base to the pool. Freeing an
// already-free or out-of-range frame is a kernel bug, per spec.md §4.1,
// and panics rather than returning an error — this is exactly the class
// of defect Err_t is not meant to paper over.
func (a *Allocator) FreeFrames(base FrameNum, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freeLocked(base, n)
}

func (a *Allocator) freeLocked(base FrameNum, n int) {
	if int(base) < 1 || int(base)+n > len(a.slots) {
		panic("mem: FreeFrames out of range")
	}
	for i := int(base); i < int(base)+n; i++ {
		if a.slots[i].free {
			panic("mem: double free of frame")
		}
		a.slots[i].free = true
		a.slots[i].refcount = 0
	}
	a.freeLen += n
	a.zero(base, n)
}

// Refup increments a frame's reference count, used when a CoW table
// entry (internal/vm) gains another sharer.
func (a *Allocator) Refup(f FrameNum) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.slots[f].free || a.slots[f].refcount <= 0 {
		panic("mem: Refup on unowned frame")
	}
	a.slots[f].refcount++
}

// Refdown decrements a frame's reference count and frees it once the
// count reaches zero, returning true when that happens.
func (a *Allocator) Refdown(f FrameNum) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.slots[f].free || a.slots[f].refcount <= 0 {
		panic("mem: Refdown on unowned frame")
	}
	a.slots[f].refcount--
	if a.slots[f].refcount == 0 {
		a.freeLocked(f, 1)
		return true
	}
	return false
}

// Refcnt returns a frame's current reference count.
func (a *Allocator) Refcnt(f FrameNum) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.slots[f].refcount)
}

// Bytes returns the backing slice for a frame, for callers (vm, IPC
// zero-copy) that need to read or write its contents directly.
func (a *Allocator) Bytes(f FrameNum) []byte {
	off := int(f) * PageSize
	return a.arena[off : off+PageSize : off+PageSize]
}

// BytesRange returns the backing slice spanning n physically contiguous
// frames starting at base, for callers that allocated a multi-frame
// region and need it as one contiguous buffer.
func (a *Allocator) BytesRange(base FrameNum, n int) []byte {
	off := int(base) * PageSize
	length := n * PageSize
	return a.arena[off : off+length : off+length]
}

// Stats reports total, free, and cached frame counts (spec.md §4.1).
// This allocator has no separate slab cache of its own, so cached is
// always zero; internal/mem.Heap tracks its own cached-page count.
func (a *Allocator) Stats() (total, free, cached int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots) - 1, a.freeLen, 0
}
