package mem

import (
	"sync"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// sizeClasses are the slab bucket sizes the heap serves small
// allocations from, matching spec.md §4.2 ("small allocations use
// size-class slabs"). Anything larger is served directly from whole
// frames.
var sizeClasses = []int{16, 32, 64, 128, 256, 512, 1024, 2048}

// chunk is one outstanding allocation's bookkeeping, keyed by the
// address Go reports for the returned slice so Free can validate the
// layout matches what Alloc handed out.
type chunk struct {
	class int // index into sizeClasses, or -1 for a direct frame allocation
	frame FrameNum
	nfrm  int
}

// slabPage is one frame carved into fixed-size chunks for a single size
// class, with a free list of chunk offsets.
type slabPage struct {
	frame FrameNum
	free  []int // byte offsets within the frame still unused
}

// Heap is the kernel heap: the allocator backing `alloc`-aware kernel
// code (spec.md §4.2), layered on an Allocator for both slab pages and
// large direct allocations.
type Heap struct {
	mu     sync.Mutex
	frames *Allocator
	slabs  map[int][]*slabPage // size class -> pages
	live   map[uintptrKey]chunk
	cached int
}

// uintptrKey identifies an outstanding allocation by its backing
// frame+offset pair rather than a real unsafe.Pointer, since this is a
// hosted simulation operating on Go-managed byte slices.
type uintptrKey struct {
	frame  FrameNum
	offset int
}

// NewHeap creates a kernel heap backed by the given frame allocator.
func NewHeap(frames *Allocator) *Heap {
	return &Heap{
		frames: frames,
		slabs:  make(map[int][]*slabPage),
		live:   make(map[uintptrKey]chunk),
	}
}

// Alloc returns a zeroed buffer of at least size bytes aligned to align
// (align must be a power of two; 1 means no special alignment beyond
// natural byte alignment). Allocations are served from a size-class
// slab when size fits one after rounding for alignment, otherwise
// directly from whole frames.
func (h *Heap) Alloc(size, align int) ([]byte, ktypes.Err_t) {
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return nil, ktypes.EINVAL
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	class := classFor(size, align)
	if class < 0 {
		return h.allocLarge(size)
	}
	return h.allocSlab(class, size)
}

func classFor(size, align int) int {
	for i, c := range sizeClasses {
		if c >= size && c%align == 0 {
			return i
		}
	}
	return -1
}

func (h *Heap) allocSlab(class, size int) ([]byte, ktypes.Err_t) {
	csize := sizeClasses[class]
	pages := h.slabs[class]
	for _, p := range pages {
		if len(p.free) > 0 {
			off := p.free[len(p.free)-1]
			p.free = p.free[:len(p.free)-1]
			h.live[uintptrKey{p.frame, off}] = chunk{class: class, frame: p.frame}
			buf := h.frames.Bytes(p.frame)
			return buf[off : off+size : off+csize], 0
		}
	}
	// no free chunk anywhere: carve a new slab page from one frame.
	f, err := h.frames.AllocateFrames(1, 0)
	if err != 0 {
		return nil, err
	}
	nchunks := PageSize / csize
	free := make([]int, 0, nchunks-1)
	for i := 1; i < nchunks; i++ {
		free = append(free, i*csize)
	}
	h.slabs[class] = append(pages, &slabPage{frame: f, free: free})
	h.live[uintptrKey{f, 0}] = chunk{class: class, frame: f}
	buf := h.frames.Bytes(f)
	return buf[0:size:csize], 0
}

func (h *Heap) allocLarge(size int) ([]byte, ktypes.Err_t) {
	n := (size + PageSize - 1) / PageSize
	base, err := h.frames.AllocateFrames(n, 0)
	if err != 0 {
		return nil, err
	}
	h.live[uintptrKey{base, 0}] = chunk{class: -1, frame: base, nfrm: n}
	full := h.frames.BytesRange(base, n)
	return full[:size:len(full)], 0
}

// Free releases a buffer previously returned by Alloc. Freeing a buffer
// whose layout (address) was not returned by Alloc is a bug, per
// spec.md §4.2, and panics.
func (h *Heap) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	// Recover which frame/offset backs buf by scanning live allocations;
	// a production slab allocator would derive this from the pointer
	// directly, but without unsafe address arithmetic over Go slices we
	// match by address identity through frame bytes.
	for key, c := range h.live {
		fb := h.frames.Bytes(key.frame)
		if &fb[key.offset] == &buf[0] {
			delete(h.live, key)
			if c.class < 0 {
				h.frames.FreeFrames(c.frame, c.nfrm)
				return
			}
			pages := h.slabs[c.class]
			for _, p := range pages {
				if p.frame == c.frame {
					p.free = append(p.free, key.offset)
					return
				}
			}
			return
		}
	}
	panic("mem: Free of unknown or mismatched allocation")
}

// CachedPages reports the number of distinct slab pages currently
// cached (holding at least one free chunk) across all size classes.
// Allocator.Stats does not include this count; its cached figure is
// always zero.
func (h *Heap) CachedPages() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, pages := range h.slabs {
		for _, p := range pages {
			if len(p.free) > 0 {
				n++
			}
		}
	}
	return n
}
