package vm

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/mem"
)

// CoWTable tracks the original permissions of frames currently shared
// copy-on-write across two or more address spaces. The frame's actual
// reference count lives in mem.Allocator (a frame is freed once nobody
// holds it, CoW or not); CoWTable only remembers enough to restore a
// sensible writable mapping once sharing collapses back to one owner.
//
// Open Question resolution (spec.md §9): forking a page that is already
// shared must increment the existing reference count rather than reset
// it to 2 — resetting would undercount the grandparent's share and let
// it be freed while still mapped. Share below always calls Refup
// exactly once per fork, regardless of whether the frame was already
// shared, so existing sharers are preserved.
type CoWTable struct {
	mu      deadlock.Mutex
	origins map[mem.FrameNum]PageFlags
	frames  *mem.Allocator
}

func NewCoWTable(frames *mem.Allocator) *CoWTable {
	return &CoWTable{origins: make(map[mem.FrameNum]PageFlags), frames: frames}
}

// Share records frame as copy-on-write (if not already) and bumps its
// reference count by one, on behalf of a new sharer (a fork child).
func (t *CoWTable) Share(frame mem.FrameNum, originalFlags PageFlags) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, tracked := t.origins[frame]; !tracked {
		t.origins[frame] = originalFlags
	}
	t.frames.Refup(frame)
}

// IsShared reports whether frame currently has more than one owner.
func (t *CoWTable) IsShared(frame mem.FrameNum) bool {
	return t.frames.Refcnt(frame) > 1
}

// OriginalFlags returns the permissions the mapping had before it
// became copy-on-write, used to restore a plain writable PTE once
// sharing collapses to a single owner.
func (t *CoWTable) OriginalFlags(frame mem.FrameNum) (PageFlags, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.origins[frame]
	return f, ok
}

// DropSharer releases one sharer's reference to frame, following a CoW
// write-fault copy or an unmap. Returns true once the frame is back to
// a single owner (or freed), at which point the caller should stop
// treating it as CoW; the table entry is pruned in that case.
func (t *CoWTable) DropSharer(frame mem.FrameNum) (collapsed bool) {
	freed := t.frames.Refdown(frame)
	t.mu.Lock()
	defer t.mu.Unlock()
	if freed || t.frames.Refcnt(frame) <= 1 {
		delete(t.origins, frame)
		return true
	}
	return false
}
