package vm

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/arch"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
)

// pte is one arch-neutral page table entry: present mappings only, no
// concrete hardware encoding (spec.md §1's non-goal).
type pte struct {
	frame mem.FrameNum
	flags PageFlags
}

// ClonePolicy selects how AddressSpace.CloneFrom treats each mapping.
type ClonePolicy int

const (
	// CloneCopyOnWrite is fork's default: private anonymous mappings
	// become shared-and-read-only in both parent and child until either
	// writes (spec.md §4.4).
	CloneCopyOnWrite ClonePolicy = iota
	// CloneShare maps the same frames read-write in both spaces, used
	// for vfork-style or explicitly shared regions.
	CloneShare
)

// AddressSpace is one process's virtual address space: the Vm_t analog
// of spec.md §4.3. It owns the process's page table and mapping list
// and shares a CoWTable with every address space descended from the
// same fork lineage.
type AddressSpace struct {
	mu       deadlock.Mutex
	regions  Vmregion
	pages    map[uintptr]pte // page-aligned vaddr -> pte
	frames   *mem.Allocator
	cow      *CoWTable
	stackLo  uintptr // current lowest mapped stack address, for growth checks
	stackMin uintptr // guard floor; faulting at or below this is fatal
}

// NewAddressSpace creates an empty address space backed by frames, with
// shared copy-on-write bookkeeping in cow (the same CoWTable is passed
// to every address space in one fork lineage).
func NewAddressSpace(frames *mem.Allocator, cow *CoWTable) *AddressSpace {
	return &AddressSpace{
		pages: make(map[uintptr]pte),
		frames: frames,
		cow:   cow,
	}
}

func pageAlign(vaddr uintptr) uintptr { return vaddr &^ (mem.PageSize - 1) }

// CowTable returns the copy-on-write table this address space shares
// with the rest of its fork lineage, so a new child built with
// NewAddressSpace can join the same lineage (internal/proc's Fork).
func (a *AddressSpace) CowTable() *CoWTable { return a.cow }

// MapRegion records a new lazily-backed mapping (spec.md §3); no frames
// are allocated until a page fault demands them, except for BackingShared
// mappings which must be pre-populated by the caller via InstallFrame.
func (a *AddressSpace) MapRegion(start, length uintptr, flags PageFlags, backing BackingKind) (*Mapping, ktypes.Err_t) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := &Mapping{
		Start:   pageAlign(start),
		Length:  length,
		Flags:   flags,
		Backing: backing,
		Frames:  make([]mem.FrameNum, (length+mem.PageSize-1)/mem.PageSize),
		Shared:  backing == BackingShared,
	}
	if err := a.regions.Insert(m); err != 0 {
		return nil, err
	}
	return m, 0
}

// Mmap finds free virtual space of the requested length at or above
// hint, maps it, and returns its base address (spec.md §4.3's mmap op).
func (a *AddressSpace) Mmap(hint, length uintptr, flags PageFlags, backing BackingKind) (uintptr, ktypes.Err_t) {
	a.mu.Lock()
	start, _ := a.regions.Empty(hint, length)
	a.mu.Unlock()
	if _, err := a.MapRegion(start, length, flags, backing); err != 0 {
		return 0, err
	}
	return start, 0
}

// UnmapRegion removes the mapping starting at vaddr, releasing any
// backing frames (dropping CoW sharers as needed) and flushing the TLB.
func (a *AddressSpace) UnmapRegion(vaddr uintptr) ktypes.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.regions.Remove(pageAlign(vaddr))
	if !ok {
		return ktypes.EINVAL
	}
	for i, f := range m.Frames {
		if f == 0 {
			continue
		}
		page := m.Start + uintptr(i)*mem.PageSize
		delete(a.pages, page)
		if a.cow.IsShared(f) {
			a.cow.DropSharer(f)
		} else {
			a.frames.FreeFrames(f, 1)
		}
	}
	arch.FlushTLB(arch.TLBScopeGlobal, m.Start, len(m.Frames))
	return 0
}

// Translate returns the physical frame backing vaddr, if the page is
// currently present (demand-paged in).
func (a *AddressSpace) Translate(vaddr uintptr) (mem.FrameNum, PageFlags, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pages[pageAlign(vaddr)]
	return p.frame, p.flags, ok
}

// installLocked records a present PTE for vaddr and updates the owning
// mapping's per-page frame slot. Caller holds a.mu.
func (a *AddressSpace) installLocked(m *Mapping, vaddr uintptr, f mem.FrameNum, flags PageFlags) {
	a.pages[pageAlign(vaddr)] = pte{frame: f, flags: flags}
	m.Frames[m.pageIndex(vaddr)] = f
}

// InstallFrame eagerly allocates and populates the page at vaddr within
// mapping m, copying data into the start of the frame and zero-filling
// the remainder. Used where a mapping's content must be present
// immediately rather than demand-paged in on first fault — the ELF
// loader's PT_LOAD segments and BackingShared mappings pre-populated by
// their creator (spec.md §4.14).
func (a *AddressSpace) InstallFrame(m *Mapping, vaddr uintptr, data []byte) ktypes.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.frames.AllocateFrames(1, 0)
	if err != 0 {
		return err
	}
	copy(a.frames.Bytes(f), data)
	a.installLocked(m, vaddr, f, m.Flags)
	arch.FlushTLB(arch.TLBScopePage, pageAlign(vaddr), 1)
	return 0
}

// DemandPage allocates and maps a fresh frame for vaddr within mapping
// m, the first dispatch step of the page-fault handler (spec.md §4.4).
func (a *AddressSpace) DemandPage(m *Mapping, vaddr uintptr) ktypes.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.frames.AllocateFrames(1, 0)
	if err != 0 {
		return err
	}
	if m.Backing == BackingFile && m.File != nil {
		off := m.File.Offset + int64(vaddr-m.Start)
		if _, rerr := m.File.Reader.ReadPage(off, a.frames.Bytes(f)); rerr != 0 {
			a.frames.FreeFrames(f, 1)
			return rerr
		}
	}
	a.installLocked(m, vaddr, f, m.Flags)
	arch.FlushTLB(arch.TLBScopePage, pageAlign(vaddr), 1)
	return 0
}

// ResolveCowWrite handles a write fault against a copy-on-write page:
// if it is the sole remaining owner it is simply marked writable in
// place, otherwise a private copy is allocated and the old frame's
// share is dropped (spec.md §4.4 step 2).
func (a *AddressSpace) ResolveCowWrite(m *Mapping, vaddr uintptr) ktypes.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	page := pageAlign(vaddr)
	p, ok := a.pages[page]
	if !ok {
		return ktypes.EFAULT
	}
	if !a.cow.IsShared(p.frame) {
		orig, _ := a.cow.OriginalFlags(p.frame)
		if orig == 0 {
			orig = m.Flags
		}
		p.flags = orig | FlagWrite
		a.pages[page] = p
		arch.FlushTLB(arch.TLBScopePage, page, 1)
		return 0
	}

	newFrame, err := a.frames.AllocateFrames(1, 0)
	if err != 0 {
		return err
	}
	copy(a.frames.Bytes(newFrame), a.frames.Bytes(p.frame))
	a.cow.DropSharer(p.frame)
	orig, _ := a.cow.OriginalFlags(p.frame)
	if orig == 0 {
		orig = m.Flags
	}
	a.installLocked(m, vaddr, newFrame, orig|FlagWrite)
	arch.FlushTLB(arch.TLBScopePage, page, 1)
	return 0
}

// GrowStack extends the stack mapping downward to the page containing
// vaddr, demand-paging that page in, the third
// page-fault dispatch step (spec.md §4.4). Bounded by stackMin, the
// guard-page floor set when the stack mapping was created.
func (a *AddressSpace) GrowStack(m *Mapping, vaddr uintptr) ktypes.Err_t {
	a.mu.Lock()
	if pageAlign(vaddr) < a.stackMin {
		a.mu.Unlock()
		return ktypes.EFAULT
	}
	newLo := pageAlign(vaddr)
	grow := (m.Start - newLo)
	m.Start = newLo
	m.Length += grow
	newFrames := make([]mem.FrameNum, len(m.Frames)+int(grow/mem.PageSize))
	copy(newFrames[grow/mem.PageSize:], m.Frames)
	m.Frames = newFrames
	a.stackLo = newLo
	a.mu.Unlock()
	return a.DemandPage(m, vaddr)
}

// SetStackGuard establishes the lowest address GrowStack may extend to,
// called once when the initial stack mapping is created. It also seeds
// stackLo with the floor, the address StackMapping searches upward from
// until the first GrowStack records the mapping's real low bound.
func (a *AddressSpace) SetStackGuard(floor uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stackMin = floor
	a.stackLo = floor
}

// StackMapping returns the process's current stack mapping, if one has
// been established via SetStackGuard, for callers trying
// HandleStackFault before giving up on an unmapped faulting address:
// the mapping containing stackLo, or else the lowest mapping above it
// (a stack mapped some pages above its guard floor).
func (a *AddressSpace) StackMapping() (*Mapping, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stackLo == 0 && a.stackMin == 0 {
		return nil, false
	}
	for _, m := range a.regions.mappings {
		if m.End() > a.stackLo {
			return m, true
		}
	}
	return nil, false
}

// CopyIn reads length bytes starting at vaddr out of user memory into a
// freshly allocated slice, the user/kernel boundary crossing spec.md §7
// requires every syscall argument pointer to go through (a bad pointer
// returns EFAULT rather than faulting the kernel). Pages not yet
// demand-paged in are treated as unmapped rather than triggering a
// fault, since a syscall copy is not itself a page-fault source.
func (a *AddressSpace) CopyIn(vaddr uintptr, length int) ([]byte, ktypes.Err_t) {
	out := make([]byte, length)
	for off := 0; off < length; {
		page := pageAlign(vaddr + uintptr(off))
		frame, _, ok := a.Translate(page)
		if !ok {
			return nil, ktypes.EFAULT
		}
		inPage := int(vaddr+uintptr(off)) - int(page)
		n := mem.PageSize - inPage
		if n > length-off {
			n = length - off
		}
		copy(out[off:off+n], a.frames.Bytes(frame)[inPage:inPage+n])
		off += n
	}
	return out, 0
}

// CopyOut writes data into user memory starting at vaddr, the inverse of
// CopyIn, used to return syscall results (e.g. FileRead's buffer, ProcessWait's status word).
func (a *AddressSpace) CopyOut(vaddr uintptr, data []byte) ktypes.Err_t {
	for off := 0; off < len(data); {
		page := pageAlign(vaddr + uintptr(off))
		frame, flags, ok := a.Translate(page)
		if !ok {
			return ktypes.EFAULT
		}
		if flags&FlagWrite == 0 {
			return ktypes.EFAULT
		}
		inPage := int(vaddr+uintptr(off)) - int(page)
		n := mem.PageSize - inPage
		if n > len(data)-off {
			n = len(data) - off
		}
		copy(a.frames.Bytes(frame)[inPage:inPage+n], data[off:off+n])
		off += n
	}
	return 0
}

// CloneFrom populates a (freshly constructed, empty) address space with
// every mapping in other, applying policy to each. Used by fork.
func (a *AddressSpace) CloneFrom(other *AddressSpace, policy ClonePolicy) {
	other.mu.Lock()
	mappings := other.regions.All()
	other.mu.Unlock()

	for _, src := range mappings {
		dst := &Mapping{
			Start:   src.Start,
			Length:  src.Length,
			Flags:   src.Flags,
			Backing: src.Backing,
			File:    src.File,
			Frames:  make([]mem.FrameNum, len(src.Frames)),
			Shared:  src.Shared,
		}
		a.mu.Lock()
		_ = a.regions.Insert(dst)
		a.mu.Unlock()

		for i, f := range src.Frames {
			if f == 0 {
				continue
			}
			page := src.Start + uintptr(i)*mem.PageSize
			if src.Shared || policy == CloneShare {
				a.frames.Refup(f)
				a.mu.Lock()
				a.installLocked(dst, page, f, src.Flags)
				a.mu.Unlock()
				continue
			}
			// CloneCopyOnWrite: both parent and child now share f
			// read-only; existing sharers (grandparent forks) keep
			// their reference counted correctly because Share always
			// increments rather than resetting (spec.md §9).
			a.cow.Share(f, src.Flags)
			ro := src.Flags &^ FlagWrite
			other.mu.Lock()
			other.pages[page] = pte{frame: f, flags: ro}
			src.Frames[i] = f
			other.mu.Unlock()
			a.mu.Lock()
			a.installLocked(dst, page, f, ro)
			a.mu.Unlock()
		}
	}
	a.mu.Lock()
	a.stackLo = other.stackLo
	a.stackMin = other.stackMin
	a.mu.Unlock()
	arch.FlushTLB(arch.TLBScopeGlobal, 0, 0)
}

// Destroy releases every mapping's frames, for process exit.
func (a *AddressSpace) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, m := range a.regions.All() {
		for _, f := range m.Frames {
			if f == 0 {
				continue
			}
			if a.cow.IsShared(f) {
				a.cow.DropSharer(f)
			} else {
				a.frames.FreeFrames(f, 1)
			}
		}
	}
	a.regions.Clear()
	a.pages = make(map[uintptr]pte)
}
