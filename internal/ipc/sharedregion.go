package ipc

import (
	"sync"

	"github.com/veridian-os/kernel/internal/arch"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
	"github.com/veridian-os/kernel/internal/vm"
)

// TransferMode selects how a SharedRegion moves between two processes'
// address spaces (spec.md §3, §4.9.3).
type TransferMode int

const (
	// TransferMove unmaps from the source and maps only at the
	// destination.
	TransferMove TransferMode = iota
	// TransferShare maps at the destination in addition to the source;
	// both mappings stay writable.
	TransferShare
	// TransferCopyOnWrite maps the region read-only (BackingShared) at
	// the destination. The source mapping keeps its permissions, and no
	// entries are added to either side's CoW table.
	TransferCopyOnWrite
)

// RegionTransfer is the "large pointer into shared region" variant of
// spec.md §3's Message.
type RegionTransfer struct {
	RegionID uint64
	Mode     TransferMode
	Offset   uintptr
	Length   uintptr
}

// SharedRegion is a block of frames with a per-process mapping table
// (spec.md §3). mappings is keyed by pid so Transfer can look up and
// update each side's (vaddr, rights) independently.
type SharedRegion struct {
	mu       sync.Mutex
	ID       uint64
	Size     uintptr
	mappings map[ktypes.Pid_t]regionMapping
}

type regionMapping struct {
	Space  *vm.AddressSpace
	Vaddr  uintptr
	Rights ktypes.Rights
}

// NewSharedRegion creates an empty shared region of the given size.
func NewSharedRegion(id uint64, size uintptr) *SharedRegion {
	return &SharedRegion{ID: id, Size: size, mappings: make(map[ktypes.Pid_t]regionMapping)}
}

// Attach records a process's initial mapping of the region, used to
// seed the source side before any Transfer happens.
func (r *SharedRegion) Attach(pid ktypes.Pid_t, space *vm.AddressSpace, vaddr uintptr, rights ktypes.Rights) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[pid] = regionMapping{Space: space, Vaddr: vaddr, Rights: rights}
}

// Transfer implements spec.md §4.9.3's three modes. It takes only the
// region's own lock, which guards the region's mapping table; it does
// not take the IPC registry's lock, and no registry method wraps it
// (internal/syscall's ipcRegionTransfer calls it directly).
func Transfer(region *SharedRegion, srcPid, dstPid ktypes.Pid_t, dstSpace *vm.AddressSpace, dstVaddr uintptr, mode TransferMode, flags vm.PageFlags, backing vm.BackingKind) ktypes.Err_t {
	region.mu.Lock()
	defer region.mu.Unlock()

	src, ok := region.mappings[srcPid]
	if !ok {
		return ktypes.EINVALCAP
	}

	switch mode {
	case TransferMove:
		if err := src.Space.UnmapRegion(src.Vaddr); err != 0 {
			return err
		}
		if _, err := dstSpace.MapRegion(dstVaddr, region.Size, flags, backing); err != 0 {
			return err
		}
		delete(region.mappings, srcPid)
		region.mappings[dstPid] = regionMapping{Space: dstSpace, Vaddr: dstVaddr, Rights: src.Rights}
		arch.FlushTLB(arch.TLBScopeGlobal, src.Vaddr, int(region.Size/mem.PageSize))

	case TransferShare:
		if _, err := dstSpace.MapRegion(dstVaddr, region.Size, flags, backing); err != 0 {
			return err
		}
		region.mappings[dstPid] = regionMapping{Space: dstSpace, Vaddr: dstVaddr, Rights: src.Rights}

	case TransferCopyOnWrite:
		roFlags := flags &^ vm.FlagWrite
		if _, err := dstSpace.MapRegion(dstVaddr, region.Size, roFlags, vm.BackingShared); err != 0 {
			return err
		}
		region.mappings[dstPid] = regionMapping{Space: dstSpace, Vaddr: dstVaddr, Rights: src.Rights}

	default:
		return ktypes.ENOTIMPL
	}
	return 0
}
