// Package vm implements the per-process virtual address space: mapping
// metadata, demand paging, copy-on-write, and the page-fault handler
// (spec.md §4.3/§4.4). Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/vm/as.go's Vm_t/Vminfo_t split between the
// address-space lock and per-mapping metadata, reworked from the
// teacher's direct x86_64 PTE bit manipulation into an architecture-
// neutral page table map, since concrete page-table bit encodings are
// out of scope (spec.md §1).
//
// Lock order: an AddressSpace's own mutex is taken before the CoW table
// it shares with sibling address spaces (fork children) — always lock
// the AddressSpace before the shared CoWTable, never the reverse,
// mirroring gVisor pkg/sentry/mm's documented lock order.
package vm

import (
	"sort"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
)

// PageFlags mirrors the permission/backing bits spec.md §4.3 PTEs would
// carry, abstracted away from any concrete architecture's bit layout.
type PageFlags uint32

const (
	FlagRead PageFlags = 1 << iota
	FlagWrite
	FlagExec
	FlagUser
)

// BackingKind is the Mapping.Backing discriminant from spec.md §3.
type BackingKind int

const (
	BackingAnonymous BackingKind = iota
	BackingFile
	BackingShared
)

// FileBacking describes a file-backed mapping's source (spec.md §3).
type FileBacking struct {
	Reader interface {
		ReadPage(fileOffset int64, dst []byte) (int, ktypes.Err_t)
	}
	Offset int64
}

// Mapping describes one virtual-address-range's backing, per spec.md
// §3's data model. Mapping.Frames is page-indexed within the mapping;
// a zero FrameNum is the "unbacked" sentinel for a page not yet
// demand-paged in.
type Mapping struct {
	Start   uintptr
	Length  uintptr
	Flags   PageFlags
	Backing BackingKind
	File    *FileBacking
	Frames  []mem.FrameNum
	// Shared marks a BackingShared mapping visible to more than one
	// process (spec.md §3's shared-region semantics); writes to it are
	// never copy-on-write.
	Shared bool
}

// End returns the exclusive end address of the mapping.
func (m *Mapping) End() uintptr { return m.Start + m.Length }

// pageIndex returns the page-aligned index of vaddr within the mapping.
func (m *Mapping) pageIndex(vaddr uintptr) int {
	return int((vaddr - m.Start) / mem.PageSize)
}

// Vmregion is the ordered set of Mappings covering a process's user
// address space; every mapped page in the arch page table has a
// corresponding Mapping, per spec.md §3's invariant.
type Vmregion struct {
	mappings []*Mapping // sorted by Start, non-overlapping
}

// Lookup returns the mapping containing vaddr, if any.
func (r *Vmregion) Lookup(vaddr uintptr) (*Mapping, bool) {
	i := sort.Search(len(r.mappings), func(i int) bool {
		return r.mappings[i].End() > vaddr
	})
	if i < len(r.mappings) && r.mappings[i].Start <= vaddr {
		return r.mappings[i], true
	}
	return nil, false
}

// Insert adds a new, non-overlapping mapping.
func (r *Vmregion) Insert(m *Mapping) ktypes.Err_t {
	i := sort.Search(len(r.mappings), func(i int) bool { return r.mappings[i].Start >= m.Start })
	if i < len(r.mappings) && r.mappings[i].Start < m.End() {
		return ktypes.EEXIST
	}
	if i > 0 && r.mappings[i-1].End() > m.Start {
		return ktypes.EEXIST
	}
	r.mappings = append(r.mappings, nil)
	copy(r.mappings[i+1:], r.mappings[i:])
	r.mappings[i] = m
	return 0
}

// Remove deletes the mapping starting exactly at vaddr.
func (r *Vmregion) Remove(vaddr uintptr) (*Mapping, bool) {
	for i, m := range r.mappings {
		if m.Start == vaddr {
			r.mappings = append(r.mappings[:i], r.mappings[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// Empty finds a free virtual range of at least length bytes at or after
// startVA, returning its start and, as the second result, length
// unchanged.
func (r *Vmregion) Empty(startVA, length uintptr) (uintptr, uintptr) {
	cur := startVA
	for _, m := range r.mappings {
		if m.Start >= cur+length {
			break
		}
		if m.End() > cur {
			cur = m.End()
		}
	}
	return cur, length
}

// Clear drops every mapping (used when tearing down an address space).
func (r *Vmregion) Clear() { r.mappings = nil }

// All returns every mapping, for snapshotting (e.g. /proc/[pid]/maps).
func (r *Vmregion) All() []*Mapping { return append([]*Mapping(nil), r.mappings...) }
