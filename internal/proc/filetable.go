package proc

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// FileTable is a process's per-fd table of open-file object references,
// the Files member of spec.md §3's PCB record. Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/fd/fd.go's Fds_t/Copyfd: a slice indexed by
// fd number with a free list, duplicated entry-by-entry on fork.
type FileTable struct {
	mu      deadlock.Mutex
	entries []ktypes.ObjectRef
	occupied []bool
	free    []int
}

func NewFileTable() *FileTable {
	return &FileTable{}
}

// Install assigns the lowest-numbered free fd to ref, POSIX-style.
func (f *FileTable) Install(ref ktypes.ObjectRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.free); n > 0 {
		lowest := 0
		for i := 1; i < n; i++ {
			if f.free[i] < f.free[lowest] {
				lowest = i
			}
		}
		fd := f.free[lowest]
		f.free = append(f.free[:lowest], f.free[lowest+1:]...)
		f.entries[fd] = ref
		f.occupied[fd] = true
		return fd
	}
	fd := len(f.entries)
	f.entries = append(f.entries, ref)
	f.occupied = append(f.occupied, true)
	return fd
}

// Get returns the object ref installed at fd.
func (f *FileTable) Get(fd int) (ktypes.ObjectRef, ktypes.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fd < 0 || fd >= len(f.entries) || !f.occupied[fd] {
		return ktypes.ObjectRef{}, ktypes.EBADF
	}
	return f.entries[fd], 0
}

// Close releases fd for reuse.
func (f *FileTable) Close(fd int) ktypes.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fd < 0 || fd >= len(f.entries) || !f.occupied[fd] {
		return ktypes.EBADF
	}
	f.occupied[fd] = false
	f.entries[fd] = ktypes.ObjectRef{}
	f.free = append(f.free, fd)
	return 0
}

// Dup installs a second fd pointing at the same object ref as src.
func (f *FileTable) Dup(src int) (int, ktypes.Err_t) {
	ref, err := f.Get(src)
	if err != 0 {
		return -1, err
	}
	return f.Install(ref), 0
}

// CloneFrom duplicates every occupied entry of other into a fresh
// table (used by fork: spec.md §4.6 "clone the file table").
func (f *FileTable) CloneFrom(other *FileTable) {
	other.mu.Lock()
	defer other.mu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append([]ktypes.ObjectRef(nil), other.entries...)
	f.occupied = append([]bool(nil), other.occupied...)
	f.free = append([]int(nil), other.free...)
}
