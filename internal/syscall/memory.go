package syscall

import (
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/vm"
)

// protRead/protWrite/protExec mirror the prot bits of spec.md §6's
// MemoryMap(addr, length, prot, flags, fd, offset); only these
// permission bits are modeled, since fd-backed mappings route through
// FileOpen's vfs.Node rather than a raw fd number here.
const (
	protRead  = 1 << 0
	protWrite = 1 << 1
	protExec  = 1 << 2
)

func (s *Server) memoryMap(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	hint, length, prot := args[0], args[1], args[2]
	flags := protFlags(prot) | vm.FlagUser

	addr, merr := pcb.Mem.Mmap(hint, length, flags, vm.BackingAnonymous)
	if merr != 0 {
		return 0, merr
	}
	return addr, 0
}

func (s *Server) memoryUnmap(pid ktypes.Pid_t, args Args) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	return pcb.Mem.UnmapRegion(args[0])
}
