package syscall

import (
	"github.com/veridian-os/kernel/internal/capspace"
	"github.com/veridian-os/kernel/internal/ipc"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/vm"
)

// regionAcceptRight is the minimum right spec.md §4.9.3 calls "an
// accept capability": holding any capability for the destination
// region, even just READ, establishes that the destination process
// has agreed to receive the mapping (Open Question resolution, see
// DESIGN.md).
const regionAcceptRight = ktypes.READ

// ipcRegionCreate decodes args as (size, vaddr, prot), allocates a
// shared region, maps it into the caller's own address space at vaddr,
// attaches that as the region's source mapping, and mints a GRANT|
// READ|WRITE capability for it — only a GRANT holder can later move,
// share, or CoW-transfer the region (spec.md §4.9.3).
func (s *Server) ipcRegionCreate(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	size, vaddr := args[0], args[1]
	flags := protFlags(args[2]) | vm.FlagUser

	region := s.Ipc.CreateSharedRegion(size)
	if _, merr := pcb.Mem.MapRegion(vaddr, size, flags, vm.BackingShared); merr != 0 {
		return 0, merr
	}
	region.Attach(pid, pcb.Mem, vaddr, ktypes.READ|ktypes.WRITE)

	tok := pcb.Caps.Insert(ktypes.RefMemory(region.ID), ktypes.GRANT|ktypes.READ|ktypes.WRITE, false, false)
	return uintptr(tok), 0
}

// ipcRegionTransfer decodes args as (regionCap, dstPid, dstVaddr, mode,
// prot, dstAcceptCap) and performs spec.md §4.9.3's zero-copy transfer:
// the caller must hold GRANT on the region, and the named destination
// process must already hold an accept capability for that same region
// in its own capability space — neither side's capability is implied
// by the other's, so both are validated independently before any
// mapping is touched.
func (s *Server) ipcRegionTransfer(pid ktypes.Pid_t, args Args) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	srcRef, verr := ipc.ValidateCapability(s.Ipc, pcb.Caps, capspace.Token(args[0]), ktypes.GRANT)
	if verr != 0 {
		return verr
	}
	region, rerr := s.Ipc.LookupSharedRegion(srcRef.ID)
	if rerr != 0 {
		return rerr
	}

	dstPid := ktypes.Pid_t(args[1])
	dstPcb, derr := s.pcb(dstPid)
	if derr != 0 {
		return derr
	}
	dstRef, aerr := ipc.ValidateCapability(s.Ipc, dstPcb.Caps, capspace.Token(args[5]), regionAcceptRight)
	if aerr != 0 {
		return aerr
	}
	if dstRef != srcRef {
		return ktypes.EACCES
	}

	dstVaddr := args[2]
	mode := ipc.TransferMode(args[3])
	flags := protFlags(args[4]) | vm.FlagUser

	return ipc.Transfer(region, pid, dstPid, dstPcb.Mem, dstVaddr, mode, flags, vm.BackingShared)
}

// protFlags decodes the memoryMap-style prot bitset shared by MemoryMap
// and the region syscalls.
func protFlags(prot uintptr) vm.PageFlags {
	var flags vm.PageFlags
	if prot&protRead != 0 {
		flags |= vm.FlagRead
	}
	if prot&protWrite != 0 {
		flags |= vm.FlagWrite
	}
	if prot&protExec != 0 {
		flags |= vm.FlagExec
	}
	return flags
}
