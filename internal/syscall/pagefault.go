package syscall

import (
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/vm"
)

// PageFault is the trap-side entry point spec.md §4.4 describes: unlike
// every other subsystem API this package exposes, it is not reached
// through Dispatch's Number table, because a real arch backend calls it
// straight out of its page-fault trap handler, before any syscall
// number even exists for the faulting instruction. It resolves pid's
// PCB and forwards to proc.PCB.HandleFault, which owns the SIGSEGV
// delivery HandleFault itself cannot perform (spec.md §4.4's "deliver
// SIGSEGV to the faulting process").
func (s *Server) PageFault(pid ktypes.Pid_t, info vm.FaultInfo) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	return pcb.HandleFault(info)
}
