package proc

import (
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/vm"
)

// HandleFault is the proc-side page-fault entry point spec.md §4.4
// ends at: it runs vm.HandleFault against the process's own address
// space, falls back to vm.HandleStackFault when the fault looks like
// ordinary stack growth, and delivers SIGSEGV to the faulting process
// itself whenever neither resolves the fault. vm never imports proc
// (to avoid a cycle), so this glue has to live here rather than in
// internal/vm.
func (p *PCB) HandleFault(info vm.FaultInfo) ktypes.Err_t {
	action, err := vm.HandleFault(p.Mem, info)

	if action == vm.FaultSIGSEGV {
		if m, ok := p.Mem.StackMapping(); ok && info.FaultingAddress < m.Start {
			action, err = vm.HandleStackFault(p.Mem, m, info)
		}
	}

	switch action {
	case vm.FaultResolved:
		return 0
	case vm.FaultSIGSEGV:
		p.SendSignal(ktypes.SIGSEGV)
		return err
	default: // vm.FaultKernelPanic
		return err
	}
}
