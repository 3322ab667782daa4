package vm

import "github.com/veridian-os/kernel/internal/ktypes"

// FaultInfo describes one page fault, the architecture-neutral
// replacement for biscuit's Sys_pgfault trap frame fields.
type FaultInfo struct {
	FaultingAddress    uintptr
	WasWrite           bool
	WasUserMode        bool
	InstructionPointer uintptr
}

// FaultAction tells the caller (internal/proc, which owns signal
// delivery) what HandleFault decided; vm itself never sends signals,
// avoiding a vm -> proc import cycle.
type FaultAction int

const (
	// FaultResolved means the mapping is now present and the faulting
	// instruction can be retried.
	FaultResolved FaultAction = iota
	// FaultSIGSEGV means the address has no mapping, or the access
	// violated the mapping's permissions; the caller must deliver
	// SIGSEGV to the faulting thread.
	FaultSIGSEGV
	// FaultKernelPanic means the fault occurred in kernel-mode code
	// touching an invalid address, a kernel bug rather than a user
	// program fault.
	FaultKernelPanic
)

// HandleFault is the general page-fault entry point: it resolves
// copy-on-write and demand-paging faults and otherwise reports SIGSEGV.
// It does not grow the stack; that step is HandleStackFault, which
// callers (internal/proc's PCB.HandleFault) try after HandleFault
// reports SIGSEGV.
func HandleFault(a *AddressSpace, info FaultInfo) (FaultAction, ktypes.Err_t) {
	a.mu.Lock()
	m, ok := a.regions.Lookup(info.FaultingAddress)
	a.mu.Unlock()

	if !ok {
		if info.WasUserMode {
			return FaultSIGSEGV, ktypes.EFAULT
		}
		return FaultKernelPanic, ktypes.EFAULT
	}

	if info.WasWrite && m.Flags&FlagWrite == 0 && !m.Shared {
		// Could still be a CoW page masquerading as read-only; check
		// before giving up.
		if _, _, present := a.Translate(info.FaultingAddress); present {
			if err := a.ResolveCowWrite(m, info.FaultingAddress); err == 0 {
				return FaultResolved, 0
			}
		}
		if info.WasUserMode {
			return FaultSIGSEGV, ktypes.EACCES
		}
		return FaultKernelPanic, ktypes.EACCES
	}

	if _, _, present := a.Translate(info.FaultingAddress); !present {
		if err := a.DemandPage(m, info.FaultingAddress); err != 0 {
			if info.WasUserMode {
				return FaultSIGSEGV, err
			}
			return FaultKernelPanic, err
		}
		return FaultResolved, 0
	}

	if info.WasWrite && m.Flags&FlagWrite != 0 {
		if err := a.ResolveCowWrite(m, info.FaultingAddress); err != 0 {
			if info.WasUserMode {
				return FaultSIGSEGV, err
			}
			return FaultKernelPanic, err
		}
		return FaultResolved, 0
	}

	if info.WasUserMode {
		return FaultSIGSEGV, ktypes.EACCES
	}
	return FaultKernelPanic, ktypes.EACCES
}

// HandleStackFault is the stack-growth dispatch step (spec.md §4.4 step
// 3), tried by callers that know the faulting address lies just below
// an existing stack mapping's current low bound before falling back to
// the general HandleFault/SIGSEGV path.
func HandleStackFault(a *AddressSpace, stackMapping *Mapping, info FaultInfo) (FaultAction, ktypes.Err_t) {
	if err := a.GrowStack(stackMapping, info.FaultingAddress); err != 0 {
		if info.WasUserMode {
			return FaultSIGSEGV, err
		}
		return FaultKernelPanic, err
	}
	return FaultResolved, 0
}
