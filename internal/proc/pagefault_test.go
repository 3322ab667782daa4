package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
	"github.com/veridian-os/kernel/internal/vm"
)

func TestHandleFaultResolvesDemandPage(t *testing.T) {
	tbl := newTestTable(t)
	pcb, err := tbl.Create("faulter")
	require.Zero(t, int(err))

	_, merr := pcb.Mem.MapRegion(0x10000, mem.PageSize, vm.FlagRead|vm.FlagWrite|vm.FlagUser, vm.BackingAnonymous)
	require.Zero(t, int(merr))

	ferr := pcb.HandleFault(vm.FaultInfo{FaultingAddress: 0x10000, WasUserMode: true})
	assert.Zero(t, int(ferr))
	assert.Zero(t, pcb.PendingSignals, "a resolvable fault must not raise a signal")
}

func TestHandleFaultDeliversSIGSEGVOnUnmappedAddress(t *testing.T) {
	tbl := newTestTable(t)
	pcb, err := tbl.Create("faulter")
	require.Zero(t, int(err))

	ferr := pcb.HandleFault(vm.FaultInfo{FaultingAddress: 0xdead0000, WasUserMode: true})
	assert.Equal(t, ktypes.EFAULT, ferr)

	delivered := pcb.DeliverPending()
	require.Len(t, delivered, 1)
	assert.Equal(t, ktypes.SIGSEGV, delivered[0].Signal)
	assert.Equal(t, ActionTerminate, delivered[0].Action)
}

func TestHandleFaultGrowsStackBeforeFallingBackToSIGSEGV(t *testing.T) {
	tbl := newTestTable(t)
	pcb, err := tbl.Create("faulter")
	require.Zero(t, int(err))

	stackTop := uintptr(0x7000_0000)
	_, merr := pcb.Mem.MapRegion(stackTop-mem.PageSize, mem.PageSize, vm.FlagRead|vm.FlagWrite|vm.FlagUser, vm.BackingAnonymous)
	require.Zero(t, int(merr))
	pcb.Mem.SetStackGuard(stackTop - 4*mem.PageSize)

	growErr := pcb.HandleFault(vm.FaultInfo{FaultingAddress: stackTop - 2*mem.PageSize, WasWrite: true, WasUserMode: true})
	assert.Zero(t, int(growErr))
	assert.Zero(t, pcb.PendingSignals, "growth within the guard must not raise a signal")

	segErr := pcb.HandleFault(vm.FaultInfo{FaultingAddress: stackTop - 5*mem.PageSize, WasWrite: true, WasUserMode: true})
	assert.Equal(t, ktypes.EFAULT, segErr)

	delivered := pcb.DeliverPending()
	require.Len(t, delivered, 1)
	assert.Equal(t, ktypes.SIGSEGV, delivered[0].Signal)
}
