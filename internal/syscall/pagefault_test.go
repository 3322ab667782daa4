package syscall_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
	sc "github.com/veridian-os/kernel/internal/syscall"
	"github.com/veridian-os/kernel/internal/vm"
)

func TestPageFaultUnmappedAddressDeliversSIGSEGV(t *testing.T) {
	server, pcb := newTestServer(t)

	ferr := server.PageFault(pcb.Pid, vm.FaultInfo{FaultingAddress: 0xbad00000, WasUserMode: true})
	assert.Equal(t, ktypes.EFAULT, ferr)

	delivered := pcb.DeliverPending()
	require.Len(t, delivered, 1)
	assert.Equal(t, ktypes.SIGSEGV, delivered[0].Signal)
}

func TestPageFaultResolvesWithinMappedRegion(t *testing.T) {
	server, pcb := newTestServer(t)

	_, merr := pcb.Mem.MapRegion(0x40000, mem.PageSize, vm.FlagRead|vm.FlagWrite|vm.FlagUser, vm.BackingAnonymous)
	require.Zero(t, int(merr))

	ferr := server.PageFault(pcb.Pid, vm.FaultInfo{FaultingAddress: 0x40000, WasUserMode: true})
	assert.Zero(t, int(ferr))
	assert.Empty(t, pcb.DeliverPending())
}

func TestPageFaultUnknownPidIsInvalid(t *testing.T) {
	server, _ := newTestServer(t)
	ferr := server.PageFault(ktypes.Pid_t(9999), vm.FaultInfo{FaultingAddress: 0x1000, WasUserMode: true})
	assert.Equal(t, ktypes.ESRCH, ferr)
}
