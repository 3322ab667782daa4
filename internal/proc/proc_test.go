package proc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/arch"
	"github.com/veridian-os/kernel/internal/bootcfg"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
	"github.com/veridian-os/kernel/internal/thread"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	cfg := bootcfg.Default()
	cfg.RAM = []bootcfg.RAMRegion{{NumFrames: 256}}
	cfg.MaxProcesses = 8
	frames := mem.NewAllocator(cfg)
	return NewTable(cfg, frames)
}

func nextTidSeq() func() ktypes.Tid_t {
	n := ktypes.Tid_t(0)
	return func() ktypes.Tid_t { n++; return n }
}

func TestCreateBootstrapsInit(t *testing.T) {
	tbl := newTestTable(t)
	pcb, err := tbl.Create("init")
	require.Zero(t, int(err))
	assert.Equal(t, InitPid, pcb.Pid)
	assert.Equal(t, StateReady, pcb.State())
}

func TestForkInheritsEnvAndLinksChild(t *testing.T) {
	tbl := newTestTable(t)
	parent, err := tbl.Create("parent")
	require.Zero(t, int(err))
	parent.EnvVars["HOME"] = "/root"

	nextTid := nextTidSeq()
	tid := nextTid()
	parent.Threads[tid] = thread.New(tid, parent.Pid, "parent-main", arch.NewGenericContext())

	childPid, ferr := tbl.Fork(parent.Pid, nextTid)
	require.Zero(t, int(ferr))
	assert.NotEqual(t, parent.Pid, childPid)

	child, gerr := tbl.Get(childPid)
	require.Zero(t, int(gerr))
	assert.Equal(t, "/root", child.EnvVars["HOME"])
	assert.Equal(t, parent.Pid, child.ParentPid)

	parent.mu.Lock()
	assert.Contains(t, parent.Children, childPid)
	parent.mu.Unlock()
}

func TestExitReparentsChildrenToInit(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.Create("init")
	require.Zero(t, int(err))
	mid, err := tbl.Create("mid")
	require.Zero(t, int(err))

	nextTid := nextTidSeq()
	childPid, ferr := tbl.Fork(mid.Pid, nextTid)
	require.Zero(t, int(ferr))

	require.Zero(t, int(tbl.Exit(mid.Pid, 3)))

	child, gerr := tbl.Get(childPid)
	require.Zero(t, int(gerr))
	assert.Equal(t, InitPid, child.ParentPid)

	initPCB, _ := tbl.Get(InitPid)
	initPCB.mu.Lock()
	assert.Contains(t, initPCB.Children, childPid)
	initPCB.mu.Unlock()
}

func TestWaitReapsZombieChild(t *testing.T) {
	tbl := newTestTable(t)
	parent, err := tbl.Create("parent")
	require.Zero(t, int(err))
	nextTid := nextTidSeq()
	childPid, ferr := tbl.Fork(parent.Pid, nextTid)
	require.Zero(t, int(ferr))

	require.Zero(t, int(tbl.Exit(childPid, 5)))

	res, werr := tbl.Wait(context.Background(), parent.Pid, 0, WaitOptions{})
	require.Zero(t, int(werr))
	assert.Equal(t, childPid, res.Pid)
	assert.Equal(t, 5, res.ExitCode)

	_, gerr := tbl.Get(childPid)
	assert.Equal(t, ktypes.ESRCH, gerr, "reaped child must be removed from the table")
}

func TestWaitWithNoChildrenReturnsECHILD(t *testing.T) {
	tbl := newTestTable(t)
	parent, err := tbl.Create("lonely")
	require.Zero(t, int(err))
	_, werr := tbl.Wait(context.Background(), parent.Pid, 0, WaitOptions{})
	assert.Equal(t, ktypes.ECHILD, werr)
}

func TestSignalDeliveryDefaultAction(t *testing.T) {
	tbl := newTestTable(t)
	pcb, err := tbl.Create("victim")
	require.Zero(t, int(err))
	require.Zero(t, int(pcb.SendSignal(ktypes.SIGTERM)))

	deliveries := pcb.DeliverPending()
	require.Len(t, deliveries, 1)
	assert.Equal(t, ktypes.SIGTERM, deliveries[0].Signal)
	assert.Equal(t, ActionTerminate, deliveries[0].Action)
}

func TestSignalHandlerOverridesDefault(t *testing.T) {
	tbl := newTestTable(t)
	pcb, err := tbl.Create("handler")
	require.Zero(t, int(err))
	require.Zero(t, int(pcb.SetHandler(ktypes.SIGUSR1, SignalHandler{Disposition: DispositionHandler, UserFn: 0x4000})))
	require.Zero(t, int(pcb.SendSignal(ktypes.SIGUSR1)))

	deliveries := pcb.DeliverPending()
	require.Len(t, deliveries, 1)
	assert.Equal(t, ActionInvokeHandler, deliveries[0].Action)
	assert.Equal(t, uintptr(0x4000), deliveries[0].UserFn)
}

func TestSetHandlerRejectsSIGKILL(t *testing.T) {
	tbl := newTestTable(t)
	pcb, _ := tbl.Create("x")
	assert.Equal(t, ktypes.EINVAL, pcb.SetHandler(ktypes.SIGKILL, SignalHandler{Disposition: DispositionIgnore}))
}

func TestSnapshotReflectsLiveProcesses(t *testing.T) {
	tbl := newTestTable(t)
	init, _ := tbl.Create("init")
	childPid, ferr := tbl.Fork(init.Pid, nextTidSeq())
	require.Equal(t, ktypes.Err_t(0), ferr)

	snap := tbl.Snapshot()
	require.Len(t, snap, 2)

	byPid := make(map[ktypes.Pid_t]ProcessInfo)
	for _, info := range snap {
		byPid[info.Pid] = info
	}
	assert.Equal(t, "init", byPid[init.Pid].Name)
	assert.Equal(t, init.Pid, byPid[childPid].PPid)
}
