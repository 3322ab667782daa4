package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/arch"
	"github.com/veridian-os/kernel/internal/thread"
)

func TestHigherPriorityPreemptsLower(t *testing.T) {
	cpu := NewCPU(0, thread.New(0, 0, "idle", arch.NewGenericContext()))

	low := thread.New(1, 1, "low", arch.NewGenericContext())
	high := thread.New(2, 1, "high", arch.NewGenericContext())
	require.Zero(t, int(cpu.EnqueueReady(low, UserLow)))
	require.Zero(t, int(cpu.EnqueueReady(high, SystemHigh)))

	next := cpu.YieldCPU()
	assert.Same(t, high, next)
}

func TestRoundRobinWithinClass(t *testing.T) {
	cpu := NewCPU(0, thread.New(0, 0, "idle", arch.NewGenericContext()))
	a := thread.New(1, 1, "a", arch.NewGenericContext())
	b := thread.New(2, 1, "b", arch.NewGenericContext())
	require.Zero(t, int(cpu.EnqueueReady(a, UserNormal)))
	require.Zero(t, int(cpu.EnqueueReady(b, UserNormal)))

	first := cpu.YieldCPU()
	assert.Same(t, a, first)
	second := cpu.YieldCPU()
	assert.Same(t, b, second)
}

func TestAffinityExcludesCPU(t *testing.T) {
	cpu := NewCPU(1, thread.New(0, 0, "idle", arch.NewGenericContext()))
	th := thread.New(1, 1, "pinned", arch.NewGenericContext())
	th.Affinity = 1 << 0 // only CPU 0

	err := cpu.EnqueueReady(th, UserNormal)
	assert.NotZero(t, int(err))
}

func TestBlockOnAndWakeUp(t *testing.T) {
	cpu := NewCPU(0, thread.New(0, 0, "idle", arch.NewGenericContext()))
	th := thread.New(1, 1, "waiter", arch.NewGenericContext())
	require.Zero(t, int(cpu.EnqueueReady(th, UserNormal)))
	running := cpu.YieldCPU()
	require.Same(t, th, running)

	idleRunning := cpu.BlockOn(thread.BlockReason("endpoint:1"))
	assert.Equal(t, thread.StateBlocked, th.State())
	assert.NotSame(t, th, idleRunning)

	require.Zero(t, int(cpu.WakeUp(th)))
	assert.Equal(t, thread.StateReady, th.State())
	assert.Equal(t, 1, cpu.ReadyCount(UserNormal))
}

func TestExitTaskMarksZombieAndDequeues(t *testing.T) {
	cpu := NewCPU(0, thread.New(0, 0, "idle", arch.NewGenericContext()))
	th := thread.New(1, 1, "dying", arch.NewGenericContext())
	require.Zero(t, int(cpu.EnqueueReady(th, UserNormal)))

	cpu.ExitTask(th, 7)
	assert.Equal(t, thread.StateZombie, th.State())
	assert.Equal(t, 7, th.ExitCode)
	assert.Equal(t, 0, cpu.ReadyCount(UserNormal))
}
