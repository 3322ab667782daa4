package irq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/ktypes"
)

func TestRegisterEnableDispatchInvokesHandler(t *testing.T) {
	m := NewManager()
	var fired ktypes.IrqNumber
	require.Equal(t, ktypes.Err_t(0), m.RegisterHandler(5, func(n ktypes.IrqNumber) { fired = n }))
	require.Equal(t, ktypes.Err_t(0), m.EnableIrq(5))

	m.Dispatch(5)
	assert.Equal(t, ktypes.IrqNumber(5), fired)
	assert.False(t, m.IsPending(5))
}

func TestDispatchOnUnregisteredLineIsSilentlyIgnored(t *testing.T) {
	m := NewManager()
	assert.NotPanics(t, func() { m.Dispatch(99) })
}

func TestDispatchOnDisabledLineIsSpurious(t *testing.T) {
	m := NewManager()
	called := false
	require.Equal(t, ktypes.Err_t(0), m.RegisterHandler(1, func(ktypes.IrqNumber) { called = true }))
	// Never enabled.
	m.Dispatch(1)
	assert.False(t, called)
}

func TestUnregisterHandlerDisablesLine(t *testing.T) {
	m := NewManager()
	called := false
	require.Equal(t, ktypes.Err_t(0), m.RegisterHandler(2, func(ktypes.IrqNumber) { called = true }))
	require.Equal(t, ktypes.Err_t(0), m.EnableIrq(2))
	require.Equal(t, ktypes.Err_t(0), m.UnregisterHandler(2))

	m.Dispatch(2)
	assert.False(t, called)
}

func TestSetPriorityAndIsPendingOnMissingLine(t *testing.T) {
	m := NewManager()
	assert.Equal(t, ktypes.ENOENT, m.SetPriority(7, 3))
	assert.False(t, m.IsPending(7))
}

func TestCreateTimerFiresOneShotAndRetires(t *testing.T) {
	w := NewWheel()
	fireCount := 0
	id, err := w.CreateTimer(TimerOneShot, 100, func(int) { fireCount++ })
	require.Equal(t, ktypes.Err_t(0), err)
	require.True(t, w.Active(id))

	w.TimerTick(50)
	assert.Equal(t, 0, fireCount)
	assert.True(t, w.Active(id))

	w.TimerTick(60)
	assert.Equal(t, 1, fireCount)
	assert.False(t, w.Active(id))

	w.TimerTick(1000)
	assert.Equal(t, 1, fireCount)
}

func TestPeriodicTimerReloadsWithOvershootAccounting(t *testing.T) {
	w := NewWheel()
	fireCount := 0
	id, err := w.CreateTimer(TimerPeriodic, 100, func(int) { fireCount++ })
	require.Equal(t, ktypes.Err_t(0), err)

	w.TimerTick(120) // fires once, 20ms overshoot
	assert.Equal(t, 1, fireCount)
	assert.True(t, w.Active(id))

	w.TimerTick(80) // remaining was 80ms, exactly expires
	assert.Equal(t, 2, fireCount)
}

func TestCancelTimerFreesSlot(t *testing.T) {
	w := NewWheel()
	id, err := w.CreateTimer(TimerOneShot, 1000, func(int) {})
	require.Equal(t, ktypes.Err_t(0), err)
	require.Equal(t, ktypes.Err_t(0), w.CancelTimer(id))
	assert.False(t, w.Active(id))
	assert.Equal(t, ktypes.ENOENT, w.CancelTimer(id))
}

func TestCreateTimerPoolExhaustionReturnsERESOURCE(t *testing.T) {
	w := NewWheel()
	for i := 0; i < MaxTimers; i++ {
		_, err := w.CreateTimer(TimerOneShot, 1000, func(int) {})
		require.Equal(t, ktypes.Err_t(0), err)
	}
	_, err := w.CreateTimer(TimerOneShot, 1000, func(int) {})
	assert.Equal(t, ktypes.ERESOURCE, err)
}

func TestUptimeAccumulatesAcrossTicks(t *testing.T) {
	w := NewWheel()
	w.TimerTick(10)
	w.TimerTick(15)
	assert.Equal(t, uint64(25), w.UptimeMs())
}
