package irq

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// MaxTimers is the fixed size of the timer pool. There is no separate array of wheel slots: TimerTick
// scans every pool entry on each tick.
const MaxTimers = 256

// TimerMode selects one-shot vs. periodic reload behavior.
type TimerMode int

const (
	TimerOneShot TimerMode = iota
	TimerPeriodic
)

// TimerCallback runs in interrupt context (synchronously, from
// TimerTick) and must not block.
type TimerCallback func(id int)

type timerSlot struct {
	occupied  bool
	mode      TimerMode
	intervalMs int64
	remainingMs int64
	callback  TimerCallback
}

// Wheel is the fixed-pool timer singleton (spec.md §4.11).
type Wheel struct {
	mu      deadlock.Mutex
	timers  [MaxTimers]timerSlot
	free    []int
	uptimeMs uint64
}

// NewWheel creates an empty timer wheel with all MaxTimers slots free.
func NewWheel() *Wheel {
	w := &Wheel{free: make([]int, 0, MaxTimers)}
	for i := MaxTimers - 1; i >= 0; i-- {
		w.free = append(w.free, i)
	}
	return w
}

// CreateTimer allocates a slot from the pool and arms it. Returns
// ERESOURCE if the pool is exhausted.
func (w *Wheel) CreateTimer(mode TimerMode, intervalMs int64, cb TimerCallback) (int, ktypes.Err_t) {
	if intervalMs <= 0 || cb == nil {
		return -1, ktypes.EINVAL
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.free)
	if n == 0 {
		return -1, ktypes.ERESOURCE
	}
	id := w.free[n-1]
	w.free = w.free[:n-1]
	w.timers[id] = timerSlot{
		occupied:    true,
		mode:        mode,
		intervalMs:  intervalMs,
		remainingMs: intervalMs,
		callback:    cb,
	}
	return id, 0
}

// CancelTimer frees id's slot. A timer whose cancellation races with
// its own firing may fire once more (spec.md §5's cancellation note) —
// TimerTick snapshots callbacks before releasing the lock, so a
// concurrent CancelTimer cannot suppress an in-flight firing.
func (w *Wheel) CancelTimer(id int) ktypes.Err_t {
	if id < 0 || id >= MaxTimers {
		return ktypes.EINVAL
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.timers[id].occupied {
		return ktypes.ENOENT
	}
	w.timers[id] = timerSlot{}
	w.free = append(w.free, id)
	return 0
}

// TimerTick advances every armed timer by elapsedMs, firing and
// reloading/retiring any that expire, and bumps the monotonic uptime
// counter. Callbacks are invoked outside the wheel's lock so they may
// themselves call CreateTimer/CancelTimer without deadlocking.
func (w *Wheel) TimerTick(elapsedMs int64) {
	w.mu.Lock()
	w.uptimeMs += uint64(elapsedMs)

	var fired []TimerCallback
	var firedIDs []int
	for id := range w.timers {
		s := &w.timers[id]
		if !s.occupied {
			continue
		}
		s.remainingMs -= elapsedMs
		if s.remainingMs > 0 {
			continue
		}
		fired = append(fired, s.callback)
		firedIDs = append(firedIDs, id)
		switch s.mode {
		case TimerOneShot:
			*s = timerSlot{}
			w.free = append(w.free, id)
		case TimerPeriodic:
			// Reload accounting for overshoot: a tick that overruns the
			// interval by N ms leaves the next period N ms shorter
			// rather than drifting the wheel's overall cadence.
			overshoot := -s.remainingMs
			s.remainingMs = s.intervalMs - overshoot%s.intervalMs
		}
	}
	w.mu.Unlock()

	for i, cb := range fired {
		cb(firedIDs[i])
	}
}

// UptimeMs reports the monotonic tick counter.
func (w *Wheel) UptimeMs() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.uptimeMs
}

// Active reports whether id names a currently-armed timer.
func (w *Wheel) Active(id int) bool {
	if id < 0 || id >= MaxTimers {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timers[id].occupied
}
