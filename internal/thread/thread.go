// Package thread implements the per-thread register state and thread
// table (spec.md §4.7 and the Thread record of spec.md §3). Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/tinfo/tinfo.go's per-thread note table and
// mutex-guarded-struct style, reworked around internal/arch.Context
// instead of biscuit's raw %fs-register TLS trick.
package thread

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/arch"
	"github.com/veridian-os/kernel/internal/ktypes"
)

// State is a thread's scheduling state (spec.md §3).
type State int

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateSleeping
	StateZombie
	StateDead
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateBlocked:
		return "Blocked"
	case StateSleeping:
		return "Sleeping"
	case StateZombie:
		return "Zombie"
	case StateDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// legalTransitions enumerates every State->State edge spec.md §4.6
// allows ("state machine enforced at every transition"); anything not
// listed here (Dead -> Running, for instance) is a kernel bug.
var legalTransitions = map[State]map[State]bool{
	StateReady:    {StateRunning: true, StateZombie: true, StateDead: true},
	StateRunning:  {StateReady: true, StateBlocked: true, StateSleeping: true, StateZombie: true},
	StateBlocked:  {StateReady: true, StateZombie: true},
	StateSleeping: {StateReady: true, StateZombie: true},
	StateZombie:   {StateDead: true},
	StateDead:     {},
}

// BlockReason names what a Blocked thread is waiting on, for
// introspection (/proc-style) and debugging.
type BlockReason string

// Thread is one schedulable unit of execution within a process
// (spec.md §3). A thread belongs to exactly one process for its
// lifetime.
type Thread struct {
	mu deadlock.Mutex

	Tid      ktypes.Tid_t
	Pid      ktypes.Pid_t
	Name     string
	state    State
	Priority int
	Affinity uint64 // CPU affinity mask; scheduler only places on set bits

	Context     arch.Context
	UserStack   uintptr
	KernelStack uintptr
	TLSBase     uintptr

	Detached    bool
	ClearTidPtr uintptr
	ExitCode    int
	BlockedOn   BlockReason

	// SchedNode is an opaque back-pointer to the scheduler's own
	// bookkeeping for this thread (spec.md §3's task_ptr). internal/sched
	// sets and reads it; thread never interprets it, which is what lets
	// this package avoid importing sched.
	SchedNode interface{}

	done chan struct{} // closed exactly once, on entering StateZombie
}

// New creates a thread in state Ready, owning ctx as its register block.
func New(tid ktypes.Tid_t, pid ktypes.Pid_t, name string, ctx arch.Context) *Thread {
	return &Thread{
		Tid:     tid,
		Pid:     pid,
		Name:    name,
		state:   StateReady,
		Context: ctx,
		done:    make(chan struct{}),
	}
}

// Done returns a channel closed when the thread enters StateZombie, for
// thread_join to select on without risking a missed wakeup (spec.md
// §4.7).
func (t *Thread) Done() <-chan struct{} { return t.done }

// State returns the thread's current scheduling state.
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState performs a checked state transition, returning EBADSTATE for
// any edge not in legalTransitions.
func (t *Thread) SetState(next State) ktypes.Err_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !legalTransitions[t.state][next] {
		return ktypes.EBADSTATE
	}
	t.state = next
	if next == StateZombie {
		close(t.done)
	}
	return 0
}

// Block transitions to Blocked, recording why, for a wait-queue-style
// suspension (spec.md §4.8's block_on).
func (t *Thread) Block(reason BlockReason) ktypes.Err_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !legalTransitions[t.state][StateBlocked] {
		return ktypes.EBADSTATE
	}
	t.state = StateBlocked
	t.BlockedOn = reason
	return 0
}
