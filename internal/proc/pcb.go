// Package proc implements the process control block, the global
// process table, and fork/exec/wait/exit/signal operations (spec.md
// §3's Process record, §4.6, §4.12). Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/fd/fd.go (Cwd_t, per-process fd table,
// Copyfd on fork) and _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/accnt/accnt.go's
// mutex-guarded-struct style.
package proc

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/capspace"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/thread"
	"github.com/veridian-os/kernel/internal/vm"
)

// State is a process's lifecycle state (spec.md §3).
type State int

const (
	StateCreating State = iota
	StateReady
	StateRunning
	StateBlocked
	StateSleeping
	StateZombie
	StateDead
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "Creating"
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

var legalTransitions = map[State]map[State]bool{
	StateCreating: {StateReady: true},
	StateReady:    {StateRunning: true, StateZombie: true},
	StateRunning:  {StateReady: true, StateBlocked: true, StateSleeping: true, StateZombie: true},
	StateBlocked:  {StateReady: true, StateZombie: true},
	StateSleeping: {StateReady: true, StateZombie: true},
	StateZombie:   {StateDead: true},
	StateDead:     {},
}

// SignalHandler is one entry of a process's per-signal handler table
// (spec.md §4.12).
type SignalHandler struct {
	Disposition Disposition
	UserFn      uintptr // meaningful only when Disposition == DispositionHandler
}

// Disposition selects what happens when a pending signal is delivered.
type Disposition int

const (
	DispositionDefault Disposition = iota
	DispositionIgnore
	DispositionHandler
)

// PCB is one process's control block (spec.md §3). Lock order: a PCB's
// own mutex guards its scalar fields and maps; Mem and Caps have their
// own locks one level below it (spec.md §5: process table -> PCB ->
// memory|capability|file -> VFS -> IPC registry).
type PCB struct {
	mu deadlock.Mutex

	Pid       ktypes.Pid_t
	ParentPid ktypes.Pid_t
	Name      string
	state     State
	Priority  int
	Uid, Gid  uint32
	Pgid, Sid ktypes.Pid_t

	Mem   *vm.AddressSpace
	Caps  *capspace.Space
	Files *FileTable

	EnvVars  map[string]string
	Cwd      string
	Children []ktypes.Pid_t
	Threads  map[ktypes.Tid_t]*thread.Thread

	PendingSignals uint32
	SignalHandlers [ktypes.NSIG]SignalHandler

	ExitCode int

	// waiters is woken by exit() and polled by wait(); it is a plain
	// channel rather than a ksync.WaitQueue because wait() needs to
	// block on "any child", a condition ksync's key-based wake does not
	// express directly.
	waiters chan struct{}
}

func newPCB(pid, parentPid ktypes.Pid_t, name string, mem *vm.AddressSpace, caps *capspace.Space) *PCB {
	return &PCB{
		Pid:       pid,
		ParentPid: parentPid,
		Name:      name,
		state:     StateCreating,
		Mem:       mem,
		Caps:      caps,
		Files:     NewFileTable(),
		EnvVars:   make(map[string]string),
		Cwd:       "/",
		Threads:   make(map[ktypes.Tid_t]*thread.Thread),
		waiters:   make(chan struct{}, 1),
	}
}

// State returns the process's current lifecycle state.
func (p *PCB) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState performs a checked lifecycle transition.
func (p *PCB) SetState(next State) ktypes.Err_t {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !legalTransitions[p.state][next] {
		return ktypes.EBADSTATE
	}
	p.state = next
	return 0
}

func (p *PCB) notifyWaiters() {
	select {
	case p.waiters <- struct{}{}:
	default:
	}
}
