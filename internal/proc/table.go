package proc

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/bootcfg"
	"github.com/veridian-os/kernel/internal/capspace"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
	"github.com/veridian-os/kernel/internal/vm"
)

// InitPid is the reserved pid of the init process; exit() reparents
// orphaned children to it (spec.md §4.6).
const InitPid ktypes.Pid_t = 1

// Table is the global, pid-keyed process table (spec.md §3: "the
// process table exclusively owns PCBs"). Capacity is bounded by
// MaxProcesses, counting zombies, matching spec.md §4.6.
type Table struct {
	mu           deadlock.Mutex
	procs        map[ktypes.Pid_t]*PCB
	nextPid      ktypes.Pid_t
	maxProcesses int
	frames       *mem.Allocator
}

// NewTable creates an empty process table sized by cfg.
func NewTable(cfg bootcfg.Config, frames *mem.Allocator) *Table {
	return &Table{
		procs:        make(map[ktypes.Pid_t]*PCB),
		nextPid:      InitPid,
		maxProcesses: cfg.MaxProcesses,
		frames:       frames,
	}
}

// Create inserts a brand-new process (used to bootstrap init and for
// the non-fork half of process creation); it does not enforce the same
// ancestry bookkeeping fork() does.
func (t *Table) Create(name string) (*PCB, ktypes.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.procs) >= t.maxProcesses {
		return nil, ktypes.ERESOURCE
	}
	pid := t.nextPid
	t.nextPid++

	cow := vm.NewCoWTable(t.frames)
	as := vm.NewAddressSpace(t.frames, cow)
	pcb := newPCB(pid, 0, name, as, capspace.New())
	pcb.state = StateReady
	t.procs[pid] = pcb
	return pcb, 0
}

// Get returns the PCB for pid, if it is still live in the table.
func (t *Table) Get(pid ktypes.Pid_t) (*PCB, ktypes.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	if !ok {
		return nil, ktypes.ESRCH
	}
	return p, 0
}

// Count reports the number of live entries (including zombies).
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.procs)
}

// remove deletes pid from the table outright (used by reap, after a
// zombie has been waited on).
func (t *Table) remove(pid ktypes.Pid_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, pid)
}

func (t *Table) insertChild(pid ktypes.Pid_t, pcb *PCB) ktypes.Err_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.procs) >= t.maxProcesses {
		return ktypes.ERESOURCE
	}
	t.procs[pid] = pcb
	return 0
}

// Pids returns every live pid in the table, in no particular order; used
// by procfs to enumerate /proc entries.
func (t *Table) Pids() []ktypes.Pid_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	pids := make([]ktypes.Pid_t, 0, len(t.procs))
	for pid := range t.procs {
		pids = append(pids, pid)
	}
	return pids
}

func (t *Table) allocPid() ktypes.Pid_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	pid := t.nextPid
	t.nextPid++
	return pid
}
