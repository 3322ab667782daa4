// Package sched implements the per-CPU scheduler: ready queues by
// priority class, round-robin within a class, strict priority
// preemption across classes (spec.md §4.8). Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/tinfo/tinfo.go for the per-thread
// bookkeeping style and gVisor pkg/sentry/kernel's per-CPU run-queue
// shape, reworked to hold real *thread.Thread values instead of
// biscuit's goroutine-is-the-thread model, since this is a hosted
// simulation of the scheduler's data structures rather than a live
// preemptive kernel (spec.md §1: kernel core only, no user-code
// execution in scope).
package sched

import (
	deadlock "github.com/sasha-s/go-deadlock"
	"github.com/samber/lo"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/thread"
)

// Priority is one of the eight scheduling classes of spec.md §4.8, in
// descending priority order.
type Priority int

const (
	RealTimeHigh Priority = iota
	RealTimeLow
	SystemHigh
	SystemLow
	UserHigh
	UserNormal
	UserLow
	Idle
	numPriorities
)

// DefaultTimeSlice is the round-robin quantum within a priority class,
// in scheduler ticks.
const DefaultTimeSlice = 10

// node is the scheduler's private bookkeeping for a thread, referenced
// from thread.Thread.SchedNode as an opaque back-pointer.
type node struct {
	th       *thread.Thread
	priority Priority
	slice    int
}

// CPU is one processor's run-queue state (spec.md §4.8's "per-CPU
// structure"). All operations on a CPU must be called with its lock
// held — in this hosted model that means through the CPU's own methods,
// which take the lock internally, mirroring "invoked with IRQs disabled
// and scheduler locked".
type CPU struct {
	id    int
	mu    deadlock.Mutex
	ready [numPriorities][]*node
	idle  *node
	cur   *node
}

// NewCPU creates an empty per-CPU scheduler state with idleTask parked
// as the Idle-priority task run when nothing else is ready.
func NewCPU(id int, idleTask *thread.Thread) *CPU {
	idleNode := &node{th: idleTask, priority: Idle}
	idleTask.SchedNode = idleNode
	_ = idleTask.SetState(thread.StateRunning)
	return &CPU{id: id, idle: idleNode, cur: idleNode}
}

func cpuBit(id int) uint64 { return 1 << uint(id) }

// EnqueueReady places th on this CPU's ready queue for its priority,
// provided th's affinity mask allows this CPU (spec.md §4.8's affinity
// rule). th must already be in state Ready.
func (c *CPU) EnqueueReady(th *thread.Thread, priority Priority) ktypes.Err_t {
	if th.Affinity != 0 && th.Affinity&cpuBit(c.id) == 0 {
		return ktypes.EINVAL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := th.SchedNode.(*node)
	if !ok || n == nil {
		n = &node{th: th}
		th.SchedNode = n
	}
	n.priority = priority
	n.slice = DefaultTimeSlice
	c.ready[priority] = append(c.ready[priority], n)
	return 0
}

// Dequeue removes th from whichever ready queue currently holds it,
// used when a thread's affinity or priority changes out from under it.
func (c *CPU) Dequeue(th *thread.Thread) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := th.SchedNode.(*node)
	if !ok {
		return false
	}
	q := c.ready[n.priority]
	idx := lo.IndexOf(q, n)
	if idx < 0 {
		return false
	}
	c.ready[n.priority] = append(q[:idx], q[idx+1:]...)
	return true
}

// Current returns the thread currently running on this CPU (possibly
// the idle task).
func (c *CPU) Current() *thread.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.th
}

// pickNextLocked selects the highest-priority non-empty queue's head,
// falling back to idle. Caller holds c.mu.
func (c *CPU) pickNextLocked() *node {
	for p := RealTimeHigh; p < numPriorities; p++ {
		if len(c.ready[p]) > 0 {
			n := c.ready[p][0]
			c.ready[p] = c.ready[p][1:]
			return n
		}
	}
	return c.idle
}

// YieldCPU places the current task at the tail of its class (if it is
// still Ready-eligible) and switches to the highest-priority ready
// task, per spec.md §4.8.
func (c *CPU) YieldCPU() *thread.Thread {
	c.mu.Lock()
	prev := c.cur
	if prev != c.idle && prev.th.State() == thread.StateRunning {
		prev.th.SetState(thread.StateReady)
		prev.slice = DefaultTimeSlice
		c.ready[prev.priority] = append(c.ready[prev.priority], prev)
	}
	next := c.pickNextLocked()
	c.cur = next
	c.mu.Unlock()
	next.th.SetState(thread.StateRunning)
	return next.th
}

// BlockOn transitions the current task to Blocked (recording reason)
// and switches away, per spec.md §4.8's block_on.
func (c *CPU) BlockOn(reason thread.BlockReason) *thread.Thread {
	c.mu.Lock()
	prev := c.cur
	c.mu.Unlock()
	prev.th.Block(reason)
	c.mu.Lock()
	next := c.pickNextLocked()
	c.cur = next
	c.mu.Unlock()
	next.th.SetState(thread.StateRunning)
	return next.th
}

// WakeUp moves th from Blocked/Sleeping back to Ready and enqueues it,
// the shared core of spec.md §4.8's wake_up_process and
// wake_up_endpoint_waiters (both just need "make this blocked thread
// ready again").
func (c *CPU) WakeUp(th *thread.Thread) ktypes.Err_t {
	if err := th.SetState(thread.StateReady); err != 0 {
		return err
	}
	n, ok := th.SchedNode.(*node)
	priority := UserNormal
	if ok && n != nil {
		priority = n.priority
	}
	return c.EnqueueReady(th, priority)
}

// ExitTask marks th Zombie and detaches it from scheduling. If th is
// the currently running task on this CPU, the caller must still switch
// away (ExitTask never returns control to th, per spec.md §4.8, but in
// this hosted model "never returns" is the caller's responsibility
// since there is no real instruction pointer to abandon).
func (c *CPU) ExitTask(th *thread.Thread, code int) {
	c.Dequeue(th)
	th.ExitCode = code
	// A running thread transitions Running -> Zombie; anything else
	// (Ready, Blocked, Sleeping) also permits -> Zombie per thread's
	// legal-transition table.
	_ = th.SetState(thread.StateZombie)
}

// ReadyCount reports how many tasks are waiting in each priority class,
// for /proc-style introspection and tests.
func (c *CPU) ReadyCount(p Priority) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ready[p])
}
