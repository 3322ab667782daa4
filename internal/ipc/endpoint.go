package ipc

import (
	"context"
	"sync"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// Endpoint is a synchronous IPC rendezvous point (spec.md §3, §4.9.1).
// send/receive are direct handoffs when a peer is already waiting,
// otherwise the caller genuinely blocks (this hosted simulation parks
// a real goroutine on a channel rather than a kernel thread on a wait
// queue, since there is no bare-metal scheduler to suspend).
type Endpoint struct {
	ID       uint64
	OwnerPid ktypes.Pid_t

	mu          sync.Mutex
	sendWaiters []*sendWaiter
	recvWaiters []*recvWaiter
}

type sendWaiter struct {
	msg Message
	ack chan struct{}
}

type recvWaiter struct {
	ch chan Message
}

// NewEndpoint creates an endpoint owned by ownerPid.
func NewEndpoint(id uint64, ownerPid ktypes.Pid_t) *Endpoint {
	return &Endpoint{ID: id, OwnerPid: ownerPid}
}

// Send delivers msg, handing it directly to a waiting receiver if one
// exists, otherwise blocking the caller on the send queue until a
// receiver arrives or ctx is canceled. FIFO order is preserved within
// the send queue (spec.md §5's ordering guarantee).
func (e *Endpoint) Send(ctx context.Context, msg Message) ktypes.Err_t {
	e.mu.Lock()
	if n := len(e.recvWaiters); n > 0 {
		rw := e.recvWaiters[0]
		e.recvWaiters = e.recvWaiters[1:]
		e.mu.Unlock()
		rw.ch <- msg
		return 0
	}

	sw := &sendWaiter{msg: msg, ack: make(chan struct{})}
	e.sendWaiters = append(e.sendWaiters, sw)
	e.mu.Unlock()

	select {
	case <-sw.ack:
		return 0
	case <-ctx.Done():
		e.mu.Lock()
		e.removeSendWaiter(sw)
		e.mu.Unlock()
		return ktypes.EINTR
	}
}

// Receive returns the next message, taking it directly from a waiting
// sender if one exists, otherwise blocking until one arrives or ctx is
// canceled.
func (e *Endpoint) Receive(ctx context.Context) (Message, ktypes.Err_t) {
	e.mu.Lock()
	if n := len(e.sendWaiters); n > 0 {
		sw := e.sendWaiters[0]
		e.sendWaiters = e.sendWaiters[1:]
		e.mu.Unlock()
		close(sw.ack)
		return sw.msg, 0
	}

	rw := &recvWaiter{ch: make(chan Message, 1)}
	e.recvWaiters = append(e.recvWaiters, rw)
	e.mu.Unlock()

	select {
	case m := <-rw.ch:
		return m, 0
	case <-ctx.Done():
		e.mu.Lock()
		e.removeRecvWaiter(rw)
		e.mu.Unlock()
		return Message{}, ktypes.EINTR
	}
}

func (e *Endpoint) removeSendWaiter(target *sendWaiter) {
	for i, w := range e.sendWaiters {
		if w == target {
			e.sendWaiters = append(e.sendWaiters[:i], e.sendWaiters[i+1:]...)
			return
		}
	}
}

func (e *Endpoint) removeRecvWaiter(target *recvWaiter) {
	for i, w := range e.recvWaiters {
		if w == target {
			e.recvWaiters = append(e.recvWaiters[:i], e.recvWaiters[i+1:]...)
			return
		}
	}
}

// SendQueueLen and RecvQueueLen report waiter counts, for tests and
// /proc-style introspection.
func (e *Endpoint) SendQueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sendWaiters)
}

func (e *Endpoint) RecvQueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.recvWaiters)
}
