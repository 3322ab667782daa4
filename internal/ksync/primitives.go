package ksync

import (
	"context"
	"sync/atomic"

	deadlock "github.com/sasha-s/go-deadlock"
)

// Mutex is a blocking (wait-queue-backed) mutex whose Unlock verifies
// ownership and returns an error on violation rather than panicking, per
// spec.md §4.10.
type Mutex struct {
	state   deadlock.Mutex // protects held/owner
	held    bool
	owner   int64
	waiters WaitQueue[int64]
	tickets int64
}

// Lock blocks until the mutex is free, then acquires it for the calling
// "owner" token (an opaque int64 the caller controls, typically derived
// from a Tid_t).
func (m *Mutex) Lock(owner int64) {
	for {
		m.state.Lock()
		if !m.held {
			m.held = true
			m.owner = owner
			m.state.Unlock()
			return
		}
		m.state.Unlock()
		m.waiters.Wait(context.Background(), atomic.AddInt64(&m.tickets, 1))
	}
}

// TryLock attempts to acquire without blocking.
func (m *Mutex) TryLock(owner int64) bool {
	m.state.Lock()
	defer m.state.Unlock()
	if m.held {
		return false
	}
	m.held = true
	m.owner = owner
	return true
}

// Unlock releases the mutex. Returns a *LockErr if owner did not hold it.
func (m *Mutex) Unlock(owner int64) error {
	m.state.Lock()
	if !m.held {
		m.state.Unlock()
		return &LockErr{"Mutex.Unlock", "not held"}
	}
	if m.owner != owner {
		m.state.Unlock()
		return &LockErr{"Mutex.Unlock", "owner mismatch"}
	}
	m.held = false
	m.state.Unlock()
	m.waiters.WakeOne()
	return nil
}

// Semaphore is a counting semaphore built on WaitQueue.
type Semaphore struct {
	state   deadlock.Mutex
	count   int
	waiters WaitQueue[int64]
	tickets int64
}

// NewSemaphore returns a semaphore initialized to n.
func NewSemaphore(n int) *Semaphore { return &Semaphore{count: n} }

// Acquire blocks until a unit is available, then takes it.
func (s *Semaphore) Acquire() {
	for {
		s.state.Lock()
		if s.count > 0 {
			s.count--
			s.state.Unlock()
			return
		}
		s.state.Unlock()
		s.waiters.Wait(context.Background(), atomic.AddInt64(&s.tickets, 1))
	}
}

// TryAcquire attempts to take a unit without blocking.
func (s *Semaphore) TryAcquire() bool {
	s.state.Lock()
	defer s.state.Unlock()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Release returns a unit and wakes one waiter if any is parked.
func (s *Semaphore) Release() {
	s.state.Lock()
	s.count++
	s.state.Unlock()
	s.waiters.WakeOne()
}

// CondVar is a condition variable that must be used alongside an
// external Mutex, in the pthread_cond_t tradition.
type CondVar struct {
	waiters WaitQueue[int64]
	tickets int64
}

// Wait releases mu, blocks until Signal/Broadcast, then reacquires mu.
func (c *CondVar) Wait(mu *Mutex, owner int64) {
	if err := mu.Unlock(owner); err != nil {
		panic(err)
	}
	c.waiters.Wait(context.Background(), atomic.AddInt64(&c.tickets, 1))
	mu.Lock(owner)
}

// Signal wakes a single waiter.
func (c *CondVar) Signal() { c.waiters.WakeOne() }

// Broadcast wakes every waiter.
func (c *CondVar) Broadcast() { c.waiters.WakeAll() }

// RwLock allows any number of concurrent readers or a single writer.
type RwLock struct {
	state     deadlock.Mutex
	readers   int
	writer    bool
	rwaiters  WaitQueue[int64]
	wwaiters  WaitQueue[int64]
	tickets   int64
}

func (l *RwLock) RLock() {
	for {
		l.state.Lock()
		if !l.writer {
			l.readers++
			l.state.Unlock()
			return
		}
		l.state.Unlock()
		l.rwaiters.Wait(context.Background(), atomic.AddInt64(&l.tickets, 1))
	}
}

func (l *RwLock) RUnlock() error {
	l.state.Lock()
	if l.readers == 0 {
		l.state.Unlock()
		return &LockErr{"RwLock.RUnlock", "no reader held"}
	}
	l.readers--
	last := l.readers == 0
	l.state.Unlock()
	if last {
		l.wwaiters.WakeOne()
	}
	return nil
}

func (l *RwLock) Lock() {
	for {
		l.state.Lock()
		if !l.writer && l.readers == 0 {
			l.writer = true
			l.state.Unlock()
			return
		}
		l.state.Unlock()
		l.wwaiters.Wait(context.Background(), atomic.AddInt64(&l.tickets, 1))
	}
}

func (l *RwLock) Unlock() error {
	l.state.Lock()
	if !l.writer {
		l.state.Unlock()
		return &LockErr{"RwLock.Unlock", "not write-held"}
	}
	l.writer = false
	l.state.Unlock()
	if l.wwaiters.WakeOne() {
		return nil
	}
	l.rwaiters.WakeAll()
	return nil
}

// Barrier blocks n goroutines until all n have arrived, then releases
// them together, reusable across generations.
type Barrier struct {
	state   deadlock.Mutex
	n       int
	arrived int
	gen     int64
	waiters WaitQueue[int64]
}

// NewBarrier returns a barrier that releases once n goroutines arrive.
func NewBarrier(n int) *Barrier { return &Barrier{n: n} }

// Wait blocks until n-1 other goroutines have also called Wait.
func (b *Barrier) Wait() {
	b.state.Lock()
	myGen := b.gen
	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.gen++
		b.state.Unlock()
		b.waiters.WakeAll()
		return
	}
	b.state.Unlock()
	for {
		b.waiters.Wait(context.Background(), myGen)
		b.state.Lock()
		done := b.gen != myGen
		b.state.Unlock()
		if done {
			return
		}
	}
}
