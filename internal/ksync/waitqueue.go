package ksync

import (
	"context"

	deadlock "github.com/sasha-s/go-deadlock"
)

// waiter is one parked goroutine's wake channel, tagged with the key
// (typically a Tid_t) spec.md §4.10 calls the "(pid, tid)" queue entry.
type waiter[K comparable] struct {
	key K
	ch  chan struct{}
}

// WaitQueue is the FIFO blocking primitive every higher-level
// synchronization type (Mutex, Semaphore, CondVar, RwLock, Barrier) and
// every blocking IPC operation (spec.md §4.9) is built on. A goroutine
// calling Wait parks on a private channel instead of busy-looping, the
// hosted-simulation analogue of the scheduler moving a thread to
// Blocked and switching away.
type WaitQueue[K comparable] struct {
	mu      deadlock.Mutex
	waiters []*waiter[K]
}

// Wait enqueues the calling goroutine (tagged with key) at the tail of
// the queue and blocks until woken or ctx is done. Returns false if ctx
// expired first, the hosted analogue of an EINTR-style interrupted
// syscall (spec.md §5 "Cancellation").
func (q *WaitQueue[K]) Wait(ctx context.Context, key K) bool {
	w := &waiter[K]{key: key, ch: make(chan struct{})}
	q.mu.Lock()
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case <-w.ch:
		return true
	case <-ctx.Done():
		q.remove(w)
		return false
	}
}

func (q *WaitQueue[K]) remove(target *waiter[K]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiters {
		if w == target {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

// WakeOne wakes the longest-waiting goroutine, if any, and reports
// whether one was woken.
func (q *WaitQueue[K]) WakeOne() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiters) == 0 {
		return false
	}
	w := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(w.ch)
	return true
}

// WakeAll wakes every currently-parked goroutine.
func (q *WaitQueue[K]) WakeAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.waiters)
	for _, w := range q.waiters {
		close(w.ch)
	}
	q.waiters = nil
	return n
}

// WakeKey wakes every waiter whose tag equals key (used by
// wake_up_process: a process can have several threads parked on the
// same wait channel id). Returns the count woken.
func (q *WaitQueue[K]) WakeKey(key K) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.waiters[:0:0]
	n := 0
	for _, w := range q.waiters {
		if w.key == key {
			close(w.ch)
			n++
		} else {
			kept = append(kept, w)
		}
	}
	q.waiters = kept
	return n
}

// Len reports the number of currently-parked waiters.
func (q *WaitQueue[K]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}
