// Package ksync provides the kernel's synchronization primitives: a
// single-initialization container for global singletons, a FIFO wait
// queue, and the Mutex/Semaphore/CondVar/RwLock/Barrier family built
// above it, per spec.md §4.10. Every lock type embeds deadlock.Mutex
// (github.com/sasha-s/go-deadlock) instead of sync.Mutex so the lock
// order spec.md §5 documents (process table → PCB → VFS → IPC registry)
// is checked at runtime rather than only in a comment — the same
// discipline lazydocker applies across its whole command layer.
//
// Lock order (spec.md §5): process table -> PCB (memory | capability |
// file) -> VFS -> IPC registry. Never acquire a lock higher in this list
// while holding one lower.
package ksync

import (
	"fmt"

	deadlock "github.com/sasha-s/go-deadlock"
)

// GlobalState is a single-initialization container for a process-wide
// singleton. The kernel's own singletons (IPC registry, VFS, process
// table, IRQ manager, timer wheel) do not use it: each is constructed
// directly and guards itself with its own mutex. Mirrors biscuit's accnt.Accnt_t pattern of an
// embedded mutex plus accessor methods, generalized to gate first use.
type GlobalState[T any] struct {
	mu       deadlock.Mutex
	val      T
	hasValue bool
}

// Init sets the contained value. A second call returns EBADSTATE-shaped
// error via the boolean return instead of panicking, matching spec.md
// §7 ("no kernel-level panics for recoverable errors").
func (g *GlobalState[T]) Init(v T) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hasValue {
		return false
	}
	g.val = v
	g.hasValue = true
	return true
}

// Initialized reports whether Init has succeeded.
func (g *GlobalState[T]) Initialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasValue
}

// With lends the contained value to f under the lock for reading.
func (g *GlobalState[T]) With(f func(v T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasValue {
		panic("ksync: GlobalState.With before Init")
	}
	f(g.val)
}

// WithMut lends a pointer to the contained value to f under the lock.
func (g *GlobalState[T]) WithMut(f func(v *T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasValue {
		panic("ksync: GlobalState.WithMut before Init")
	}
	f(&g.val)
}

// SpinMutex is an unfair test-and-set style lock for short critical
// sections, per spec.md §4.10. It must never be held across a scheduler
// block; callers that violate this will deadlock, which deadlock.Mutex
// will report instead of hanging silently.
type SpinMutex struct {
	mu deadlock.Mutex
}

func (s *SpinMutex) Lock()   { s.mu.Lock() }
func (s *SpinMutex) Unlock() { s.mu.Unlock() }

// TryLock attempts to acquire without blocking.
func (s *SpinMutex) TryLock() bool { return s.mu.TryLock() }

// LockErr is returned by unlock operations that find a violated
// ownership invariant, per spec.md §4.10 ("verifies ownership and
// returns an error on violation rather than panicking").
type LockErr struct {
	Op  string
	Why string
}

func (e *LockErr) Error() string { return fmt.Sprintf("ksync: %s: %s", e.Op, e.Why) }
