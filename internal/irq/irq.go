// Package irq implements the interrupt and timer infrastructure (spec.md
// §4.11): a fixed IRQ table keyed by line number with one handler slot
// each, and a timer wheel built above it. Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/msi/msi.go's fixed-pool-of-vectors shape,
// generalized from a single avail-set into per-line handler
// registration, priority, and mask state.
package irq

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// Handler is invoked with the firing line number. Architecture
// delegation (APIC/GIC/PLIC programming) is out of scope per spec.md
// §1 — dispatch only calls the registered Go function.
type Handler func(ktypes.IrqNumber)

type slot struct {
	handler  Handler
	enabled  bool
	pending  bool
	priority int
}

// Manager is the single IRQ table singleton (spec.md §4.10, §4.11),
// guarded by one spin-style mutex since every operation is a short
// critical section.
type Manager struct {
	mu    deadlock.Mutex
	slots map[ktypes.IrqNumber]*slot
}

// NewManager creates an empty IRQ table.
func NewManager() *Manager {
	return &Manager{slots: make(map[ktypes.IrqNumber]*slot)}
}

// RegisterHandler installs h for line, replacing any existing handler.
// The line starts disabled; callers must EnableIrq explicitly.
func (m *Manager) RegisterHandler(line ktypes.IrqNumber, h Handler) ktypes.Err_t {
	if h == nil {
		return ktypes.EINVAL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[line]
	if !ok {
		s = &slot{}
		m.slots[line] = s
	}
	s.handler = h
	return 0
}

// UnregisterHandler clears line's handler and disables it.
func (m *Manager) UnregisterHandler(line ktypes.IrqNumber) ktypes.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[line]
	if !ok {
		return ktypes.ENOENT
	}
	s.handler = nil
	s.enabled = false
	s.pending = false
	return 0
}

// EnableIrq marks line eligible for dispatch.
func (m *Manager) EnableIrq(line ktypes.IrqNumber) ktypes.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[line]
	if !ok {
		return ktypes.ENOENT
	}
	s.enabled = true
	return 0
}

// DisableIrq marks line ineligible; dispatch on a disabled line is a
// silent no-op, matching spurious-interrupt handling.
func (m *Manager) DisableIrq(line ktypes.IrqNumber) ktypes.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[line]
	if !ok {
		return ktypes.ENOENT
	}
	s.enabled = false
	return 0
}

// SetPriority records line's priority. Dispatch does not consult it;
// the value is stored as per-line state only.
func (m *Manager) SetPriority(line ktypes.IrqNumber, priority int) ktypes.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[line]
	if !ok {
		return ktypes.ENOENT
	}
	s.priority = priority
	return 0
}

// IsPending reports whether line has a latched interrupt awaiting
// dispatch.
func (m *Manager) IsPending(line ktypes.IrqNumber) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[line]
	return ok && s.pending
}

// Dispatch simulates an interrupt arriving on line: if no handler is
// registered or the line is disabled, the interrupt is silently
// dropped as spurious (spec.md §4.11). Otherwise the handler runs
// synchronously, the way a real ISR runs on the interrupted CPU's
// stack, and EOI clears pending.
func (m *Manager) Dispatch(line ktypes.IrqNumber) {
	m.mu.Lock()
	s, ok := m.slots[line]
	if !ok || s.handler == nil || !s.enabled {
		if ok {
			s.pending = false
		}
		m.mu.Unlock()
		return
	}
	s.pending = true
	h := s.handler
	m.mu.Unlock()

	h(line)
	m.Eoi(line)
}

// Eoi clears line's pending latch, acknowledging end-of-interrupt.
func (m *Manager) Eoi(line ktypes.IrqNumber) ktypes.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[line]
	if !ok {
		return ktypes.ENOENT
	}
	s.pending = false
	return 0
}
