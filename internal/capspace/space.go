package capspace

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// Space is one process's capability table (spec.md §4.5). It is always
// the leaf-most lock on a PCB's sub-locks (memory | capability | file)
// per spec.md §5's lock order — never acquire another PCB's Space while
// holding this one.
type Space struct {
	mu      deadlock.Mutex
	entries []Entry
	free    []int // indices available for reuse, generation already bumped
}

// New creates an empty capability space with slot 0 pre-reserved, so
// Token(0) stays equal to Invalid for the life of the space: Insert's
// first real allocation lands on slot 1, never slot 0.
func New() *Space {
	return &Space{entries: []Entry{{}}}
}

// Insert mints a new capability for obj with the given rights, reusing
// a freed slot (bumping its generation) when one is available.
func (s *Space) Insert(obj ktypes.ObjectRef, rights ktypes.Rights, inheritFork, inheritExec bool) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		e := &s.entries[idx]
		e.Object = obj
		e.Rights = rights
		e.InheritableFork = inheritFork
		e.InheritableExec = inheritExec
		e.occupied = true
		return makeToken(idx, e.generation)
	}

	idx := len(s.entries)
	s.entries = append(s.entries, Entry{
		Object:          obj,
		Rights:          rights,
		InheritableFork: inheritFork,
		InheritableExec: inheritExec,
		occupied:        true,
	})
	return makeToken(idx, 0)
}

// Lookup returns the entry named by token, only if the index is in
// range, occupied, and the generation matches (spec.md §4.5).
func (s *Space) Lookup(t Token) (Entry, ktypes.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(t)
}

func (s *Space) lookupLocked(t Token) (Entry, ktypes.Err_t) {
	idx := t.index()
	if idx < 0 || idx >= len(s.entries) {
		return Entry{}, ktypes.EINVALCAP
	}
	e := s.entries[idx]
	if !e.occupied || e.generation != t.generation() {
		return Entry{}, ktypes.EINVALCAP
	}
	return e, 0
}

// CheckRights is lookup + bit-test composed, per spec.md §4.5.
func (s *Space) CheckRights(t Token, required ktypes.Rights) ktypes.Err_t {
	e, err := s.Lookup(t)
	if err != 0 {
		return err
	}
	if !e.Rights.Has(required) {
		return ktypes.EACCES
	}
	return 0
}

// Derive mints a new token for the same object as t, with rights that
// must be a subset of t's rights — never a superset (spec.md §4.5,
// §8 property test 4).
func (s *Space) Derive(t Token, subsetRights ktypes.Rights) (Token, ktypes.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, err := s.lookupLocked(t)
	if err != 0 {
		return Invalid, err
	}
	if !subsetRights.Subset(parent.Rights) {
		return Invalid, ktypes.EACCES
	}

	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		e := &s.entries[idx]
		e.Object = parent.Object
		e.Rights = subsetRights
		e.InheritableFork = parent.InheritableFork
		e.InheritableExec = parent.InheritableExec
		e.occupied = true
		return makeToken(idx, e.generation), 0
	}
	idx := len(s.entries)
	s.entries = append(s.entries, Entry{
		Object:          parent.Object,
		Rights:          subsetRights,
		InheritableFork: parent.InheritableFork,
		InheritableExec: parent.InheritableExec,
		occupied:        true,
	})
	return makeToken(idx, 0), 0
}

// Revoke invalidates token's slot: bumps its generation and clears the
// entry, so every other token pointing at the old generation now
// resolves to EINVALCAP (spec.md §4.5's "broadcasts revocation").
func (s *Space) Revoke(t Token) ktypes.Err_t {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := t.index()
	if idx < 0 || idx >= len(s.entries) {
		return ktypes.EINVALCAP
	}
	e := &s.entries[idx]
	if !e.occupied || e.generation != t.generation() {
		return ktypes.EINVALCAP
	}
	e.occupied = false
	e.generation++
	e.Object = ktypes.ObjectRef{}
	e.Rights = 0
	s.free = append(s.free, idx)
	return 0
}

// inheritSelector picks InheritableFork or InheritableExec, the single
// parameterized clone path spec.md §9's design note asks for instead of
// two near-duplicate methods.
type inheritSelector func(Entry) bool

func forkInherited(e Entry) bool { return e.InheritableFork }
func execInherited(e Entry) bool { return e.InheritableExec }

// cloneFrom populates an (empty) Space by copying every entry of other
// that sel selects, preserving each entry's slot index so tokens the
// new process already holds (e.g. passed via an inherited register)
// would still resolve — though in practice only fork/exec call this on
// a fresh Space (spec.md §4.5: clone_from).
func (s *Space) cloneFrom(other *Space, sel inheritSelector) {
	other.mu.Lock()
	defer other.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]Entry, len(other.entries))
	s.free = nil
	for i, e := range other.entries {
		switch {
		case i == 0:
			s.entries[i] = Entry{} // slot 0 stays reserved, never reused
		case e.occupied && sel(e):
			s.entries[i] = e
		default:
			s.entries[i] = Entry{generation: e.generation}
			s.free = append(s.free, i)
		}
	}
}

// CloneForFork copies every fork-inheritable entry, used by
// internal/proc's fork operation (spec.md §4.6).
func (s *Space) CloneForFork(parent *Space) { s.cloneFrom(parent, forkInherited) }

// CloneForExec copies every exec-inheritable entry, used by
// internal/proc's exec operation (spec.md §4.6); exec builds this into
// a fresh Space rather than mutating the caller's in place.
func (s *Space) CloneForExec(current *Space) { s.cloneFrom(current, execInherited) }

// Len reports the number of slots ever allocated (occupied or freed),
// for /proc-style introspection.
func (s *Space) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
