package ipc

import (
	"github.com/google/uuid"
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/capspace"
	"github.com/veridian-os/kernel/internal/ktypes"
)

// Registry is the IPC subsystem's global singleton (spec.md §4.9.4),
// accessed under a single spin-mutex. It is a process-table-style leaf
// lock: per spec.md §5's lock order, process table -> PCB -> VFS -> IPC
// registry, so the registry is always acquired last.
type Registry struct {
	mu        deadlock.Mutex
	endpoints map[uint64]*Endpoint
	channels  map[uint64]*Channel
	regions   map[uint64]*SharedRegion
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		endpoints: make(map[uint64]*Endpoint),
		channels:  make(map[uint64]*Channel),
		regions:   make(map[uint64]*SharedRegion),
	}
}

// newID mints a fresh 64-bit identifier from a UUID's low bits, the way
// spec.md §3 leaves id generation as an implementation choice (ids must
// only be unique, not sequential or guessable).
func newID() uint64 {
	u := uuid.New()
	hi := uint64(0)
	for _, b := range u[8:16] {
		hi = hi<<8 | uint64(b)
	}
	return hi
}

// CreateEndpoint mints and registers a new endpoint owned by ownerPid.
func (r *Registry) CreateEndpoint(ownerPid ktypes.Pid_t) *Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := newID()
	ep := NewEndpoint(id, ownerPid)
	r.endpoints[id] = ep
	return ep
}

// CreateChannel mints and registers a new channel of the given capacity.
func (r *Registry) CreateChannel(capacity int) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := newID()
	ch := NewChannel(id, id, capacity)
	r.channels[id] = ch
	return ch
}

// CreateSharedRegion mints and registers a new shared region.
func (r *Registry) CreateSharedRegion(size uintptr) *SharedRegion {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := newID()
	sr := NewSharedRegion(id, size)
	r.regions[id] = sr
	return sr
}

// LookupEndpoint returns the endpoint for id, if registered.
func (r *Registry) LookupEndpoint(id uint64) (*Endpoint, ktypes.Err_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.endpoints[id]
	if !ok {
		return nil, ktypes.EINVALCAP
	}
	return ep, 0
}

// LookupChannel returns the channel for id, if registered.
func (r *Registry) LookupChannel(id uint64) (*Channel, ktypes.Err_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, ktypes.EINVALCAP
	}
	return ch, 0
}

// LookupSharedRegion returns the shared region for id, if registered.
func (r *Registry) LookupSharedRegion(id uint64) (*SharedRegion, ktypes.Err_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sr, ok := r.regions[id]
	if !ok {
		return nil, ktypes.EINVALCAP
	}
	return sr, 0
}

// RemoveEndpoint unregisters an endpoint outright.
func (r *Registry) RemoveEndpoint(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, id)
}

// RemoveChannel unregisters a channel outright.
func (r *Registry) RemoveChannel(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
}

// RemoveProcessEndpoints tears down every endpoint owned by pid, called
// on process exit (spec.md §4.9.4).
func (r *Registry) RemoveProcessEndpoints(pid ktypes.Pid_t) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, ep := range r.endpoints {
		if ep.OwnerPid == pid {
			delete(r.endpoints, id)
			n++
		}
	}
	return n
}

// ValidateCapability performs the two-level check spec.md §4.9.4
// names: level 1 confirms the registry holds an object of the
// expected kind at ref.ID; level 2 confirms the calling process's
// capability space holds token, resolves to the same object, and
// carries the required rights. Both must succeed.
func ValidateCapability(reg *Registry, space *capspace.Space, token capspace.Token, required ktypes.Rights) (ktypes.ObjectRef, ktypes.Err_t) {
	entry, err := space.Lookup(token)
	if err != 0 {
		return ktypes.ObjectRef{}, err
	}
	if !entry.Rights.Has(required) {
		return ktypes.ObjectRef{}, ktypes.EACCES
	}

	switch entry.Object.Kind {
	case ktypes.ObjEndpoint:
		if _, eerr := reg.LookupEndpoint(entry.Object.ID); eerr != 0 {
			return ktypes.ObjectRef{}, ktypes.EINVALCAP
		}
	case ktypes.ObjChannel:
		if _, eerr := reg.LookupChannel(entry.Object.ID); eerr != 0 {
			return ktypes.ObjectRef{}, ktypes.EINVALCAP
		}
	case ktypes.ObjMemory:
		if _, eerr := reg.LookupSharedRegion(entry.Object.ID); eerr != 0 {
			return ktypes.ObjectRef{}, ktypes.EINVALCAP
		}
	}
	return entry.Object, 0
}
