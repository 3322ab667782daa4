package arch

// PerCPU holds one T per logical CPU, the hosted analogue of CPU-local
// storage (spec.md §2's HAL share). Callers pass the CPU index
// explicitly rather than relying on an implicit "current CPU" hook —
// the teacher's runtime.Gptr/runtime.CPUHint trick requires a patched
// Go runtime this module does not have, so CPU identity is threaded
// through call sites the way idiomatic hosted Go prefers explicit state
// over thread-local magic.
type PerCPU[T any] struct {
	slots []T
}

// NewPerCPU allocates CPU-local storage for n CPUs, each initialized by
// calling init(cpuID).
func NewPerCPU[T any](n int, init func(cpu int) T) *PerCPU[T] {
	p := &PerCPU[T]{slots: make([]T, n)}
	for i := range p.slots {
		p.slots[i] = init(i)
	}
	return p
}

// Get returns the slot for the given CPU id.
func (p *PerCPU[T]) Get(cpu int) *T { return &p.slots[cpu] }

// NumCPU returns the number of CPUs this PerCPU was sized for.
func (p *PerCPU[T]) NumCPU() int { return len(p.slots) }
