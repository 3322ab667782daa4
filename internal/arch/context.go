// Package arch is the kernel's hardware abstraction layer: the only
// per-architecture surface named by spec.md §1/§4.7/§4.11 — context
// switch, TLB flush, IRQ entry plumbing, and CPU-local storage. This
// repository ships a single `generic` backend since concrete per-arch
// page-table bit encodings and assembly trampolines are explicitly out
// of scope (spec.md §1); the trait shape itself still mirrors
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/vm/as.go's Tlbshoot/Cpumap split between
// arch-independent call sites and an arch-provided primitive.
package arch

// Context is the per-arch thread register block trait (spec.md §4.7).
// Kept intentionally narrow — only the operations architecture-
// independent code actually calls, per spec.md §9's "Per-arch context
// switch" design note.
type Context interface {
	Init(entry, userSP, kernelSP uintptr)
	InstructionPointer() uintptr
	SetInstructionPointer(uintptr)
	StackPointer() uintptr
	SetStackPointer(uintptr)
	KernelStack() uintptr
	SetKernelStack(uintptr)
	SetReturnValue(uintptr)
	TLSBase() uintptr
	SetTLSBase(uintptr)
	CloneFrom(other Context)
}

// GenericContext is the hosted-simulation Context backend: plain struct
// fields standing in for the register file a real per-arch trampoline
// would save/restore. There is deliberately no second definition of
// TLSBase/SetTLSBase anywhere in this package — see DESIGN.md's Open
// Question resolution for the double-defined-method bug this avoids.
type GenericContext struct {
	ip       uintptr
	sp       uintptr
	kernelSP uintptr
	tlsBase  uintptr
	retval   uintptr
	// fpuLazy is set once the FPU has been touched since the last
	// switch; FPU/SIMD state save/restore is an optimization, never a
	// correctness requirement (spec.md §4.7), so the generic backend
	// only tracks whether it would have reloaded state.
	fpuLazy bool
}

func NewGenericContext() *GenericContext { return &GenericContext{} }

func (c *GenericContext) Init(entry, userSP, kernelSP uintptr) {
	c.ip = entry
	c.sp = userSP
	c.kernelSP = kernelSP
	c.retval = 0
	c.fpuLazy = false
}

func (c *GenericContext) InstructionPointer() uintptr        { return c.ip }
func (c *GenericContext) SetInstructionPointer(v uintptr)     { c.ip = v }
func (c *GenericContext) StackPointer() uintptr               { return c.sp }
func (c *GenericContext) SetStackPointer(v uintptr)           { c.sp = v }
func (c *GenericContext) KernelStack() uintptr                { return c.kernelSP }
func (c *GenericContext) SetKernelStack(v uintptr)            { c.kernelSP = v }
func (c *GenericContext) SetReturnValue(v uintptr)            { c.retval = v }
func (c *GenericContext) TLSBase() uintptr                    { return c.tlsBase }
func (c *GenericContext) SetTLSBase(v uintptr)                { c.tlsBase = v }

// CloneFrom copies another context's register state, used by fork to
// seed the child thread's syscall-frame register state (spec.md §4.6).
func (c *GenericContext) CloneFrom(other Context) {
	o, ok := other.(*GenericContext)
	if !ok {
		panic("arch: CloneFrom across mismatched context types")
	}
	*c = *o
}

// SwitchContext is the context-switch primitive of spec.md §4.7: save
// `from`'s state (already resident in the struct, since this is a
// hosted simulation rather than live registers) and switch to `to`.
// It returns nothing; in this backend its only effect is flagging
// `to`'s FPU state for lazy reload. Real per-arch backends perform this with an asm
// trampoline; callers here must already hold the scheduler lock and
// run with interrupts (goroutine preemption points) logically
// disabled, which in this simulation means: called only from sched's
// own locked sections.
func SwitchContext(from, to Context) {
	if from == to {
		return
	}
	// Lazily mark FPU state as needing reload on next use; no actual
	// FPU state exists in a hosted simulation.
	if gc, ok := to.(*GenericContext); ok {
		gc.fpuLazy = true
	}
}
