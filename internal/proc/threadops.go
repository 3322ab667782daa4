package proc

import (
	"context"

	"github.com/veridian-os/kernel/internal/arch"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/thread"
)

// SpawnThread creates an additional thread within the process, sharing
// its address space and capability space (spec.md §4.7's thread_create:
// "a new thread shares the process's memory/capability space but gets
// its own stack/register context").
func (p *PCB) SpawnThread(tid ktypes.Tid_t, name string, entry, userSP, kernelSP uintptr) *thread.Thread {
	ctx := arch.NewGenericContext()
	ctx.Init(entry, userSP, kernelSP)
	th := thread.New(tid, p.Pid, name, ctx)

	p.mu.Lock()
	p.Threads[tid] = th
	p.mu.Unlock()
	return th
}

// Thread looks up one of the process's threads by tid.
func (p *PCB) Thread(tid ktypes.Tid_t) (*thread.Thread, ktypes.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	th, ok := p.Threads[tid]
	if !ok {
		return nil, ktypes.ESRCH
	}
	return th, 0
}

// ExitThread marks tid Zombie with code, the thread-local analog of
// Table.Exit (spec.md §4.7's thread_exit).
func (p *PCB) ExitThread(tid ktypes.Tid_t, code int) ktypes.Err_t {
	th, err := p.Thread(tid)
	if err != 0 {
		return err
	}
	th.ExitCode = code
	return th.SetState(thread.StateZombie)
}

// JoinThread blocks until tid reaches Zombie, then returns its exit
// code (spec.md §4.7's thread_join). Thread.Done's close-once channel
// means a tid that is already Zombie when JoinThread is called returns
// immediately rather than risking a missed wakeup.
func (p *PCB) JoinThread(ctx context.Context, tid ktypes.Tid_t) (int, ktypes.Err_t) {
	th, err := p.Thread(tid)
	if err != 0 {
		return 0, err
	}
	select {
	case <-th.Done():
		return th.ExitCode, 0
	case <-ctx.Done():
		return 0, ktypes.EINTR
	}
}
