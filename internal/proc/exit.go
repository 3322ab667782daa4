package proc

import "github.com/veridian-os/kernel/internal/ktypes"

// Exit implements spec.md §4.6's exit(): mark the process Zombie, store
// its exit code, reparent children to init, wake any parent blocked in
// Wait, and deliver SIGCHLD to the parent. It does not free the PCB
// itself — that happens when the parent reaps it via Wait, per spec.md
// §3's "zombies persist until parent reaps" invariant.
func (t *Table) Exit(pid ktypes.Pid_t, code int) ktypes.Err_t {
	pcb, err := t.Get(pid)
	if err != 0 {
		return err
	}

	pcb.mu.Lock()
	if serr := func() ktypes.Err_t {
		if !legalTransitions[pcb.state][StateZombie] {
			return ktypes.EBADSTATE
		}
		pcb.state = StateZombie
		return 0
	}(); serr != 0 {
		pcb.mu.Unlock()
		return serr
	}
	pcb.ExitCode = code
	children := append([]ktypes.Pid_t(nil), pcb.Children...)
	parentPid := pcb.ParentPid
	pcb.mu.Unlock()

	for _, childPid := range children {
		if child, cerr := t.Get(childPid); cerr == 0 {
			child.mu.Lock()
			child.ParentPid = InitPid
			child.mu.Unlock()
			if initPCB, ierr := t.Get(InitPid); ierr == 0 {
				initPCB.mu.Lock()
				initPCB.Children = append(initPCB.Children, childPid)
				initPCB.mu.Unlock()
			}
		}
	}

	if parent, perr := t.Get(parentPid); perr == 0 {
		_ = parent.SendSignal(ktypes.SIGCHLD)
		parent.notifyWaiters()
	}
	return 0
}

// Reap removes a Zombie's PCB from the table entirely, freeing its
// threads and address space, once a parent has collected its exit
// status via Wait.
func (t *Table) Reap(pid ktypes.Pid_t) ktypes.Err_t {
	pcb, err := t.Get(pid)
	if err != 0 {
		return err
	}
	pcb.mu.Lock()
	if pcb.state != StateZombie {
		pcb.mu.Unlock()
		return ktypes.EBADSTATE
	}
	pcb.state = StateDead
	mem := pcb.Mem
	pcb.mu.Unlock()

	mem.Destroy()
	t.remove(pid)
	return 0
}
