package proc

import (
	"github.com/veridian-os/kernel/internal/arch"
	"github.com/veridian-os/kernel/internal/capspace"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/thread"
	"github.com/veridian-os/kernel/internal/vm"
)

// Fork implements spec.md §4.6's fork(): enforce the process-count
// limit, build a child PCB inheriting parent state, clone its memory
// space (copy-on-write), capability space (fork-inheritable subset),
// and file table, inherit pgid/sid/env, and create one child thread
// cloning the parent's register state with return value 0. The child
// pid is returned to the caller (conventionally the parent's return
// value; the child observes 0 via its own cloned context).
func (t *Table) Fork(parentPid ktypes.Pid_t, nextTid func() ktypes.Tid_t) (ktypes.Pid_t, ktypes.Err_t) {
	parent, err := t.Get(parentPid)
	if err != 0 {
		return 0, err
	}

	childPid := t.allocPid()

	parent.mu.Lock()
	parentMem := parent.Mem
	parentCaps := parent.Caps
	parentFiles := parent.Files
	pgid, sid := parent.Pgid, parent.Sid
	env := make(map[string]string, len(parent.EnvVars))
	for k, v := range parent.EnvVars {
		env[k] = v
	}
	cwd := parent.Cwd
	name := parent.Name
	var parentThread *thread.Thread
	for _, th := range parent.Threads {
		parentThread = th
		break
	}
	parent.mu.Unlock()

	childMem := vm.NewAddressSpace(t.frames, parentMem.CowTable())
	childMem.CloneFrom(parentMem, vm.CloneCopyOnWrite)

	childCaps := capspace.New()
	childCaps.CloneForFork(parentCaps)

	childFiles := NewFileTable()
	childFiles.CloneFrom(parentFiles)

	child := newPCB(childPid, parentPid, name, childMem, childCaps)
	child.Files = childFiles
	child.Pgid, child.Sid = pgid, sid
	child.EnvVars = env
	child.Cwd = cwd
	child.state = StateReady

	if parentThread != nil {
		childCtx := arch.NewGenericContext()
		childCtx.CloneFrom(parentThread.Context)
		childCtx.SetReturnValue(0)
		childTid := nextTid()
		childThread := thread.New(childTid, childPid, parentThread.Name, childCtx)
		child.Threads[childTid] = childThread
	}

	if err := t.insertChild(childPid, child); err != 0 {
		return 0, err
	}

	parent.mu.Lock()
	parent.Children = append(parent.Children, childPid)
	parent.mu.Unlock()

	return childPid, 0
}
