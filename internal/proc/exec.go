package proc

import (
	"github.com/veridian-os/kernel/internal/capspace"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/vm"
)

// ImageLoader populates a freshly constructed address space with an
// executable image and reports where execution should begin. Exec
// takes this as a parameter rather than importing internal/loader
// directly, keeping the dependency direction loader -> proc optional
// and letting tests exercise Exec without a real ELF image.
type ImageLoader func(as *vm.AddressSpace) (entry, userSP uintptr, err ktypes.Err_t)

// Exec implements spec.md §4.6's exec(): load a fresh image into a new
// memory space, replace it, rebuild the capability space keeping only
// exec-inheritable entries, and reset the calling thread's context to
// the new entry point with a fresh user stack. On success it does not
// logically "return" to the old image — the thread's context now
// describes the new one.
func (t *Table) Exec(pid ktypes.Pid_t, name string, argv, envp []string, load ImageLoader) ktypes.Err_t {
	pcb, err := t.Get(pid)
	if err != 0 {
		return err
	}

	newMem := vm.NewAddressSpace(t.frames, vm.NewCoWTable(t.frames))
	entry, userSP, lerr := load(newMem)
	if lerr != 0 {
		return lerr
	}

	newCaps := capspace.New()

	pcb.mu.Lock()
	defer pcb.mu.Unlock()

	pcb.Mem.Destroy()
	pcb.Mem = newMem
	newCaps.CloneForExec(pcb.Caps)
	pcb.Caps = newCaps
	pcb.Name = name
	pcb.EnvVars = envVarsFromSlice(envp)

	// exec collapses a process to a single thread (POSIX semantics): one
	// thread is reset to the new image and the others are dropped.
	kept := false
	for tid, th := range pcb.Threads {
		if kept {
			delete(pcb.Threads, tid)
			continue
		}
		th.Context.Init(entry, userSP, th.Context.KernelStack())
		kept = true
	}
	return 0
}

func envVarsFromSlice(envp []string) map[string]string {
	out := make(map[string]string, len(envp))
	for _, kv := range envp {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}
