package proc

import "github.com/veridian-os/kernel/internal/ktypes"

// ProcessInfo is one row of a process-table snapshot: the read-only
// view a user-space process-server/ps-equivalent needs (SPEC_FULL.md
// §4.18).
type ProcessInfo struct {
	Pid      ktypes.Pid_t
	PPid     ktypes.Pid_t
	State    string
	Priority int
	Name     string
}

// Snapshot returns a consistent view of every live process, generated
// under the table's lock in one short critical section. Per-PCB state
// is read through each PCB's own lock, never the table's, so Snapshot
// never holds two locks at once.
func (t *Table) Snapshot() []ProcessInfo {
	t.mu.Lock()
	pcbs := make([]*PCB, 0, len(t.procs))
	for _, pcb := range t.procs {
		pcbs = append(pcbs, pcb)
	}
	t.mu.Unlock()

	out := make([]ProcessInfo, len(pcbs))
	for i, pcb := range pcbs {
		out[i] = ProcessInfo{
			Pid:      pcb.Pid,
			PPid:     pcb.ParentPid,
			State:    pcb.State().String(),
			Priority: pcb.Priority,
			Name:     pcb.Name,
		}
	}
	return out
}
