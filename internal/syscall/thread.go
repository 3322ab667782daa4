package syscall

import (
	"context"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// threadSpawn decodes args as (entry, userSP) and creates a new thread
// in the caller's process sharing its address space (spec.md §4.7's
// thread_create).
func (s *Server) threadSpawn(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	tid := nextTid()
	th := pcb.SpawnThread(tid, "thread", args[0], args[1], 0)
	return uintptr(th.Tid), 0
}

func (s *Server) threadExit(pid ktypes.Pid_t, args Args) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	tid := ktypes.Tid_t(int64(args[0]))
	return pcb.ExitThread(tid, int(args[1]))
}

func (s *Server) threadJoin(ctx context.Context, pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	code, jerr := pcb.JoinThread(ctx, ktypes.Tid_t(int64(args[0])))
	return uintptr(code), jerr
}
