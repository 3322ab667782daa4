package syscall

import (
	"github.com/veridian-os/kernel/internal/irq"
	"github.com/veridian-os/kernel/internal/ktypes"
)

// timerCreate decodes args as (mode, intervalMs, _) and arms a timer
// whose expiry delivers SIGALRM to the caller (spec.md §4.11's
// timer_create; TimerCancel routes straight to Wheel.CancelTimer and
// needs no wrapper here).
func (s *Server) timerCreate(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	mode := irq.TimerMode(args[0])
	intervalMs := int64(args[1])

	id, err := s.Timers.CreateTimer(mode, intervalMs, func(int) {
		if pcb, perr := s.pcb(pid); perr == 0 {
			pcb.SendSignal(ktypes.SIGALRM)
		}
	})
	if err != 0 {
		return 0, err
	}
	return uintptr(id), 0
}
