package syscall

import (
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/proc"
)

// signalSend decodes args as (targetPid, sig) and marks sig pending on
// the target (spec.md §6's SignalSend, §4.12's send_signal).
func (s *Server) signalSend(args Args) ktypes.Err_t {
	pcb, err := s.pcb(ktypes.Pid_t(args[0]))
	if err != 0 {
		return err
	}
	return pcb.SendSignal(ktypes.Signal(args[1]))
}

// signalAction decodes args as (sig, handlerFnPtr) and installs a
// handler disposition, 0 meaning "restore default" (spec.md §4.12's
// per-signal handler table).
func (s *Server) signalAction(pid ktypes.Pid_t, args Args) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	sig := ktypes.Signal(args[0])
	fn := args[1]

	h := proc.SignalHandler{Disposition: proc.DispositionHandler, UserFn: fn}
	if fn == 0 {
		h = proc.SignalHandler{Disposition: proc.DispositionDefault}
	}
	return pcb.SetHandler(sig, h)
}
