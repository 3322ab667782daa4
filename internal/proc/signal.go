package proc

import "github.com/veridian-os/kernel/internal/ktypes"

// SendSignal sets sig's pending bit on p (spec.md §4.12). Waking an
// interruptibly blocked process is the caller's responsibility (the
// scheduler owns wait-queue wakeup, which proc does not import to
// avoid a dependency cycle); send_signal here only does the PCB-local
// bookkeeping.
func (p *PCB) SendSignal(sig ktypes.Signal) ktypes.Err_t {
	if sig <= 0 || int(sig) >= ktypes.NSIG {
		return ktypes.EINVAL
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PendingSignals |= 1 << uint(sig)
	return 0
}

// SetHandler installs a disposition for sig (spec.md §4.12's per-signal
// handler table). SIGKILL and SIGSTOP cannot be caught or ignored.
func (p *PCB) SetHandler(sig ktypes.Signal, h SignalHandler) ktypes.Err_t {
	if sig <= 0 || int(sig) >= ktypes.NSIG {
		return ktypes.EINVAL
	}
	if sig == ktypes.SIGKILL || sig == ktypes.SIGSTOP {
		return ktypes.EINVAL
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SignalHandlers[sig] = h
	return 0
}

// Action is what DeliverPending decided for one pending signal, for the
// return-to-userspace trampoline to act on (spec.md §4.12).
type Action int

const (
	ActionNone Action = iota
	ActionTerminate
	ActionStop
	ActionContinue
	ActionIgnore
	ActionInvokeHandler
)

// PendingDelivery names one signal ready for delivery and what to do.
type PendingDelivery struct {
	Signal ktypes.Signal
	Action Action
	UserFn uintptr
}

// defaultDispositions mirrors the signal default-action table spec.md
// §4.12 names (terminate for SIGKILL/SIGSEGV/SIGINT-class signals, stop
// for SIGSTOP, continue for SIGCONT).
var defaultDispositions = map[ktypes.Signal]Action{
	ktypes.SIGHUP:  ActionTerminate,
	ktypes.SIGINT:  ActionTerminate,
	ktypes.SIGQUIT: ActionTerminate,
	ktypes.SIGILL:  ActionTerminate,
	ktypes.SIGABRT: ActionTerminate,
	ktypes.SIGBUS:  ActionTerminate,
	ktypes.SIGFPE:  ActionTerminate,
	ktypes.SIGKILL: ActionTerminate,
	ktypes.SIGSEGV: ActionTerminate,
	ktypes.SIGPIPE: ActionTerminate,
	ktypes.SIGALRM: ActionTerminate,
	ktypes.SIGTERM: ActionTerminate,
	ktypes.SIGSTOP: ActionStop,
	ktypes.SIGTSTP: ActionStop,
	ktypes.SIGCONT: ActionContinue,
	ktypes.SIGCHLD: ActionIgnore,
}

// DeliverPending drains every pending, deliverable signal and reports
// the action the return-to-user trampoline must take for each, in
// ascending signal-number order. This is the delivery half of spec.md
// §4.12: "occurs on return-to-userspace: the outgoing trampoline checks
// pending signals...".
func (p *PCB) DeliverPending() []PendingDelivery {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []PendingDelivery
	for sig := ktypes.Signal(1); int(sig) < ktypes.NSIG; sig++ {
		bit := uint32(1) << uint(sig)
		if p.PendingSignals&bit == 0 {
			continue
		}
		p.PendingSignals &^= bit

		h := p.SignalHandlers[sig]
		var action Action
		var fn uintptr
		switch h.Disposition {
		case DispositionIgnore:
			action = ActionIgnore
		case DispositionHandler:
			action = ActionInvokeHandler
			fn = h.UserFn
		default:
			action = defaultDispositions[sig]
			if action == ActionNone {
				action = ActionTerminate
			}
		}
		out = append(out, PendingDelivery{Signal: sig, Action: action, UserFn: fn})
	}
	return out
}

// SendSignalToGroup delivers sig to every process in the table whose
// pgid matches, per spec.md §4.12's process-group fan-out.
func (t *Table) SendSignalToGroup(pgid ktypes.Pid_t, sig ktypes.Signal) int {
	t.mu.Lock()
	targets := make([]*PCB, 0)
	for _, p := range t.procs {
		p.mu.Lock()
		if p.Pgid == pgid {
			targets = append(targets, p)
		}
		p.mu.Unlock()
	}
	t.mu.Unlock()

	n := 0
	for _, p := range targets {
		if p.SendSignal(sig) == 0 {
			n++
		}
	}
	return n
}
