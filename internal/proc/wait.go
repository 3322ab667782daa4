package proc

import (
	"context"

	"github.com/samber/lo"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// WaitOptions mirrors the WNOHANG flag of spec.md §4.6.
type WaitOptions struct {
	NoHang bool
}

// WaitResult is the (pid, exit status) pair Wait returns on success.
type WaitResult struct {
	Pid      ktypes.Pid_t
	ExitCode int
}

// Wait implements spec.md §4.6's wait(): block (unless NoHang is set)
// until a child matching pidSpec (0 meaning "any child") is a zombie,
// then reap it. Returns ECHILD if the caller has no matching children
// at all, live or dead.
func (t *Table) Wait(ctx context.Context, callerPid ktypes.Pid_t, pidSpec ktypes.Pid_t, opts WaitOptions) (WaitResult, ktypes.Err_t) {
	caller, err := t.Get(callerPid)
	if err != 0 {
		return WaitResult{}, err
	}

	for {
		caller.mu.Lock()
		children := append([]ktypes.Pid_t(nil), caller.Children...)
		caller.mu.Unlock()

		if len(children) == 0 {
			return WaitResult{}, ktypes.ECHILD
		}

		matched := false
		for _, cpid := range children {
			if pidSpec != 0 && pidSpec != cpid {
				continue
			}
			child, cerr := t.Get(cpid)
			if cerr != 0 {
				continue
			}
			matched = true
			if child.State() == StateZombie {
				child.mu.Lock()
				code := child.ExitCode
				child.mu.Unlock()
				if rerr := t.Reap(cpid); rerr != 0 {
					return WaitResult{}, rerr
				}
				caller.mu.Lock()
				caller.Children = removePid(caller.Children, cpid)
				caller.mu.Unlock()
				return WaitResult{Pid: cpid, ExitCode: code}, 0
			}
		}
		if !matched {
			return WaitResult{}, ktypes.ECHILD
		}
		if opts.NoHang {
			return WaitResult{}, ktypes.EAGAIN
		}

		select {
		case <-caller.waiters:
		case <-ctx.Done():
			return WaitResult{}, ktypes.EINTR
		}
	}
}

func removePid(s []ktypes.Pid_t, target ktypes.Pid_t) []ktypes.Pid_t {
	return lo.Reject(s, func(p ktypes.Pid_t, _ int) bool { return p == target })
}
