package syscall

import (
	"github.com/veridian-os/kernel/internal/capspace"
	"github.com/veridian-os/kernel/internal/ktypes"
)

// capDerive decodes args as (token, subsetRights) and mints a new,
// narrower capability for the same object (spec.md §4.5's cap_derive).
func (s *Server) capDerive(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	tok := capspace.Token(args[0])
	rights := ktypes.Rights(args[1])
	derived, derr := pcb.Caps.Derive(tok, rights)
	if derr != 0 {
		return 0, derr
	}
	return uintptr(derived), 0
}

// capRevoke decodes args as (token) and invalidates that slot (spec.md
// §4.5's cap_revoke).
func (s *Server) capRevoke(pid ktypes.Pid_t, args Args) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	return pcb.Caps.Revoke(capspace.Token(args[0]))
}
