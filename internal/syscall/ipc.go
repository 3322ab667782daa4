package syscall

import (
	"context"

	"github.com/veridian-os/kernel/internal/capspace"
	"github.com/veridian-os/kernel/internal/ipc"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/proc"
)

// ipcEndpointCreate registers a new rendezvous endpoint and mints a
// SEND|RECEIVE capability for it in the caller's own space — every
// endpoint handle a process holds from here on is a capability token,
// never a bare registry id (spec.md §4.9.1, §4.9.4).
func (s *Server) ipcEndpointCreate(pid ktypes.Pid_t) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	ep := s.Ipc.CreateEndpoint(pid)
	tok := pcb.Caps.Insert(ktypes.RefEndpoint(ep.ID), ktypes.SEND|ktypes.RECEIVE, false, false)
	return uintptr(tok), 0
}

// ipcChannelCreate decodes args as (capacity), registers a new async
// channel, subscribes the caller as a receiver, and mints a SEND|
// RECEIVE capability for it (spec.md §4.9.2).
func (s *Server) ipcChannelCreate(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	ch := s.Ipc.CreateChannel(int(args[0]))
	ch.Subscribe(pid)
	tok := pcb.Caps.Insert(ktypes.RefChannel(ch.SendID), ktypes.SEND|ktypes.RECEIVE, false, false)
	return uintptr(tok), 0
}

// resolveEndpoint validates capToken against the caller's space and the
// registry (spec.md §4.9.4's two-level validate_capability check),
// requiring the named right, then returns the live *ipc.Endpoint.
func (s *Server) resolveEndpoint(pcb *proc.PCB, capToken capspace.Token, required ktypes.Rights) (*ipc.Endpoint, ktypes.Err_t) {
	ref, verr := ipc.ValidateCapability(s.Ipc, pcb.Caps, capToken, required)
	if verr != 0 {
		return nil, verr
	}
	return s.Ipc.LookupEndpoint(ref.ID)
}

// resolveChannel is resolveEndpoint's channel counterpart.
func (s *Server) resolveChannel(pcb *proc.PCB, capToken capspace.Token, required ktypes.Rights) (*ipc.Channel, ktypes.Err_t) {
	ref, verr := ipc.ValidateCapability(s.Ipc, pcb.Caps, capToken, required)
	if verr != 0 {
		return nil, verr
	}
	return s.Ipc.LookupChannel(ref.ID)
}

// ipcSend decodes args as (endpointCap, bufPtr, length, payloadCap) and
// performs a synchronous rendezvous send (spec.md §4.9.1's ipc_send):
// with validated capability containing SEND right — copying the
// message body in from user memory and, if payloadCap is non-zero,
// attaching the named capability to the message.
func (s *Server) ipcSend(ctx context.Context, pid ktypes.Pid_t, args Args) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	ep, eerr := s.resolveEndpoint(pcb, capspace.Token(args[0]), ktypes.SEND)
	if eerr != 0 {
		return eerr
	}
	length := int(args[2])
	if length > ipc.SmallMsgSize {
		return ktypes.EINVAL
	}
	body, cerr := pcb.Mem.CopyIn(args[1], length)
	if cerr != 0 {
		return cerr
	}

	var msg ipc.Message
	copy(msg.Small[:], body)
	msg.Length = length

	if tok := capspace.Token(args[3]); tok != capspace.Invalid {
		entry, lerr := pcb.Caps.Lookup(tok)
		if lerr != 0 {
			return lerr
		}
		msg.Cap = entry.Object
		msg.HasCap = true
	}
	return ep.Send(ctx, msg)
}

// ipcRecv decodes args as (endpointCap, bufPtr, bufLen, capOutPtr) and
// blocks for the next message — with validated capability containing
// RECEIVE right (spec.md §4.9.1) — copying its body out to bufPtr and,
// if it carries a capability, minting a fresh token in the caller's
// capability space and writing it to capOutPtr.
func (s *Server) ipcRecv(ctx context.Context, pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	ep, eerr := s.resolveEndpoint(pcb, capspace.Token(args[0]), ktypes.RECEIVE)
	if eerr != 0 {
		return 0, eerr
	}
	msg, rerr := ep.Receive(ctx)
	if rerr != 0 {
		return 0, rerr
	}

	n := msg.Length
	if bufLen := int(args[2]); n > bufLen {
		n = bufLen
	}
	if werr := pcb.Mem.CopyOut(args[1], msg.Small[:n]); werr != 0 {
		return 0, werr
	}

	if msg.HasCap && args[3] != 0 {
		const allRights = ktypes.READ | ktypes.WRITE | ktypes.MODIFY | ktypes.SEND |
			ktypes.RECEIVE | ktypes.GRANT | ktypes.REVOKE | ktypes.DUPLICATE
		tok := uint64(pcb.Caps.Insert(msg.Cap, allRights, false, false))
		buf := make([]byte, 8)
		for i := 0; i < 8; i++ {
			buf[i] = byte(tok >> (8 * i))
		}
		if werr := pcb.Mem.CopyOut(args[3], buf); werr != 0 {
			return 0, werr
		}
	}
	return uintptr(n), 0
}

// ipcSendAsync decodes args as (channelCap, bufPtr, length) and
// enqueues onto the channel's lock-free ring without blocking — with
// validated capability containing SEND right, checked on every send
// per spec.md §4.9.2; on a full channel the message is dropped (and
// counted) and ktypes.ECHANFULL is returned rather than blocking the
// sender.
func (s *Server) ipcSendAsync(pid ktypes.Pid_t, args Args) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	ch, cherr := s.resolveChannel(pcb, capspace.Token(args[0]), ktypes.SEND)
	if cherr != 0 {
		return cherr
	}
	length := int(args[2])
	if length > ipc.SmallMsgSize {
		return ktypes.EINVAL
	}
	body, cerr := pcb.Mem.CopyIn(args[1], length)
	if cerr != 0 {
		return cerr
	}

	var msg ipc.Message
	copy(msg.Small[:], body)
	msg.Length = length
	return ch.SendAsync(msg)
}

// ipcRecvAsync decodes args as (channelCap, bufPtr, bufLen) and drains
// the next queued message without blocking — with validated capability
// containing RECEIVE right (spec.md §4.9.2's ipc_recv_async) —
// returning ktypes.ECHANEMPTY if none is queued.
func (s *Server) ipcRecvAsync(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	ch, cherr := s.resolveChannel(pcb, capspace.Token(args[0]), ktypes.RECEIVE)
	if cherr != 0 {
		return 0, cherr
	}
	msg, rerr := ch.ReceiveAsync()
	if rerr != 0 {
		return 0, rerr
	}

	n := msg.Length
	if bufLen := int(args[2]); n > bufLen {
		n = bufLen
	}
	if werr := pcb.Mem.CopyOut(args[1], msg.Small[:n]); werr != 0 {
		return 0, werr
	}
	return uintptr(n), 0
}
