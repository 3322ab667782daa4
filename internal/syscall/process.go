package syscall

import (
	"context"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/proc"
	"github.com/veridian-os/kernel/internal/vfs"
)

var tidSeq uint64

func nextTid() ktypes.Tid_t {
	tidSeq++
	return ktypes.Tid_t(tidSeq)
}

func (s *Server) processFork(callerPid ktypes.Pid_t) (uintptr, ktypes.Err_t) {
	childPid, err := s.Procs.Fork(callerPid, nextTid)
	if err != 0 {
		return 0, err
	}
	return uintptr(childPid), 0
}

// processWait decodes args as (pidSpec, statusPtr, options) and copies
// the reaped child's exit status out to statusPtr if non-zero (spec.md
// §6's ProcessWait).
func (s *Server) processWait(ctx context.Context, callerPid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pidSpec := ktypes.Pid_t(int64(args[0]))
	statusPtr := args[1]
	noHang := args[2] != 0

	res, err := s.Procs.Wait(ctx, callerPid, pidSpec, proc.WaitOptions{NoHang: noHang})
	if err != 0 {
		return 0, err
	}

	if statusPtr != 0 {
		caller, cerr := s.pcb(callerPid)
		if cerr == 0 {
			status := make([]byte, 8)
			status[0] = byte(res.ExitCode)
			_ = caller.Mem.CopyOut(statusPtr, status)
		}
	}
	return uintptr(res.Pid), 0
}

func (s *Server) processGetCwd(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	buf := []byte(pcb.Cwd + "\x00")
	bufPtr, bufLen := args[0], int(args[1])
	if len(buf) > bufLen {
		return 0, ktypes.ENAMETOOLONG
	}
	if werr := pcb.Mem.CopyOut(bufPtr, buf); werr != 0 {
		return 0, werr
	}
	return uintptr(len(buf) - 1), 0
}

func (s *Server) processChdir(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	pathBytes, err := pcb.Mem.CopyIn(args[0], ktypes.PathMax)
	if err != 0 {
		return 0, err
	}
	path := cString(pathBytes)

	node, rerr := s.VFS.Resolve(context.Background(), pcb.Cwd, path)
	if rerr != 0 {
		return 0, rerr
	}
	attr, aerr := node.Attr(context.Background())
	if aerr != 0 {
		return 0, aerr
	}
	if attr.Kind != vfs.KindDir {
		return 0, ktypes.ENOTDIR
	}
	pcb.Cwd = path
	return 0, 0
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
