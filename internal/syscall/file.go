package syscall

import (
	"context"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// Open flags mirror POSIX conventions (spec.md §6).
const (
	ORDONLY = 0
	OWRONLY = 1
	ORDWR   = 2
	OCREAT  = 0o100
	OTRUNC  = 0o1000
	OAPPEND = 0o2000
)

func (s *Server) fileOpen(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	pathBytes, err := pcb.Mem.CopyIn(args[0], ktypes.PathMax)
	if err != 0 {
		return 0, err
	}
	path := cString(pathBytes)
	flags, mode := int(args[1]), uint32(args[2])

	node, rerr := s.VFS.Resolve(context.Background(), pcb.Cwd, path)
	if rerr == ktypes.ENOENT && flags&OCREAT != 0 {
		node, rerr = s.VFS.Create(context.Background(), pcb.Cwd, path, mode)
	}
	if rerr != 0 {
		return 0, rerr
	}
	if flags&OTRUNC != 0 {
		if terr := node.Truncate(context.Background(), 0); terr != 0 {
			return 0, terr
		}
	}

	handleID := s.installHandle(node)
	fd := pcb.Files.Install(ktypes.RefFile(handleID))
	return uintptr(fd), 0
}

func (s *Server) fileClose(pid ktypes.Pid_t, args Args) ktypes.Err_t {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return err
	}
	fd := int(args[0])
	ref, gerr := pcb.Files.Get(fd)
	if gerr != 0 {
		return gerr
	}
	s.dropHandle(ref.ID)
	return pcb.Files.Close(fd)
}

func (s *Server) fileRead(ctx context.Context, pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	fd, bufPtr, length := int(args[0]), args[1], int(args[2])
	ref, gerr := pcb.Files.Get(fd)
	if gerr != 0 {
		return 0, gerr
	}
	h, herr := s.handle(ref.ID)
	if herr != 0 {
		return 0, herr
	}

	h.mu.Lock()
	buf := make([]byte, length)
	n, rerr := h.node.Read(ctx, h.offset, buf)
	if rerr == 0 {
		h.offset += int64(n)
	}
	h.mu.Unlock()
	if rerr != 0 {
		return 0, rerr
	}

	if werr := pcb.Mem.CopyOut(bufPtr, buf[:n]); werr != 0 {
		return 0, werr
	}
	return uintptr(n), 0
}

func (s *Server) fileWrite(ctx context.Context, pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	fd, bufPtr, length := int(args[0]), args[1], int(args[2])
	ref, gerr := pcb.Files.Get(fd)
	if gerr != 0 {
		return 0, gerr
	}
	h, herr := s.handle(ref.ID)
	if herr != 0 {
		return 0, herr
	}

	data, cerr := pcb.Mem.CopyIn(bufPtr, length)
	if cerr != 0 {
		return 0, cerr
	}

	h.mu.Lock()
	n, werr := h.node.Write(ctx, h.offset, data)
	if werr == 0 {
		h.offset += int64(n)
	}
	h.mu.Unlock()
	if werr != 0 {
		return 0, werr
	}
	return uintptr(n), 0
}

func (s *Server) fileDup2(pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	oldfd, newfd := int(args[0]), int(args[1])
	ref, gerr := pcb.Files.Get(oldfd)
	if gerr != 0 {
		return 0, gerr
	}
	if existing, eerr := pcb.Files.Get(newfd); eerr == 0 {
		s.dropHandle(existing.ID)
		_ = pcb.Files.Close(newfd)
	}
	installed := pcb.Files.Install(ref)
	if installed != newfd {
		// FileTable.Install always takes the lowest free fd; callers
		// asking for an exact newfd that isn't currently free (or
		// currently lowest) get EINVAL, matching dup2's strict contract
		// rather than silently handing back a different number.
		_ = pcb.Files.Close(installed)
		return 0, ktypes.EINVAL
	}
	return uintptr(newfd), 0
}

// fileAccess decodes args as (pathPtr, mode) and reports whether the
// path resolves at all; discretionary permission bits are not modeled
// beyond existence (spec.md §6's FileAccess).
func (s *Server) fileAccess(ctx context.Context, pid ktypes.Pid_t, args Args) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	pathBytes, err := pcb.Mem.CopyIn(args[0], ktypes.PathMax)
	if err != 0 {
		return 0, err
	}
	_, rerr := s.VFS.Resolve(ctx, pcb.Cwd, cString(pathBytes))
	return 0, rerr
}
