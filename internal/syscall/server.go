package syscall

import (
	"context"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/ipc"
	"github.com/veridian-os/kernel/internal/irq"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/proc"
	"github.com/veridian-os/kernel/internal/vfs"
)

// fileHandle is one open-file description: the object shared by every
// fd a dup/dup2/fork duplicates, holding the cursor position Linux
// calls the "file offset" (spec.md §6's File* syscalls operate on this,
// not directly on the vfs.Node). Grounded on internal/ipc.Registry's
// id-keyed handle-table shape, the same pattern generalized from IPC
// objects to open files.
type fileHandle struct {
	mu     deadlock.Mutex
	node   vfs.Node
	offset int64
}

// Server bundles every kernel subsystem a syscall might route to, and
// owns the open-file-description table (spec.md §6's fd -> file
// mapping one level below each process's per-fd FileTable). This is
// the arch-independent side of spec.md §2's "syscall dispatcher (arch)"
// data-flow box; an arch backend only has to decode registers into
// args and call Dispatch.
type Server struct {
	Procs  *proc.Table
	VFS    *vfs.VFS
	Ipc    *ipc.Registry
	Timers *irq.Wheel

	mu         deadlock.Mutex
	handles    map[uint64]*fileHandle
	nextHandle uint64
}

// NewServer wires together the subsystems a Dispatch call needs.
func NewServer(procs *proc.Table, vfsRoot *vfs.VFS, reg *ipc.Registry, timers *irq.Wheel) *Server {
	return &Server{
		Procs:   procs,
		VFS:     vfsRoot,
		Ipc:     reg,
		Timers:  timers,
		handles: make(map[uint64]*fileHandle),
	}
}

func (s *Server) installHandle(node vfs.Node) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	id := s.nextHandle
	s.handles[id] = &fileHandle{node: node}
	return id
}

func (s *Server) handle(id uint64) (*fileHandle, ktypes.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[id]
	if !ok {
		return nil, ktypes.EBADF
	}
	return h, 0
}

func (s *Server) dropHandle(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, id)
}

// Args is the fixed-arity register-argument array a syscall ABI passes;
// the arch layer is responsible for decoding its trap frame into this
// shape (spec.md §2's data-flow: "user syscall -> syscall dispatcher
// (arch) -> subsystem API").
type Args [6]uintptr

// Dispatch routes one syscall from caller pid to the subsystem API
// spec.md §4 names, returning the raw result value and an error code
// (0 on success). callerPid identifies whose PCB/Files/Caps/Mem the
// call operates against; a real arch backend derives it from the
// currently-scheduled thread.
func (s *Server) Dispatch(ctx context.Context, callerPid ktypes.Pid_t, num Number, args Args) (uintptr, ktypes.Err_t) {
	switch num {
	case ProcessExit:
		return 0, s.Procs.Exit(callerPid, int(args[0]))
	case ProcessFork:
		return s.processFork(callerPid)
	case ProcessGetPid:
		return uintptr(callerPid), 0
	case ProcessGetPpid:
		return s.processGetPpid(callerPid)
	case ProcessKill:
		return s.processKill(ktypes.Pid_t(args[0]), ktypes.Signal(args[1]))
	case ProcessWait:
		return s.processWait(ctx, callerPid, args)
	case ProcessGetCwd:
		return s.processGetCwd(callerPid, args)
	case ProcessChdir:
		return s.processChdir(callerPid, args)

	case MemoryMap:
		return s.memoryMap(callerPid, args)
	case MemoryUnmap:
		return 0, s.memoryUnmap(callerPid, args)

	case ThreadSpawn:
		return s.threadSpawn(callerPid, args)
	case ThreadExit:
		return 0, s.threadExit(callerPid, args)
	case ThreadJoin:
		return s.threadJoin(ctx, callerPid, args)

	case FileOpen:
		return s.fileOpen(callerPid, args)
	case FileClose:
		return 0, s.fileClose(callerPid, args)
	case FileRead:
		return s.fileRead(ctx, callerPid, args)
	case FileWrite:
		return s.fileWrite(ctx, callerPid, args)
	case FileDup2:
		return s.fileDup2(callerPid, args)
	case FileAccess:
		return s.fileAccess(ctx, callerPid, args)

	case SignalSend:
		return 0, s.signalSend(args)
	case SignalAction:
		return 0, s.signalAction(callerPid, args)

	case IpcEndpointCreate:
		return s.ipcEndpointCreate(callerPid)
	case IpcChannelCreate:
		return s.ipcChannelCreate(callerPid, args)
	case IpcSend:
		return 0, s.ipcSend(ctx, callerPid, args)
	case IpcRecv:
		return s.ipcRecv(ctx, callerPid, args)
	case IpcSendAsync:
		return 0, s.ipcSendAsync(callerPid, args)
	case IpcRecvAsync:
		return s.ipcRecvAsync(callerPid, args)
	case IpcRegionCreate:
		return s.ipcRegionCreate(callerPid, args)
	case IpcRegionTransfer:
		return 0, s.ipcRegionTransfer(callerPid, args)

	case CapDerive:
		return s.capDerive(callerPid, args)
	case CapRevoke:
		return 0, s.capRevoke(callerPid, args)

	case TimerCreate:
		return s.timerCreate(callerPid, args)
	case TimerCancel:
		return 0, s.Timers.CancelTimer(int(args[0]))

	default:
		return 0, ktypes.ENOSYS
	}
}

func (s *Server) pcb(pid ktypes.Pid_t) (*proc.PCB, ktypes.Err_t) {
	return s.Procs.Get(pid)
}

func (s *Server) processGetPpid(pid ktypes.Pid_t) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(pid)
	if err != 0 {
		return 0, err
	}
	return uintptr(pcb.ParentPid), 0
}

func (s *Server) processKill(target ktypes.Pid_t, sig ktypes.Signal) (uintptr, ktypes.Err_t) {
	pcb, err := s.pcb(target)
	if err != 0 {
		return 0, err
	}
	return 0, pcb.SendSignal(sig)
}
