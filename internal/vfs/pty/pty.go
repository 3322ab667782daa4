// Package pty implements a pseudo-terminal master/slave node pair
// (SPEC_FULL.md §4.19, grounded on
// original_source/kernel/src/fs/pty.rs): a winsize, "\n" to "\r\n"
// output conversion, and keyboard-generated signal delivery to the
// foreground process group. There is no canonical-mode line buffering
// or echo: bytes written to the master reach the slave as written.
// Ported from the original's two VecDeque ring buffers
// and RwLock-guarded flags into the vfs.Node shape this kernel's other
// filesystems use.
package pty

import (
	"context"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/proc"
	"github.com/veridian-os/kernel/internal/vfs"
)

// BufferSize bounds each direction's ring buffer.
const BufferSize = 4096

// Termios mirrors the original's TermiosFlags. Isig and Opost are
// applied; Echo and Canonical are stored and returned by Flags, but
// nothing acts on them.
type Termios struct {
	Echo      bool
	Canonical bool
	Isig      bool
	Opost     bool
}

// DefaultTermios matches a freshly opened terminal's conventional mode.
func DefaultTermios() Termios {
	return Termios{Echo: true, Canonical: true, Isig: true, Opost: true}
}

// Winsize is the terminal's reported row/column geometry.
type Winsize struct {
	Rows, Cols, XPixel, YPixel uint16
}

// DefaultWinsize matches a conventional 80x24 terminal.
func DefaultWinsize() Winsize {
	return Winsize{Rows: 24, Cols: 80}
}

// Pty is one master/slave pair's shared state: input flows master ->
// slave, output flows slave -> master.
type Pty struct {
	mu      deadlock.Mutex
	input   []byte // master write -> slave read
	output  []byte // slave write -> master read
	winsize Winsize
	flags   Termios

	table          *proc.Table
	controller     ktypes.Pid_t
	foregroundPgid ktypes.Pid_t
}

// New creates a pty pair backed by table for foreground-group signal
// delivery (table may be nil in tests that never trigger ^C/^Z).
func New(table *proc.Table) (master, slave vfs.Node) {
	p := &Pty{winsize: DefaultWinsize(), flags: DefaultTermios(), table: table}
	return &masterNode{p: p}, &slaveNode{p: p}
}

// SetController records the process that receives foreground-group
// signals in the absence of an explicit SetForegroundPgid call.
func (p *Pty) SetController(pid ktypes.Pid_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.controller = pid
}

// SetForegroundPgid sets the process group that receives keyboard-
// generated signals.
func (p *Pty) SetForegroundPgid(pgid ktypes.Pid_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.foregroundPgid = pgid
}

// SetFlags replaces the terminal's line-discipline flags.
func (p *Pty) SetFlags(f Termios) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags = f
}

// Flags returns the terminal's current line-discipline flags.
func (p *Pty) Flags() Termios {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags
}

// SetWinsize updates the reported geometry.
func (p *Pty) SetWinsize(w Winsize) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.winsize = w
}

// Winsize returns the terminal's current geometry.
func (p *Pty) Winsize() Winsize {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.winsize
}

func (p *Pty) sendForeground(sig ktypes.Signal) {
	if p.table == nil {
		return
	}
	if p.foregroundPgid != 0 {
		p.table.SendSignalToGroup(p.foregroundPgid, sig)
		return
	}
	if p.controller != 0 {
		if pcb, err := p.table.Get(p.controller); err == 0 {
			pcb.SendSignal(sig)
		}
	}
}

// masterWrite appends data to the input ring (master -> slave),
// intercepting ^C/^Z for foreground signal delivery when Isig is set.
func (p *Pty) masterWrite(data []byte) (int, ktypes.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range data {
		if p.flags.Isig {
			if b == 3 { // ^C
				p.sendForeground(ktypes.SIGINT)
				continue
			}
			if b == 26 { // ^Z
				p.sendForeground(ktypes.SIGTSTP)
				continue
			}
		}
		if len(p.input) >= BufferSize {
			return 0, ktypes.ENOSPC
		}
		p.input = append(p.input, b)
	}
	return len(data), 0
}

func (p *Pty) masterRead(buf []byte) (int, ktypes.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := copy(buf, p.output)
	p.output = p.output[n:]
	return n, 0
}

func (p *Pty) slaveRead(buf []byte) (int, ktypes.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := copy(buf, p.input)
	p.input = p.input[n:]
	return n, 0
}

// slaveWrite appends to the output ring (slave -> master), converting
// "\n" to "\r\n" when Opost is set.
func (p *Pty) slaveWrite(data []byte) (int, ktypes.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range data {
		if p.flags.Opost && b == '\n' {
			if len(p.output) >= BufferSize-1 {
				return 0, ktypes.ENOSPC
			}
			p.output = append(p.output, '\r', '\n')
			continue
		}
		if len(p.output) >= BufferSize {
			return 0, ktypes.ENOSPC
		}
		p.output = append(p.output, b)
	}
	return len(data), 0
}

type masterNode struct {
	vfs.Unsupported
	p *Pty
}

func (m *masterNode) Attr(context.Context) (vfs.Attr, ktypes.Err_t) {
	return vfs.Attr{Kind: vfs.KindDevice}, 0
}

func (m *masterNode) Read(_ context.Context, _ int64, buf []byte) (int, ktypes.Err_t) {
	return m.p.masterRead(buf)
}

func (m *masterNode) Write(_ context.Context, _ int64, buf []byte) (int, ktypes.Err_t) {
	return m.p.masterWrite(buf)
}

type slaveNode struct {
	vfs.Unsupported
	p *Pty
}

func (s *slaveNode) Attr(context.Context) (vfs.Attr, ktypes.Err_t) {
	return vfs.Attr{Kind: vfs.KindDevice}, 0
}

func (s *slaveNode) Read(_ context.Context, _ int64, buf []byte) (int, ktypes.Err_t) {
	return s.p.slaveRead(buf)
}

func (s *slaveNode) Write(_ context.Context, _ int64, buf []byte) (int, ktypes.Err_t) {
	return s.p.slaveWrite(buf)
}
