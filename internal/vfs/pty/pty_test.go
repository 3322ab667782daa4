package pty

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/bootcfg"
	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
	"github.com/veridian-os/kernel/internal/proc"
)

func newTestTable(t *testing.T) *proc.Table {
	t.Helper()
	cfg := bootcfg.Default()
	cfg.RAM = []bootcfg.RAMRegion{{NumFrames: 256}}
	cfg.MaxProcesses = 8
	frames := mem.NewAllocator(cfg)
	return proc.NewTable(cfg, frames)
}

func TestMasterWriteSlaveReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	master, slave := New(nil)

	n, err := master.Write(ctx, 0, []byte("echo hi\n"))
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Equal(t, 8, n)

	buf := make([]byte, 64)
	n, err = slave.Read(ctx, 0, buf)
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Equal(t, "echo hi\n", string(buf[:n]))
}

func TestSlaveWriteConvertsNewlineWhenOpost(t *testing.T) {
	ctx := context.Background()
	master, slave := New(nil)

	_, err := slave.Write(ctx, 0, []byte("hi\n"))
	require.Equal(t, ktypes.Err_t(0), err)

	buf := make([]byte, 64)
	n, err := master.Read(ctx, 0, buf)
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Equal(t, "hi\r\n", string(buf[:n]))
}

func TestCtrlCSendsSigintToForegroundGroupNotSlave(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t)
	pcb, err := tbl.Create("shell")
	require.Equal(t, ktypes.Err_t(0), err)

	master, slave := New(tbl)
	p := master.(*masterNode).p
	p.SetForegroundPgid(pcb.Pid)
	pcb.Pgid = pcb.Pid

	_, werr := master.Write(ctx, 0, []byte{3}) // ^C
	require.Equal(t, ktypes.Err_t(0), werr)

	buf := make([]byte, 8)
	n, _ := slave.Read(ctx, 0, buf)
	assert.Equal(t, 0, n, "^C must not reach the slave's input stream")
}

func TestWinsizeRoundTrip(t *testing.T) {
	master, _ := New(nil)
	p := master.(*masterNode).p
	p.SetWinsize(Winsize{Rows: 50, Cols: 120})
	got := p.Winsize()
	assert.Equal(t, uint16(50), got.Rows)
	assert.Equal(t, uint16(120), got.Cols)
}

func TestBufferFullReturnsENOSPC(t *testing.T) {
	ctx := context.Background()
	master, _ := New(nil)
	p := master.(*masterNode).p
	p.SetFlags(Termios{}) // disable Isig so every byte is buffered literally

	full := make([]byte, BufferSize)
	n, err := master.Write(ctx, 0, full)
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Equal(t, BufferSize, n)

	_, err = master.Write(ctx, 0, []byte{'x'})
	assert.Equal(t, ktypes.ENOSPC, err)
}
