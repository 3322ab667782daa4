package procfs

import (
	"context"
	"strconv"
	"strings"
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

func TestReaddirListsLivePids(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t)
	pcb, err := tbl.Create("init")
	require.Equal(t, ktypes.Err_t(0), err)

	root, ferr := New(tbl)
	require.Equal(t, ktypes.Err_t(0), ferr)

	entries, rerr := root.Readdir(ctx)
	require.Equal(t, ktypes.Err_t(0), rerr)
	require.Len(t, entries, 1)
	assert.Equal(t, strconv.Itoa(int(pcb.Pid)), entries[0].Name)
}

func TestLookupMissingPidReturnsENOENT(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t)
	root, _ := New(tbl)

	_, err := root.Lookup(ctx, "999")
	assert.Equal(t, ktypes.ENOENT, err)

	_, err = root.Lookup(ctx, "not-a-pid")
	assert.Equal(t, ktypes.ENOENT, err)
}

func TestStatusFileRendersCurrentState(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t)
	pcb, _ := tbl.Create("init")
	root, _ := New(tbl)

	pidDir, err := root.Lookup(ctx, strconv.Itoa(int(pcb.Pid)))
	require.Equal(t, ktypes.Err_t(0), err)

	status, err := pidDir.Lookup(ctx, "status")
	require.Equal(t, ktypes.Err_t(0), err)

	buf := make([]byte, 256)
	n, err := status.Read(ctx, 0, buf)
	require.Equal(t, ktypes.Err_t(0), err)
	body := string(buf[:n])
	assert.True(t, strings.Contains(body, "Name:\tinit"))
	assert.True(t, strings.Contains(body, "State:\tReady"))
}

func TestCmdlineFileRendersName(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t)
	pcb, _ := tbl.Create("shell")
	root, _ := New(tbl)

	pidDir, _ := root.Lookup(ctx, strconv.Itoa(int(pcb.Pid)))
	cmdline, err := pidDir.Lookup(ctx, "cmdline")
	require.Equal(t, ktypes.Err_t(0), err)

	buf := make([]byte, 64)
	n, _ := cmdline.Read(ctx, 0, buf)
	assert.Equal(t, "shell\x00", string(buf[:n]))
}

func TestStatusFileWriteIsReadOnly(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t)
	pcb, _ := tbl.Create("init")
	root, _ := New(tbl)
	pidDir, _ := root.Lookup(ctx, strconv.Itoa(int(pcb.Pid)))
	status, _ := pidDir.Lookup(ctx, "status")

	_, err := status.Write(ctx, 0, []byte("x"))
	assert.Equal(t, ktypes.EREADONLY, err)
}

func TestNewRejectsNilTable(t *testing.T) {
	_, err := New(nil)
	assert.Equal(t, ktypes.EINVAL, err)
}
