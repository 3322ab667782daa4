// Package procfs exposes live process-table state as a read-only
// filesystem (spec.md §4.13's procfs mount_by_type tag), the way
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/stats/stats.go exposes kernel counters
// through a synthetic file rather than a real on-disk inode.
package procfs

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/proc"
	"github.com/veridian-os/kernel/internal/vfs"
)

// FS exposes table through a synthetic directory tree: one directory
// per live pid, each containing "status" and "cmdline" files rendered
// on read.
type FS struct {
	table *proc.Table
}

// New creates a procfs instance rooted at table.
func New(table *proc.Table) (vfs.Node, ktypes.Err_t) {
	if table == nil {
		return nil, ktypes.EINVAL
	}
	return &rootNode{fs: &FS{table: table}}, 0
}

type rootNode struct {
	vfs.Unsupported
	fs *FS
}

func (r *rootNode) Attr(context.Context) (vfs.Attr, ktypes.Err_t) {
	return vfs.Attr{Kind: vfs.KindDir, Mode: 0o555}, 0
}

func (r *rootNode) Readdir(context.Context) ([]vfs.DirEntry, ktypes.Err_t) {
	pids := r.fs.table.Pids()
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	out := make([]vfs.DirEntry, 0, len(pids))
	for _, pid := range pids {
		out = append(out, vfs.DirEntry{Name: strconv.Itoa(int(pid)), Kind: vfs.KindDir})
	}
	return out, 0
}

func (r *rootNode) Lookup(_ context.Context, name string) (vfs.Node, ktypes.Err_t) {
	n, convErr := strconv.Atoi(name)
	if convErr != nil {
		return nil, ktypes.ENOENT
	}
	pid := ktypes.Pid_t(n)
	if _, err := r.fs.table.Get(pid); err != 0 {
		return nil, ktypes.ENOENT
	}
	return &pidDirNode{fs: r.fs, pid: pid}, 0
}

type pidDirNode struct {
	vfs.Unsupported
	fs  *FS
	pid ktypes.Pid_t
}

func (p *pidDirNode) Attr(context.Context) (vfs.Attr, ktypes.Err_t) {
	return vfs.Attr{Kind: vfs.KindDir, Mode: 0o555}, 0
}

func (p *pidDirNode) Readdir(context.Context) ([]vfs.DirEntry, ktypes.Err_t) {
	return []vfs.DirEntry{
		{Name: "status", Kind: vfs.KindFile},
		{Name: "cmdline", Kind: vfs.KindFile},
	}, 0
}

func (p *pidDirNode) Lookup(ctx context.Context, name string) (vfs.Node, ktypes.Err_t) {
	pcb, err := p.fs.table.Get(p.pid)
	if err != 0 {
		return nil, ktypes.ENOENT
	}
	switch name {
	case "status":
		return &renderedFile{render: func() []byte { return renderStatus(pcb) }}, 0
	case "cmdline":
		return &renderedFile{render: func() []byte { return renderCmdline(pcb) }}, 0
	default:
		return nil, ktypes.ENOENT
	}
}

// Create rejects new entries in procfs's read-only directories.
func (r *rootNode) Create(context.Context, string, uint32) (vfs.Node, ktypes.Err_t) {
	return nil, ktypes.EREADONLY
}

func (p *pidDirNode) Create(context.Context, string, uint32) (vfs.Node, ktypes.Err_t) {
	return nil, ktypes.EREADONLY
}

func renderStatus(pcb *proc.PCB) []byte {
	return []byte(fmt.Sprintf(
		"Name:\t%s\nPid:\t%d\nPPid:\t%d\nState:\t%s\n",
		pcb.Name, pcb.Pid, pcb.ParentPid, pcb.State(),
	))
}

func renderCmdline(pcb *proc.PCB) []byte {
	return []byte(pcb.Name + "\x00")
}

// renderedFile is a read-only file whose contents are computed fresh
// on every read, so it always reflects current process-table state
// rather than a stale snapshot.
type renderedFile struct {
	vfs.Unsupported
	render func() []byte
}

func (f *renderedFile) Attr(context.Context) (vfs.Attr, ktypes.Err_t) {
	return vfs.Attr{Kind: vfs.KindFile, Size: int64(len(f.render())), Mode: 0o444}, 0
}

func (f *renderedFile) Read(_ context.Context, offset int64, buf []byte) (int, ktypes.Err_t) {
	data := f.render()
	if offset < 0 || offset > int64(len(data)) {
		return 0, ktypes.EINVAL
	}
	return copy(buf, data[offset:]), 0
}

func (f *renderedFile) Write(context.Context, int64, []byte) (int, ktypes.Err_t) {
	return 0, ktypes.EREADONLY
}
