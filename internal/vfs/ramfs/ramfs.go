// Package ramfs implements an in-memory filesystem (spec.md §4.13's
// {ramfs, devfs, procfs, …} mount_by_type tags). Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/ufs/ufs.go's in-memory inode table shape
// (a map of inode number to inode struct, guarded by one mutex),
// replacing its on-disk block addressing with a plain byte slice since
// there is no backing device to address.
package ramfs

import (
	"context"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/vfs"
)

// FS is one ramfs instance: every node belongs to exactly one FS and
// shares its single mutex, mirroring ufs.Ufs_t's one-lock-per-filesystem
// granularity.
type FS struct {
	mu deadlock.Mutex
}

// New creates a ramfs instance and returns its root directory node.
func New() (vfs.Node, ktypes.Err_t) {
	fs := &FS{}
	return &dirNode{fs: fs, entries: make(map[string]vfs.Node), mode: 0o755}, 0
}

// Factory adapts New to vfs.FSFactory (args is ignored; ramfs takes no
// mount arguments).
func Factory(string) (vfs.Node, ktypes.Err_t) { return New() }

type fileNode struct {
	vfs.Unsupported
	fs    *FS
	data  []byte
	mode  uint32
	mtime int64
}

func (f *fileNode) Attr(context.Context) (vfs.Attr, ktypes.Err_t) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	return vfs.Attr{Kind: vfs.KindFile, Size: int64(len(f.data)), Mode: f.mode, Mtime: f.mtime}, 0
}

func (f *fileNode) Read(_ context.Context, offset int64, buf []byte) (int, ktypes.Err_t) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if offset < 0 || offset > int64(len(f.data)) {
		return 0, ktypes.EINVAL
	}
	n := copy(buf, f.data[offset:])
	return n, 0
}

func (f *fileNode) Write(_ context.Context, offset int64, buf []byte) (int, ktypes.Err_t) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if offset < 0 {
		return 0, ktypes.EINVAL
	}
	end := offset + int64(len(buf))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	n := copy(f.data[offset:end], buf)
	f.mtime = time.Now().UnixNano()
	return n, 0
}

func (f *fileNode) Truncate(_ context.Context, size int64) ktypes.Err_t {
	if size < 0 {
		return ktypes.EINVAL
	}
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if size <= int64(len(f.data)) {
		f.data = f.data[:size]
		return 0
	}
	grown := make([]byte, size)
	copy(grown, f.data)
	f.data = grown
	return 0
}

type symlinkNode struct {
	vfs.Unsupported
	fs     *FS
	target string
}

func (s *symlinkNode) Attr(context.Context) (vfs.Attr, ktypes.Err_t) {
	return vfs.Attr{Kind: vfs.KindSymlink, Size: int64(len(s.target)), Mode: 0o777}, 0
}

func (s *symlinkNode) Readlink(context.Context) (string, ktypes.Err_t) {
	return s.target, 0
}

type dirNode struct {
	vfs.Unsupported
	fs      *FS
	entries map[string]vfs.Node
	mode    uint32
}

func (d *dirNode) Attr(context.Context) (vfs.Attr, ktypes.Err_t) {
	return vfs.Attr{Kind: vfs.KindDir, Mode: d.mode}, 0
}

func (d *dirNode) Lookup(_ context.Context, name string) (vfs.Node, ktypes.Err_t) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	n, ok := d.entries[name]
	if !ok {
		return nil, ktypes.ENOENT
	}
	return n, 0
}

func (d *dirNode) Readdir(context.Context) ([]vfs.DirEntry, ktypes.Err_t) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	out := make([]vfs.DirEntry, 0, len(d.entries))
	for name, n := range d.entries {
		attr, _ := n.Attr(context.Background())
		out = append(out, vfs.DirEntry{Name: name, Kind: attr.Kind})
	}
	return out, 0
}

func (d *dirNode) Create(_ context.Context, name string, mode uint32) (vfs.Node, ktypes.Err_t) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	if _, exists := d.entries[name]; exists {
		return nil, ktypes.EEXIST
	}
	n := &fileNode{fs: d.fs, mode: mode, mtime: time.Now().UnixNano()}
	d.entries[name] = n
	return n, 0
}

func (d *dirNode) Mkdir(_ context.Context, name string, mode uint32) (vfs.Node, ktypes.Err_t) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	if _, exists := d.entries[name]; exists {
		return nil, ktypes.EEXIST
	}
	n := &dirNode{fs: d.fs, entries: make(map[string]vfs.Node), mode: mode}
	d.entries[name] = n
	return n, 0
}

// Symlink creates a symlink entry named name pointing at target. Not
// part of the vfs.Node interface (spec.md §4.13 names symlinks only as
// something resolution dereferences, not a creation op every
// filesystem need support), so exposed only on ramfs's concrete type.
func (d *dirNode) Symlink(name, target string) ktypes.Err_t {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	if _, exists := d.entries[name]; exists {
		return ktypes.EEXIST
	}
	d.entries[name] = &symlinkNode{fs: d.fs, target: target}
	return 0
}

func (d *dirNode) Unlink(_ context.Context, name string) ktypes.Err_t {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	if _, exists := d.entries[name]; !exists {
		return ktypes.ENOENT
	}
	delete(d.entries, name)
	return 0
}
