// Package vfs implements the filesystem-independent core (spec.md
// §4.13): a polymorphic, fallible Node interface, path resolution with
// mount redirection and bounded symlink depth, and a mount table keyed
// by path prefix. Grounded on _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/fs/super.go's
// superblock-owns-everything shape and _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/ustr
// (immutable path type) for path handling, with the node operation set
// shaped after go-fuse's fuse/types.go Attr/DirEntry split and
// fuseops-style per-operation methods rather than a single dispatch
// switch.
package vfs

import (
	"context"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// NodeKind tags what a Node represents.
type NodeKind int

const (
	KindFile NodeKind = iota
	KindDir
	KindSymlink
	KindDevice
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "File"
	case KindDir:
		return "Dir"
	case KindSymlink:
		return "Symlink"
	case KindDevice:
		return "Device"
	default:
		return "Unknown"
	}
}

// Attr mirrors the subset of go-fuse's fuse.Attr this kernel tracks:
// enough metadata to answer stat() without exposing backing-store
// internals to callers.
type Attr struct {
	Kind  NodeKind
	Size  int64
	Mode  uint32
	Uid   uint32
	Gid   uint32
	Mtime int64
	Dev   ktypes.DeviceID // meaningful only when Kind == KindDevice
}

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name string
	Kind NodeKind
}

// Node is the polymorphic, fallible filesystem object every backing
// store (ramfs, procfs, a pty endpoint) implements. Every method that
// can fail returns ktypes.Err_t rather than panicking or a Go error,
// per spec.md §7; EREADONLY and ENOTDIR are the two named in spec.md
// §4.13 but any Err_t value is legal.
type Node interface {
	Attr(ctx context.Context) (Attr, ktypes.Err_t)
	Read(ctx context.Context, offset int64, buf []byte) (int, ktypes.Err_t)
	Write(ctx context.Context, offset int64, buf []byte) (int, ktypes.Err_t)
	Truncate(ctx context.Context, size int64) ktypes.Err_t
	Readdir(ctx context.Context) ([]DirEntry, ktypes.Err_t)
	Lookup(ctx context.Context, name string) (Node, ktypes.Err_t)
	Create(ctx context.Context, name string, mode uint32) (Node, ktypes.Err_t)
	Mkdir(ctx context.Context, name string, mode uint32) (Node, ktypes.Err_t)
	Unlink(ctx context.Context, name string) ktypes.Err_t
	Readlink(ctx context.Context) (string, ktypes.Err_t)
}

// Unsupported embeds into a concrete Node to satisfy the interface with
// stubs for every operation the embedder does not implement: ENOSYS for
// Attr/Read/Write/Truncate, ENOTDIR for the directory operations
// (Readdir/Lookup/Create/Mkdir/Unlink), and EINVAL for Readlink
// (e.g. a device node has no Readdir), the way go-fuse's
// fuse.DefaultNode lets concrete nodes override only what applies.
type Unsupported struct{}

func (Unsupported) Attr(context.Context) (Attr, ktypes.Err_t) { return Attr{}, ktypes.ENOSYS }
func (Unsupported) Read(context.Context, int64, []byte) (int, ktypes.Err_t) {
	return 0, ktypes.ENOSYS
}
func (Unsupported) Write(context.Context, int64, []byte) (int, ktypes.Err_t) {
	return 0, ktypes.ENOSYS
}
func (Unsupported) Truncate(context.Context, int64) ktypes.Err_t { return ktypes.ENOSYS }
func (Unsupported) Readdir(context.Context) ([]DirEntry, ktypes.Err_t) {
	return nil, ktypes.ENOTDIR
}
func (Unsupported) Lookup(context.Context, string) (Node, ktypes.Err_t) {
	return nil, ktypes.ENOTDIR
}
func (Unsupported) Create(context.Context, string, uint32) (Node, ktypes.Err_t) {
	return nil, ktypes.ENOTDIR
}
func (Unsupported) Mkdir(context.Context, string, uint32) (Node, ktypes.Err_t) {
	return nil, ktypes.ENOTDIR
}
func (Unsupported) Unlink(context.Context, string) ktypes.Err_t { return ktypes.ENOTDIR }
func (Unsupported) Readlink(context.Context) (string, ktypes.Err_t) {
	return "", ktypes.EINVAL
}
