package vfs

import (
	"context"
	"path"
	"strings"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// Open resolves path and returns the Node it names.
func (v *VFS) Open(ctx context.Context, cwd, name string) (Node, ktypes.Err_t) {
	return v.Resolve(ctx, cwd, name)
}

// Create resolves name's parent directory and creates a file entry
// there. Returns ktypes.EREADONLY if the parent is a read-only
// filesystem (the concrete Node implementation enforces this).
func (v *VFS) Create(ctx context.Context, cwd, name string, mode uint32) (Node, ktypes.Err_t) {
	dir, base, err := v.resolveParent(ctx, cwd, name)
	if err != 0 {
		return nil, err
	}
	return dir.Create(ctx, base, mode)
}

// Mkdir resolves name's parent directory and creates a subdirectory.
func (v *VFS) Mkdir(ctx context.Context, cwd, name string, mode uint32) (Node, ktypes.Err_t) {
	dir, base, err := v.resolveParent(ctx, cwd, name)
	if err != 0 {
		return nil, err
	}
	return dir.Mkdir(ctx, base, mode)
}

// Unlink resolves name's parent directory and removes the entry.
func (v *VFS) Unlink(ctx context.Context, cwd, name string) ktypes.Err_t {
	dir, base, err := v.resolveParent(ctx, cwd, name)
	if err != 0 {
		return err
	}
	return dir.Unlink(ctx, base)
}

func (v *VFS) resolveParent(ctx context.Context, cwd, name string) (Node, string, ktypes.Err_t) {
	full := name
	if !strings.HasPrefix(name, "/") {
		full = cwd + "/" + name
	}
	dirPath := path.Dir(full)
	base := path.Base(full)
	if base == "/" || base == "." || base == ".." {
		return nil, "", ktypes.EINVAL
	}
	dir, err := v.Resolve(ctx, cwd, dirPath)
	if err != 0 {
		return nil, "", err
	}
	attr, err := dir.Attr(ctx)
	if err != 0 {
		return nil, "", err
	}
	if attr.Kind != KindDir {
		return nil, "", ktypes.ENOTDIR
	}
	return dir, base, 0
}
