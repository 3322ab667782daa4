package vfs

import (
	"context"
	"strings"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// MaxSymlinkDepth bounds symlink dereferencing during resolution
// (spec.md §4.13: "dereferenced up to a bounded depth").
const MaxSymlinkDepth = 8

// VFS ties a MountTable to path resolution: absolute paths start at the
// mount table's root; relative paths start at a caller-supplied cwd.
type VFS struct {
	Mounts *MountTable
}

// New creates a VFS rooted at root.
func New(root Node) *VFS {
	return &VFS{Mounts: NewMountTable(root)}
}

// splitPath breaks path into non-empty, non-"." components, in order.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Resolve walks path to the Node it names, honoring mount redirection
// at each component boundary and dereferencing symlinks up to
// MaxSymlinkDepth (spec.md §4.13). A relative path is resolved against
// cwd first.
func (v *VFS) Resolve(ctx context.Context, cwd, path string) (Node, ktypes.Err_t) {
	return v.resolve(ctx, cwd, path, 0)
}

func (v *VFS) resolve(ctx context.Context, cwd, path string, depth int) (Node, ktypes.Err_t) {
	if depth > MaxSymlinkDepth {
		return nil, ktypes.ENAMETOOLONG
	}

	full := path
	if !strings.HasPrefix(path, "/") {
		full = cwd + "/" + path
	}

	components := splitPath(full)
	var stack []string // resolved absolute-path components, for ".." popping and remount lookup

	cur, _ := v.Mounts.Resolve("/")

	for i, comp := range components {
		if comp == ".." {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			root, rel := v.Mounts.Resolve("/" + strings.Join(stack, "/"))
			node, err := v.walkRelative(ctx, root, rel)
			if err != 0 {
				return nil, err
			}
			cur = node
			continue
		}

		stack = append(stack, comp)
		// Every component boundary re-checks for a longer mount match.
		mountRoot, rel := v.Mounts.Resolve("/" + strings.Join(stack, "/"))
		if rel == "" {
			cur = mountRoot
		} else {
			next, err := cur.Lookup(ctx, comp)
			if err != 0 {
				return nil, err
			}
			cur = next
		}

		attr, err := cur.Attr(ctx)
		if err == 0 && attr.Kind == KindSymlink && i < len(components)-1 {
			target, lerr := cur.Readlink(ctx)
			if lerr != 0 {
				return nil, lerr
			}
			parentPath := "/" + strings.Join(stack[:len(stack)-1], "/")
			resolved, rerr := v.resolve(ctx, parentPath, target, depth+1)
			if rerr != 0 {
				return nil, rerr
			}
			cur = resolved
		}
	}
	return cur, 0
}

// walkRelative looks up each component of rel starting from root,
// without mount-boundary or symlink handling (used for ".." repositioning
// once a mount root is already known).
func (v *VFS) walkRelative(ctx context.Context, root Node, rel string) (Node, ktypes.Err_t) {
	cur := root
	for _, comp := range splitPath(rel) {
		next, err := cur.Lookup(ctx, comp)
		if err != 0 {
			return nil, err
		}
		cur = next
	}
	return cur, 0
}
