package vfs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/vfs"
	"github.com/veridian-os/kernel/internal/vfs/ramfs"
)

func mustNode(t *testing.T, n vfs.Node, err ktypes.Err_t) vfs.Node {
	t.Helper()
	require.Equal(t, ktypes.Err_t(0), err)
	return n
}

func TestResolveAbsoluteAndRelativePaths(t *testing.T) {
	ctx := context.Background()
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)

	dir := mustNode(t, root.Mkdir(ctx, "home", 0o755))
	_ = mustNode(t, dir.Create(ctx, "f.txt", 0o644))

	n, err := fsys.Resolve(ctx, "/", "/home/f.txt")
	require.Equal(t, ktypes.Err_t(0), err)
	attr, _ := n.Attr(ctx)
	assert.Equal(t, vfs.KindFile, attr.Kind)

	n2, err := fsys.Resolve(ctx, "/home", "f.txt")
	require.Equal(t, ktypes.Err_t(0), err)
	attr2, _ := n2.Attr(ctx)
	assert.Equal(t, vfs.KindFile, attr2.Kind)
}

func TestResolveDotDotPopsComponent(t *testing.T) {
	ctx := context.Background()
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)
	_ = mustNode(t, root.Mkdir(ctx, "a", 0o755))
	aDir := mustNode(t, root.Lookup(ctx, "a"))
	_ = mustNode(t, aDir.Mkdir(ctx, "b", 0o755))

	n, err := fsys.Resolve(ctx, "/", "/a/b/../b")
	require.Equal(t, ktypes.Err_t(0), err)
	attr, _ := n.Attr(ctx)
	assert.Equal(t, vfs.KindDir, attr.Kind)
}

func TestResolveMissingComponentReturnsENOENT(t *testing.T) {
	ctx := context.Background()
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)
	_, err := fsys.Resolve(ctx, "/", "/nope")
	assert.Equal(t, ktypes.ENOENT, err)
}

func TestMountRedirectsSubtree(t *testing.T) {
	ctx := context.Background()
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)
	_ = mustNode(t, root.Mkdir(ctx, "mnt", 0o755))

	other := mustNode(t, ramfs.New())
	_ = mustNode(t, other.Create(ctx, "marker", 0o644))
	require.Equal(t, ktypes.Err_t(0), fsys.Mounts.Mount("/mnt", other))

	n, err := fsys.Resolve(ctx, "/", "/mnt/marker")
	require.Equal(t, ktypes.Err_t(0), err)
	attr, _ := n.Attr(ctx)
	assert.Equal(t, vfs.KindFile, attr.Kind)

	// The ramfs directory shadowed by the mount is unreachable through it.
	_, err = fsys.Resolve(ctx, "/", "/mnt")
	require.Equal(t, ktypes.Err_t(0), err)
}

func TestMountByTypeUsesRegisteredFactory(t *testing.T) {
	ctx := context.Background()
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)
	fsys.Mounts.RegisterFactory("ramfs", ramfs.Factory)

	require.Equal(t, ktypes.Err_t(0), fsys.Mounts.MountByType("ramfs", "/tmp", ""))
	tmpRoot, err := fsys.Resolve(ctx, "/", "/tmp")
	require.Equal(t, ktypes.Err_t(0), err)
	_ = mustNode(t, tmpRoot.Create(ctx, "x", 0o644))
}

func TestMountUnknownTagReturnsENODEV(t *testing.T) {
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)
	assert.Equal(t, ktypes.ENODEV, fsys.Mounts.MountByType("bogus", "/x", ""))
}

func TestUnmountRootIsRejected(t *testing.T) {
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)
	assert.Equal(t, ktypes.EPERM, fsys.Mounts.Unmount("/"))
}

func TestCreateOnNonDirectoryReturnsENOTDIR(t *testing.T) {
	ctx := context.Background()
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)
	_ = mustNode(t, root.Create(ctx, "notadir", 0o644))

	_, err := fsys.Create(ctx, "/", "notadir/child", 0o644)
	assert.Equal(t, ktypes.ENOTDIR, err)
}

func TestVFSCreateMkdirUnlinkHelpers(t *testing.T) {
	ctx := context.Background()
	root := mustNode(t, ramfs.New())
	fsys := vfs.New(root)

	_, err := fsys.Mkdir(ctx, "/", "/etc", 0o755)
	require.Equal(t, ktypes.Err_t(0), err)

	_, err = fsys.Create(ctx, "/", "/etc/conf", 0o644)
	require.Equal(t, ktypes.Err_t(0), err)

	require.Equal(t, ktypes.Err_t(0), fsys.Unlink(ctx, "/", "/etc/conf"))
	_, err = fsys.Resolve(ctx, "/", "/etc/conf")
	assert.Equal(t, ktypes.ENOENT, err)
}

func TestSymlinkIsDereferencedDuringResolve(t *testing.T) {
	ctx := context.Background()
	rootNode := mustNode(t, ramfs.New())
	fsys := vfs.New(rootNode)

	real := mustNode(t, rootNode.Mkdir(ctx, "real", 0o755))
	_ = mustNode(t, real.Create(ctx, "f", 0o644))

	type symlinker interface {
		Symlink(name, target string) ktypes.Err_t
	}
	require.Equal(t, ktypes.Err_t(0), rootNode.(symlinker).Symlink("link", "/real"))

	n, err := fsys.Resolve(ctx, "/", "/link/f")
	require.Equal(t, ktypes.Err_t(0), err)
	attr, _ := n.Attr(ctx)
	assert.Equal(t, vfs.KindFile, attr.Kind)
}
