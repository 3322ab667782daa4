package ramfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/vfs"
)

func TestCreateWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	root, err := New()
	require.Equal(t, ktypes.Err_t(0), err)

	f, err := root.Create(ctx, "hello.txt", 0o644)
	require.Equal(t, ktypes.Err_t(0), err)

	n, err := f.Write(ctx, 0, []byte("hi there"))
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Equal(t, 8, n)

	buf := make([]byte, 64)
	n, err = f.Read(ctx, 0, buf)
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Equal(t, "hi there", string(buf[:n]))
}

func TestMkdirAndLookup(t *testing.T) {
	ctx := context.Background()
	root, _ := New()
	sub, err := root.Mkdir(ctx, "sub", 0o755)
	require.Equal(t, ktypes.Err_t(0), err)

	found, err := root.Lookup(ctx, "sub")
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Same(t, sub.(*dirNode), found.(*dirNode))

	_, err = root.Lookup(ctx, "missing")
	assert.Equal(t, ktypes.ENOENT, err)
}

func TestCreateDuplicateReturnsEEXIST(t *testing.T) {
	ctx := context.Background()
	root, _ := New()
	_, err := root.Create(ctx, "f", 0o644)
	require.Equal(t, ktypes.Err_t(0), err)
	_, err = root.Create(ctx, "f", 0o644)
	assert.Equal(t, ktypes.EEXIST, err)
}

func TestUnlinkRemovesEntry(t *testing.T) {
	ctx := context.Background()
	root, _ := New()
	_, _ = root.Create(ctx, "f", 0o644)
	require.Equal(t, ktypes.Err_t(0), root.Unlink(ctx, "f"))
	_, err := root.Lookup(ctx, "f")
	assert.Equal(t, ktypes.ENOENT, err)
}

func TestTruncateGrowsAndShrinks(t *testing.T) {
	ctx := context.Background()
	root, _ := New()
	f, _ := root.Create(ctx, "f", 0o644)
	_, _ = f.Write(ctx, 0, []byte("abcdef"))

	require.Equal(t, ktypes.Err_t(0), f.Truncate(ctx, 3))
	attr, _ := f.Attr(ctx)
	assert.Equal(t, int64(3), attr.Size)

	require.Equal(t, ktypes.Err_t(0), f.Truncate(ctx, 10))
	attr, _ = f.Attr(ctx)
	assert.Equal(t, int64(10), attr.Size)
}

func TestSymlinkReadlink(t *testing.T) {
	ctx := context.Background()
	rootNode, _ := New()
	root := rootNode.(*dirNode)
	require.Equal(t, ktypes.Err_t(0), root.Symlink("link", "/target"))

	n, err := root.Lookup(ctx, "link")
	require.Equal(t, ktypes.Err_t(0), err)
	attr, err := n.Attr(ctx)
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Equal(t, vfs.KindSymlink, attr.Kind)

	target, err := n.Readlink(ctx)
	require.Equal(t, ktypes.Err_t(0), err)
	assert.Equal(t, "/target", target)
}

func TestWriteToDirectoryIsUnsupported(t *testing.T) {
	ctx := context.Background()
	root, _ := New()
	_, err := root.Write(ctx, 0, []byte("x"))
	assert.Equal(t, ktypes.ENOSYS, err)
}
