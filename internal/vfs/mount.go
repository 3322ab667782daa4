package vfs

import (
	"strings"

	"github.com/samber/lo"
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/veridian-os/kernel/internal/ktypes"
)

// FSFactory builds a filesystem instance from its mount arguments
// (spec.md §4.13's mount_by_type: "builds a filesystem instance from a
// short tag {ramfs, devfs, procfs, …} and inserts it").
type FSFactory func(args string) (Node, ktypes.Err_t)

// mountEntry pairs a mounted root with the prefix it was mounted at.
type mountEntry struct {
	prefix string
	root   Node
}

// MountTable maps absolute path prefixes to filesystem root nodes, with
// longest-prefix-match redirection during path resolution (spec.md
// §4.13). Registered FSFactory tags let MountByType construct and
// insert a filesystem in one call.
type MountTable struct {
	mu        deadlock.Mutex
	mounts    []mountEntry
	factories map[string]FSFactory
}

// NewMountTable creates an empty table with root as the "/" mount.
func NewMountTable(root Node) *MountTable {
	return &MountTable{
		mounts:    []mountEntry{{prefix: "/", root: root}},
		factories: make(map[string]FSFactory),
	}
}

// RegisterFactory makes tag available to MountByType.
func (m *MountTable) RegisterFactory(tag string, f FSFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[tag] = f
}

// Mount inserts root at prefix directly, requiring prefix be absolute
// and not already mounted.
func (m *MountTable) Mount(prefix string, root Node) ktypes.Err_t {
	if !strings.HasPrefix(prefix, "/") {
		return ktypes.EINVAL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.mounts {
		if e.prefix == prefix {
			return ktypes.EEXIST
		}
	}
	m.mounts = append(m.mounts, mountEntry{prefix: prefix, root: root})
	return 0
}

// MountByType builds a filesystem via the tag's registered factory and
// mounts it at prefix.
func (m *MountTable) MountByType(tag, prefix, args string) ktypes.Err_t {
	m.mu.Lock()
	f, ok := m.factories[tag]
	m.mu.Unlock()
	if !ok {
		return ktypes.ENODEV
	}
	root, err := f(args)
	if err != 0 {
		return err
	}
	return m.Mount(prefix, root)
}

// Unmount removes the mount at prefix. The root mount ("/") cannot be
// unmounted.
func (m *MountTable) Unmount(prefix string) ktypes.Err_t {
	if prefix == "/" {
		return ktypes.EPERM
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.mounts {
		if e.prefix == prefix {
			m.mounts = append(m.mounts[:i], m.mounts[i+1:]...)
			return 0
		}
	}
	return ktypes.ENOENT
}

// Resolve returns the root node of the mount whose prefix is the
// longest match for path, plus the path remainder below that mount
// point (spec.md §4.13: "the longest-matching mount-point prefix may
// redirect to another filesystem root").
func (m *MountTable) Resolve(path string) (Node, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := lo.Filter(m.mounts, func(e mountEntry, _ int) bool {
		return strings.HasPrefix(path, e.prefix)
	})
	best := candidates[0]
	for _, e := range candidates[1:] {
		if len(e.prefix) > len(best.prefix) {
			best = e
		}
	}
	rel := strings.TrimPrefix(path, best.prefix)
	rel = strings.TrimPrefix(rel, "/")
	return best.root, rel
}
