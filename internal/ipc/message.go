// Package ipc implements capability-validated IPC: synchronous
// rendezvous endpoints, lock-free single-producer/single-consumer async
// channels, zero-copy shared-region transfer, and the global registry
// (spec.md §4.9). Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/hashtable/hashtable.go for the registry's
// bucket-locking shape and _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/circbuf/circbuf.go
// for the ring-buffer head/tail bookkeeping, reworked from circbuf's
// single-daemon non-concurrent buffer into the atomic fetch-add/CAS ring
// spec.md §4.9.2 specifies.
package ipc

import "github.com/veridian-os/kernel/internal/ktypes"

// SmallMsgSize bounds the fixed-size inline message payload (spec.md
// §3's Message: "fixed-size small message + capability field, or large
// pointer into shared region").
const SmallMsgSize = 64

// Message is one IPC payload: either entirely inline (Small, up to
// SmallMsgSize bytes) or a reference into a shared region for large
// transfers, optionally carrying one capability.
type Message struct {
	Small    [SmallMsgSize]byte
	Length   int
	Cap      ktypes.ObjectRef
	HasCap   bool
	LargeRef *RegionTransfer
}
