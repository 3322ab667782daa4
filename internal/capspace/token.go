// Package capspace implements the per-process capability space: a
// table of unforgeable tokens naming kernel objects with an attached
// rights bitset (spec.md §4.5). Grounded on runc/sysbox's capability
// packages for the rights-bitset-plus-generation shape, composed with
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/accnt/accnt.go's embedded-mutex-with-
// accessor style.
package capspace

import "github.com/veridian-os/kernel/internal/ktypes"

// Token is the 64-bit opaque capability-token format of spec.md §7:
// top bits carry generation, low bits carry the slot index. Tokens are
// meaningless outside the process that minted them until transferred
// via an IPC message's capability field.
type Token uint64

const indexBits = 48
const indexMask = (uint64(1) << indexBits) - 1

func makeToken(index int, generation uint32) Token {
	return Token(uint64(generation)<<indexBits | uint64(index)&indexMask)
}

func (t Token) index() int        { return int(uint64(t) & indexMask) }
func (t Token) generation() uint32 { return uint32(uint64(t) >> indexBits) }

// Invalid is the zero Token, never minted by Insert (slot 0 generation
// 0 is reserved the way frame 0 is in internal/mem).
const Invalid Token = 0

// Entry is one capability-space slot (spec.md §3's Capability entry).
type Entry struct {
	Object           ktypes.ObjectRef
	Rights           ktypes.Rights
	InheritableFork  bool
	InheritableExec  bool
	generation       uint32
	occupied         bool
}
