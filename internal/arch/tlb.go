package arch

import "sync/atomic"

// TLBScope describes how wide a TLB flush is: a single page on narrow
// PTE updates, or global on a page-table-root swap or batch cross-
// process remap (spec.md §4.3).
type TLBScope int

const (
	TLBScopePage TLBScope = iota
	TLBScopeGlobal
)

// tlbShootdowns counts pages flushed (the sum of every request's
// pageCount) and tlbGlobalFlushes counts global-scope requests, for
// tests that assert a VAS operation actually requested the scope it
// promised.
var tlbShootdowns, tlbGlobalFlushes uint64

// FlushTLB performs (in the generic backend, accounts for) a TLB
// invalidation. A real per-arch backend would issue an `invlpg`/`tlbi`
// instruction per CPU that has the address space loaded; the generic
// backend has no hardware TLB, so it only records the request.
func FlushTLB(scope TLBScope, startVA uintptr, pageCount int) {
	atomic.AddUint64(&tlbShootdowns, uint64(pageCount))
	if scope == TLBScopeGlobal {
		atomic.AddUint64(&tlbGlobalFlushes, 1)
	}
}

// TLBStats reports flush counters, exposed for tests and /proc-style
// introspection.
func TLBStats() (pagesFlushed, globalFlushes uint64) {
	return atomic.LoadUint64(&tlbShootdowns), atomic.LoadUint64(&tlbGlobalFlushes)
}
