package ktypes

import "strings"

// Rights is a bitset of the operations a capability token permits on the
// object it names. The bit layout is shaped after the capability-enum
// packages in the retrieval pack (moby-sys/capability, sysbox capability):
// a plain uint32 bitset with a String() formatter, not a library type —
// no ecosystem library fits this kernel-specific rights domain.
type Rights uint32

const (
	READ Rights = 1 << iota
	WRITE
	MODIFY
	SEND
	RECEIVE
	GRANT
	REVOKE
	DUPLICATE
	EXEC_INHERIT
	FORK_INHERIT
)

var rightNames = []struct {
	bit  Rights
	name string
}{
	{READ, "READ"}, {WRITE, "WRITE"}, {MODIFY, "MODIFY"}, {SEND, "SEND"},
	{RECEIVE, "RECEIVE"}, {GRANT, "GRANT"}, {REVOKE, "REVOKE"},
	{DUPLICATE, "DUPLICATE"}, {EXEC_INHERIT, "EXEC_INHERIT"},
	{FORK_INHERIT, "FORK_INHERIT"},
}

// Has reports whether all bits of want are set in r.
func (r Rights) Has(want Rights) bool {
	return r&want == want
}

// Subset reports whether r is a subset of (or equal to) other — the
// invariant capspace.Derive must enforce (never mint a superset).
func (r Rights) Subset(other Rights) bool {
	return r&^other == 0
}

// String renders the set bits as a "|"-joined list of names.
func (r Rights) String() string {
	var names []string
	for _, e := range rightNames {
		if r&e.bit != 0 {
			names = append(names, e.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// ObjectKind tags the variant held by an ObjectRef.
type ObjectKind int

const (
	ObjProcess ObjectKind = iota
	ObjThread
	ObjEndpoint
	ObjChannel
	ObjMemory
	ObjFile
	ObjIrq
)

func (k ObjectKind) String() string {
	switch k {
	case ObjProcess:
		return "Process"
	case ObjThread:
		return "Thread"
	case ObjEndpoint:
		return "Endpoint"
	case ObjChannel:
		return "Channel"
	case ObjMemory:
		return "Memory"
	case ObjFile:
		return "File"
	case ObjIrq:
		return "Irq"
	default:
		return "Unknown"
	}
}

// ObjectRef is the tagged union capability entries point at: a capability
// never stores a raw pointer, only a (kind, id) pair resolved through the
// owning subsystem's registry at use time.
type ObjectRef struct {
	Kind ObjectKind
	ID   uint64
}

func RefProcess(pid Pid_t) ObjectRef  { return ObjectRef{ObjProcess, uint64(pid)} }
func RefThread(tid Tid_t) ObjectRef   { return ObjectRef{ObjThread, uint64(tid)} }
func RefEndpoint(id uint64) ObjectRef { return ObjectRef{ObjEndpoint, id} }
func RefChannel(id uint64) ObjectRef  { return ObjectRef{ObjChannel, id} }
func RefMemory(id uint64) ObjectRef   { return ObjectRef{ObjMemory, id} }
func RefFile(inode uint64) ObjectRef  { return ObjectRef{ObjFile, inode} }
func RefIrq(line IrqNumber) ObjectRef { return ObjectRef{ObjIrq, uint64(line)} }
