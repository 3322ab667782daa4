// Package ktypes holds the identifier, error, and rights types shared by
// every kernel subsystem: pids/tids, the Err_t error code space, the
// capability Rights bitset, and the ObjectRef tagged union capabilities
// name. Nothing in this package blocks or allocates; it is pure data.
package ktypes

import "fmt"

// Err_t is a negative-valued POSIX-like error code, the shape every
// fallible kernel API in this repository returns. A zero value means
// success. Never panics cross this boundary: see spec.md §7.
type Err_t int

// Error codes. Values are chosen to roughly track POSIX errno numbers so
// a syscall.Dispatch caller can return them directly.
const (
	EPERM   Err_t = -1
	ENOENT  Err_t = -2
	ESRCH   Err_t = -3
	EINTR   Err_t = -4
	EIO     Err_t = -5
	ENOEXEC Err_t = -8
	EBADF   Err_t = -9
	ECHILD  Err_t = -10
	EAGAIN  Err_t = -11
	ENOMEM  Err_t = -12
	EACCES  Err_t = -13
	EFAULT  Err_t = -14
	EEXIST  Err_t = -17
	ENODEV  Err_t = -19
	ENOTDIR Err_t = -20
	EISDIR  Err_t = -21
	EINVAL  Err_t = -22
	ENOSPC  Err_t = -28
	EPIPE   Err_t = -32
	ENAMETOOLONG Err_t = -36
	ENOSYS  Err_t = -38
	ENOTEMPTY Err_t = -39

	// Kernel-specific extensions beyond bare POSIX, still negative
	// integers so they cross the syscall ABI the same way.
	EINVALCAP     Err_t = -200 // invalid or revoked capability
	ERESOURCE     Err_t = -201 // bounded pool (timers, procs, fds) exhausted
	EBADSTATE     Err_t = -202 // operation unsupported in current component state
	ETIMEOUT      Err_t = -203
	ENOTIMPL      Err_t = -204
	ENOTINIT      Err_t = -205
	EREADONLY     Err_t = -206
	ECHANFULL     Err_t = -207
	ECHANEMPTY    Err_t = -208
)

var errNames = map[Err_t]string{
	EPERM: "EPERM", ENOENT: "ENOENT", ESRCH: "ESRCH", EINTR: "EINTR",
	EIO: "EIO", ENOEXEC: "ENOEXEC", EBADF: "EBADF", ECHILD: "ECHILD", EAGAIN: "EAGAIN",
	ENOMEM: "ENOMEM", EACCES: "EACCES", EFAULT: "EFAULT", EEXIST: "EEXIST",
	ENODEV: "ENODEV", ENOTDIR: "ENOTDIR", EISDIR: "EISDIR", EINVAL: "EINVAL",
	ENOSPC: "ENOSPC", EPIPE: "EPIPE", ENAMETOOLONG: "ENAMETOOLONG",
	ENOSYS: "ENOSYS", ENOTEMPTY: "ENOTEMPTY",
	EINVALCAP: "EINVALCAP", ERESOURCE: "ERESOURCE", EBADSTATE: "EBADSTATE",
	ETIMEOUT: "ETIMEOUT", ENOTIMPL: "ENOTIMPL", ENOTINIT: "ENOTINIT",
	EREADONLY: "EREADONLY", ECHANFULL: "ECHANFULL", ECHANEMPTY: "ECHANEMPTY",
}

// String renders the symbolic name of an error code, falling back to the
// raw integer for unrecognized values.
func (e Err_t) String() string {
	if e == 0 {
		return "OK"
	}
	if n, ok := errNames[e]; ok {
		return n
	}
	return fmt.Sprintf("Err_t(%d)", int(e))
}

// Error satisfies the standard error interface so Err_t can be wrapped or
// compared with errors.Is in subsystems that bridge to idiomatic Go error
// handling (e.g. cmd/veridiand).
func (e Err_t) Error() string { return e.String() }

// Ok reports whether the error code represents success.
func (e Err_t) Ok() bool { return e == 0 }
