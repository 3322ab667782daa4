package ksync

// OnceLock is the single-value specialization of GlobalState, named to
// match spec.md §4.10's "OnceLock<T> / GlobalState<T>" pair — both
// describe the same single-initialization container; this repository
// implements them as one generic type (see the Open Question resolution
// in DESIGN.md for the analogous double-definition bug the teacher's
// AArch64 context type had, which this package avoids by not
// duplicating the type at all).
type OnceLock[T any] = GlobalState[T]
