// Package typeresolve implements the Type Resolver: on demand, given a
// source position and the receiver expression's text, it asks an external
// type-checking process for the receiver's declaring class. Two backend
// shapes exist in the wild — long-lived LSP servers and one-shot daemon
// subprocesses — so the Resolver depends only on the narrow Backend/Session
// contract below and never on a concrete type checker.
package typeresolve

import "context"

// Backend opens a Session scoped to one source file. Implementations are
// swappable per spec.md §4.3 ("one of two pluggable backends"); the
// Resolver and Rewriter never know which one is in play.
type Backend interface {
	Open(ctx context.Context, file, contents string) (Session, error)
}

// Session answers positional type queries for the file it was opened
// against, then is discarded. A worker owns exactly one Session per file
// for the file's duration (spec.md §5).
type Session interface {
	// Query resolves the declaring class of the receiver expression at
	// byte offset in the file the session was opened for. ok is false
	// when the type cannot be determined — never treated as an error by
	// the caller, per the graceful-degradation contract.
	Query(ctx context.Context, offset int, receiverText string) (class string, ok bool, err error)
	Close() error
}
