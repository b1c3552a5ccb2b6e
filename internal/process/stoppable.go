package process

import (
	"time"
)

// Stoppable represents a process that can be stopped and have its resources closed.
type Stoppable interface {
	Stop(timeout time.Duration) error
	Close()
}

// StopCloseAndNil stops, closes, and nils a Stoppable pointer in a single
// cleanup step. It is safe to call with a nil p or when *p is nil; in both
// cases it returns nil immediately.
//
// P is constrained to both *E and Stoppable, so only pointer types that
// implement Stoppable can be passed and *E is directly comparable to nil
// without reflection. E is inferred by the compiler.
//
// Close and nil-out always run even when Stop returns an error: a failed
// Stop means the process may be in an unknown state, so file handles are
// still closed and the pointer cleared to prevent leaks and stale
// references. The Stop error is still returned to the caller.
//
// After the call, *p is nil regardless of whether Stop succeeded.
func StopCloseAndNil[P interface {
	*E
	Stoppable
}, E any](p *P, timeout time.Duration) error {
	if p == nil || *p == nil {
		return nil
	}
	defer func() {
		(*p).Close()
		*p = nil
	}()
	return (*p).Stop(timeout)
}
