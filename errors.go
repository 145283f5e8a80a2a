package mman

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// Kind classifies the errors mman can return, per the taxonomy of the
// region-selection and eviction algorithms: out-of-range requests,
// unsupported combinations of manager flavor and request shape, internal
// index-integrity violations (never observable absent a bug), recoverable
// OS-resource failures, and failures to fully release a Manager's mappings.
type Kind int

const (
	// KindOutOfRange marks a request outside a file's bounds, or a
	// SlidingBuffer index outside [0, size).
	KindOutOfRange Kind = iota
	// KindUnsupported marks a request a manager flavor cannot serve, such
	// as a sliding cursor from a Greedy manager, or a file larger than
	// window_size under Greedy when window_size > 0.
	KindUnsupported
	// KindIndexIntegrity marks an internal Relation violation: put of a
	// duplicate key, take of a missing key, or a one-to-one inverse
	// mismatch. Never observable unless there is a bug.
	KindIndexIntegrity
	// KindResource marks an OS-level failure (open, mmap, close).
	// Recoverable by evicting and retrying once; surfaced only if the
	// retry also fails.
	KindResource
	// KindCloseWithActive marks Manager.Close finding mappings it could
	// not unmap because views onto them are still alive.
	KindCloseWithActive
)

func (k Kind) String() string {
	switch k {
	case KindOutOfRange:
		return "out-of-range"
	case KindUnsupported:
		return "unsupported"
	case KindIndexIntegrity:
		return "index-integrity"
	case KindResource:
		return "resource"
	case KindCloseWithActive:
		return "close-with-active"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every mman operation that
// fails. It carries a Kind for programmatic dispatch and wraps an
// underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Regions lists the offending region descriptions for
	// KindCloseWithActive; empty for all other Kinds.
	Regions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mman: %s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("mman: %s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, mman.ErrOutOfRange) against the sentinels
// below, or simply switch on errors.As(err, &merr).Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrOutOfRange, ErrUnsupported and ErrIndexIntegrity are sentinels usable
// with errors.Is to test the Kind of a returned *Error, independent of its
// Message or Cause.
var (
	ErrOutOfRange      = &Error{Kind: KindOutOfRange}
	ErrUnsupported     = &Error{Kind: KindUnsupported}
	ErrIndexIntegrity  = &Error{Kind: KindIndexIntegrity}
	ErrResource        = &Error{Kind: KindResource}
	ErrCloseWithActive = &Error{Kind: KindCloseWithActive}
)

// newCloseWithActive builds a KindCloseWithActive *Error enumerating the
// regions that could not be unmapped, aggregating the individual unmap
// failures with a *multierror.Error so none of them are silently dropped.
func newCloseWithActive(regions []string, failures *multierror.Error) *Error {
	e := &Error{
		Kind:    KindCloseWithActive,
		Message: fmt.Sprintf("%d region(s) could not be unmapped", len(regions)),
		Regions: regions,
	}
	if failures != nil && len(failures.Errors) > 0 {
		e.Cause = failures.ErrorOrNil()
	}
	return e
}

// multiErrorBuilder accumulates independent failures (e.g. one per region
// that failed to unmap during Close) without letting the first one abort
// the loop, so every failure is reported rather than just the first.
type multiErrorBuilder struct {
	err *multierror.Error
}

func newMultiError() *multiErrorBuilder {
	return &multiErrorBuilder{err: &multierror.Error{}}
}

func (b *multiErrorBuilder) append(err error) {
	if err == nil {
		return
	}
	b.err = multierror.Append(b.err, err)
}

func (b *multiErrorBuilder) result() *multierror.Error { return b.err }
