// Package acerr provides the structured error type shared across the
// accumulator's store, device, and server layers.
package acerr

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind is the abstract error category a caller can branch on, independent
// of any particular OS errno.
type Kind string

const (
	// KindInvalid covers bad arguments, out-of-range seeks, and malformed
	// control packets.
	KindInvalid Kind = "invalid"
	// KindInterrupted means a signal arrived while blocked on a mutex or
	// on I/O that cooperates with cancellation.
	KindInterrupted Kind = "interrupted"
	// KindFault means copying to or from caller-supplied memory failed.
	KindFault Kind = "fault"
	// KindOutOfMemory means an allocation for an entry, reassembly
	// buffer, or worker failed.
	KindOutOfMemory Kind = "out of memory"
	// KindNotTty means an ioctl-style control code wasn't recognized.
	KindNotTty Kind = "not a tty"
	// KindIO is a generic transport or filesystem failure, including
	// "peer closed".
	KindIO Kind = "io error"
)

// Error is a structured error carrying the operation that failed, its
// abstract kind, and an optional wrapped cause.
type Error struct {
	Op    string // operation that failed, e.g. "store.Append", "device.Write"
	Kind  Kind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("aesd: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("aesd: %s", msg)
}

// Unwrap supports errors.Is/As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by Kind.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == te.Kind
}

// New creates a structured error with no wrapped cause.
func New(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// Wrap annotates an existing error with an operation name, mapping
// recognized OS-level errors to the closest Kind. Returns untyped nil if
// err is nil — callers that do `return acerr.Wrap(op, err)` from a
// function returning `error` must get a genuinely nil interface, not a
// non-nil interface wrapping a nil *Error.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	if ae, ok := err.(*Error); ok {
		return &Error{Op: op, Kind: ae.Kind, Msg: ae.Msg, Inner: ae.Inner}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &Error{Op: op, Kind: mapErrnoToKind(errno), Msg: errno.Error(), Inner: err}
	}

	return &Error{Op: op, Kind: KindIO, Msg: err.Error(), Inner: err}
}

func mapErrnoToKind(errno syscall.Errno) Kind {
	switch errno {
	case syscall.EINTR:
		return KindInterrupted
	case syscall.EINVAL, syscall.E2BIG:
		return KindInvalid
	case syscall.EFAULT:
		return KindFault
	case syscall.ENOMEM, syscall.ENOSPC:
		return KindOutOfMemory
	case syscall.ENOTTY:
		return KindNotTty
	default:
		return KindIO
	}
}

// Is reports whether err's Kind matches kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
