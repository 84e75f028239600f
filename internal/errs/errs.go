// Package errs defines the error taxonomy shared across djmount-go's core
// packages, and the translation from that taxonomy to FUSE errno values at
// the virtual filesystem boundary.
package errs

import (
	"syscall"

	"github.com/pkg/errors"
)

// Kind classifies an error the way spec §7 names them.
type Kind int

// Error kinds, in the order spec §7 lists them.
const (
	InvalidArgument Kind = iota
	NotFound
	NotADirectory
	TransportFailure
	BadResponse
	OutOfMemory
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case NotFound:
		return "not found"
	case NotADirectory:
		return "not a directory"
	case TransportFailure:
		return "transport failure"
	case BadResponse:
		return "bad response"
	case OutOfMemory:
		return "out of memory"
	default:
		return "unknown error"
	}
}

// Error wraps an underlying cause with a Kind, and carries enough context
// (the subject the error is about) for log lines to be self-explanatory.
type Error struct {
	Kind    Kind
	Subject string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		if e.Subject == "" {
			return e.Kind.String()
		}
		return e.Kind.String() + ": " + e.Subject
	}
	if e.Subject == "" {
		return e.Kind.String() + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Subject + ": " + e.Cause.Error()
}

// Unwrap lets errors.Is/errors.As see through to Cause.
func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind, wrapping cause (which may be nil).
func New(kind Kind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Cause: cause}
}

// Wrap is New with a pkg/errors-formatted cause, preserving any stack trace
// pkg/errors attached upstream (the teacher's error-handling library).
func Wrap(kind Kind, subject string, cause error, format string, args ...interface{}) *Error {
	return New(kind, subject, errors.Wrapf(cause, format, args...))
}

// Is reports whether err (or anything it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ToErrno maps an Error (or an un-typed error, conservatively) to the errno
// values spec §4.5 mandates the VFS walker return: -ENOENT, -ENOTDIR,
// -EFAULT, and otherwise a generic I/O failure.
func ToErrno(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !errors.As(err, &e) {
		return -int(syscall.EIO)
	}
	switch e.Kind {
	case NotFound:
		return -int(syscall.ENOENT)
	case NotADirectory:
		return -int(syscall.ENOTDIR)
	case InvalidArgument:
		return -int(syscall.EFAULT)
	case OutOfMemory:
		return -int(syscall.ENOMEM)
	default:
		return -int(syscall.EIO)
	}
}

// Errno is the syscall.Errno counterpart of ToErrno, for callers (the FUSE
// adapter) that want a typed errno rather than a bare int.
func Errno(err error) syscall.Errno {
	n := ToErrno(err)
	if n == 0 {
		return 0
	}
	return syscall.Errno(-n)
}
