// Package xerror provides the replicator's error taxonomy: a category for
// grouping (metrics, logging) and a kind for the design-level error codes
// the state machine branches on (see SPEC_FULL.md §7).
package xerror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category groups errors for logging and metrics, independent of the
// specific Kind. Mirrors the teacher's richer pkg/xerror categories.
type Category int

const (
	Normal Category = iota
	Network
	Storage
	Sync
	Invariant
)

func (c Category) String() string {
	switch c {
	case Normal:
		return "normal"
	case Network:
		return "network"
	case Storage:
		return "storage"
	case Sync:
		return "sync"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Kind is the design-level error code from SPEC_FULL.md §7.1. Unlike
// Category, callers branch on Kind with Is/As.
type Kind int

const (
	KindUnspecified Kind = iota
	KindOplogStartMissing
	KindInvalidSyncSource
	KindInitialSyncFailure
	KindCallbackCanceled
	KindAlreadyInitialized
	KindIllegalOperation
)

func (k Kind) String() string {
	switch k {
	case KindOplogStartMissing:
		return "OplogStartMissing"
	case KindInvalidSyncSource:
		return "InvalidSyncSource"
	case KindInitialSyncFailure:
		return "InitialSyncFailure"
	case KindCallbackCanceled:
		return "CallbackCanceled"
	case KindAlreadyInitialized:
		return "AlreadyInitialized"
	case KindIllegalOperation:
		return "IllegalOperation"
	default:
		return "Unspecified"
	}
}

// XError is a wrapped error carrying a category and a kind. Error() prefixes
// the wrapped error's message with [category/kind]; Unwrap exposes the cause so errors.Is/As work
// through a chain of XErrors and plain errors alike.
type XError struct {
	category Category
	kind     Kind
	err      error
}

func (e *XError) Category() Category {
	return e.category
}

func (e *XError) Kind() Kind {
	return e.kind
}

func (e *XError) Error() string {
	return fmt.Sprintf("[%s/%s] %s", e.category, e.kind, e.err.Error())
}

func (e *XError) Unwrap() error {
	return e.err
}

// Is lets errors.Is(err, xerror.ErrOplogStartMissing) match any XError with
// the same Kind, regardless of message or wrapping depth.
func (e *XError) Is(target error) bool {
	other, ok := target.(*XError)
	if !ok {
		return false
	}
	return e.kind == other.kind
}

// Sentinel errors for the design-level kinds every caller needs to branch
// on; wrap these with Wrap/Wrapf to add context without losing identity.
var (
	ErrOplogStartMissing  = &XError{category: Sync, kind: KindOplogStartMissing, err: errors.New("oplog start missing")}
	ErrInvalidSyncSource  = &XError{category: Sync, kind: KindInvalidSyncSource, err: errors.New("invalid sync source")}
	ErrInitialSyncFailure = &XError{category: Sync, kind: KindInitialSyncFailure, err: errors.New("initial sync failure")}
	ErrCallbackCanceled   = &XError{category: Normal, kind: KindCallbackCanceled, err: errors.New("callback canceled")}
	ErrAlreadyInitialized = &XError{category: Normal, kind: KindAlreadyInitialized, err: errors.New("already initialized")}
	ErrIllegalOperation   = &XError{category: Normal, kind: KindIllegalOperation, err: errors.New("illegal operation")}
)

func New(cat Category, kind Kind, message string) error {
	return errors.WithStack(&XError{category: cat, kind: kind, err: errors.New(message)})
}

func Errorf(cat Category, kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&XError{category: cat, kind: kind, err: fmt.Errorf(format, args...)})
}

// Wrap attaches a category/kind and message to err, preserving err as the
// unwrap chain's next link and adding a stack trace at the call site.
func Wrap(err error, cat Category, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&XError{category: cat, kind: kind, err: errors.WithMessage(err, message)})
}

func Wrapf(err error, cat Category, kind Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&XError{category: cat, kind: kind, err: errors.WithMessage(err, fmt.Sprintf(format, args...))})
}

// Of reports the Kind of err if it (or something it wraps) is an *XError,
// and KindUnspecified otherwise.
func Of(err error) Kind {
	var xerr *XError
	if errors.As(err, &xerr) {
		return xerr.kind
	}
	return KindUnspecified
}

// CategoryOf reports the Category of err if it (or something it wraps) is
// an *XError, and Normal otherwise.
func CategoryOf(err error) Category {
	var xerr *XError
	if errors.As(err, &xerr) {
		return xerr.category
	}
	return Normal
}
