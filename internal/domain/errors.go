package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures the way the framework's components reason about
// them, independent of the Go type that carries the error.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindCapacity
	KindStateConflict
	KindTimeout
	KindDependencyInjection
	KindPluginFault
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity"
	case KindStateConflict:
		return "state_conflict"
	case KindTimeout:
		return "timeout"
	case KindDependencyInjection:
		return "dependency_injection"
	case KindPluginFault:
		return "plugin_fault"
	default:
		return "internal"
	}
}

// Error wraps an underlying error with the kind and operation that produced
// it, matching the taxonomy described for error propagation across every
// manager in the framework.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &domain.Error{Kind: domain.KindNotFound}) style
// comparisons: any *Error target matches when its Kind equals e.Kind; the
// target's Op and Err are ignored.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) *Error   { return NewError(KindValidation, op, err) }
func NotFound(op string, err error) *Error      { return NewError(KindNotFound, op, err) }
func Capacity(op string, err error) *Error      { return NewError(KindCapacity, op, err) }
func StateConflict(op string, err error) *Error { return NewError(KindStateConflict, op, err) }
func Timeout(op string, err error) *Error       { return NewError(KindTimeout, op, err) }
func DI(op string, err error) *Error            { return NewError(KindDependencyInjection, op, err) }
func PluginFault(op string, err error) *Error   { return NewError(KindPluginFault, op, err) }
func Internal(op string, err error) *Error      { return NewError(KindInternal, op, err) }

// KindOf extracts the Kind of err if it is (or wraps) a framework *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindInternal, false
}
