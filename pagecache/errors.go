package pagecache

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines pagecache error kinds.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindMethodNotAllowed ErrorKind = "method_not_allowed"
	KindNotFound         ErrorKind = "not_found"
	KindRender           ErrorKind = "render"
	KindStorage          ErrorKind = "storage"
	KindIndexCorrupt     ErrorKind = "index_corrupt"
	KindTimeout          ErrorKind = "timeout"
	KindCanceled         ErrorKind = "canceled"
	KindInternal         ErrorKind = "internal"
)

// Error codes for validation failures surfaced to callers.
const (
	CodeTargetRequired = "target_required"
	CodeTargetInvalid  = "target_invalid"
	CodeQueryInvalid   = "query_invalid"
)

// Error wraps errors with a kind and an optional machine code.
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new pagecache error.
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithCode sets the machine code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// KindFromError maps an error to its kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var pcErr *Error
	if errors.As(err, &pcErr) {
		return pcErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	return KindInternal
}

// CodeFromError returns the machine code carried by err, if any.
func CodeFromError(err error) string {
	var pcErr *Error
	if errors.As(err, &pcErr) {
		return pcErr.Code
	}
	return ""
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var pcErr *Error
	if errors.As(err, &pcErr) && pcErr.Msg != "" {
		msg = pcErr.Msg
	}

	switch kind {
	case KindValidation:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode("validation")
	case KindMethodNotAllowed:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode("method_not_allowed")
	case KindNotFound:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode("not_found")
	case KindTimeout:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("timeout")
	case KindCanceled:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("canceled")
	case KindRender:
		return errorslib.New(msg, errorslib.CategoryExternal).WithTextCode("render")
	case KindStorage:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("storage")
	case KindIndexCorrupt:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("index_corrupt")
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("internal")
	}
}
