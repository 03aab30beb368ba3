package export

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines export error kinds.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindTimeout    ErrorKind = "timeout"
	KindCanceled   ErrorKind = "canceled"
	KindInternal   ErrorKind = "internal"
	KindNotImpl    ErrorKind = "not_implemented"
)

// ExportError wraps errors with a kind.
type ExportError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewError creates a new export error.
func NewError(kind ErrorKind, msg string, err error) *ExportError {
	return &ExportError{Kind: kind, Msg: msg, Err: err}
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

	var exportErr *ExportError
	if errors.As(err, &exportErr) && exportErr.Msg != "" {
		msg = exportErr.Msg
	}

	switch kind {
	case KindValidation:
		return errorslib.Wrap(err, errorslib.CategoryValidation, msg).WithTextCode("validation")
	case KindNotFound:
		return errorslib.Wrap(err, errorslib.CategoryNotFound, msg).WithTextCode("not_found")
	case KindConflict:
		return errorslib.Wrap(err, errorslib.CategoryConflict, msg).WithTextCode("conflict")
	case KindTimeout:
		return errorslib.Wrap(err, errorslib.CategoryOperation, msg).WithTextCode("timeout")
	case KindCanceled:
		return errorslib.Wrap(err, errorslib.CategoryOperation, msg).WithTextCode("canceled")
	case KindNotImpl:
		return errorslib.Wrap(err, errorslib.CategoryOperation, msg).WithTextCode("not_implemented")
	default:
		return errorslib.Wrap(err, errorslib.CategoryInternal, msg).WithTextCode("internal")
	}
}

// KindFromError maps an error to its export error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Kind
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		switch ge.TextCode {
		case string(KindValidation), string(KindNotFound), string(KindConflict),
			string(KindTimeout), string(KindCanceled), string(KindNotImpl):
			return ErrorKind(ge.TextCode)
		}
	}

	return KindInternal
}
