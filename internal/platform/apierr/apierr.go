package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for both HTTP mapping and retry policy.
type Code string

const (
	// CodeValidation: bad input. Never retried.
	CodeValidation Code = "validation"
	// CodeConflict: duplicate / already exists. Surfaced as "already
	// processed" rather than failure on idempotent paths.
	CodeConflict Code = "conflict"
	// CodeNotFound: missing resource.
	CodeNotFound Code = "not_found"
	// CodeSignature: webhook signature mismatch. Fatal, no state mutation.
	CodeSignature Code = "signature"
	// CodeTransient: store/gateway unavailable. Retryable with backoff.
	CodeTransient Code = "transient"
	// CodeFatalConfig: missing required metadata or secret. Logged loudly,
	// never retried automatically.
	CodeFatalConfig Code = "fatal_config"
	CodeInternal    Code = "internal"
)

type Error struct {
	Code Code
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, op, msg string, err error) *Error {
	return &Error{Code: code, Op: op, Msg: msg, Err: err}
}

func Validation(op, msg string) *Error { return New(CodeValidation, op, msg, nil) }
func Conflict(op, msg string) *Error   { return New(CodeConflict, op, msg, nil) }
func NotFound(op, msg string) *Error   { return New(CodeNotFound, op, msg, nil) }

func Signature(op string, err error) *Error {
	return New(CodeSignature, op, "invalid signature", err)
}

func Transient(op string, err error) *Error {
	return New(CodeTransient, op, "", err)
}

func FatalConfig(op, msg string) *Error { return New(CodeFatalConfig, op, msg, nil) }

// CodeOf extracts the classification from an error chain, defaulting to
// CodeInternal for unclassified failures.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a classification onto the status the transport layer
// responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeSignature:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTransient:
		return http.StatusServiceUnavailable
	case CodeFatalConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
