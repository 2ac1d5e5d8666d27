package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies failures of upstream services.
type Kind string

const (
	KindQuotaExceeded Kind = "quota_exceeded"
	KindRateLimited   Kind = "rate_limited"
	KindUnauthorized  Kind = "unauthorized"
	KindUpstream      Kind = "upstream"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Kind    Kind   `json:"type,omitempty"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func NotFound(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// External reports a failed call to a third-party API. Quota and rate
// limit failures are temporary from the caller's point of view and map to
// 503; everything else is a bad gateway.
func External(op string, kind Kind, err error, message string) *AppError {
	code := http.StatusBadGateway
	if kind == KindQuotaExceeded || kind == KindRateLimited {
		code = http.StatusServiceUnavailable
	}
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Op:      op,
		Err:     err,
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == http.StatusNotFound
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// StatusCode returns the HTTP status for err, defaulting to 500.
func StatusCode(err error) int {
	if appErr, ok := As(err); ok && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
