package service

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorValidation  ErrorCode = "VALIDATION_ERROR"
	ErrorNotFound    ErrorCode = "NOT_FOUND"
	ErrorPersistence ErrorCode = "PERSISTENCE_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("service: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("service: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func validationError(reason string) *Error {
	return newError(ErrorValidation, reason, nil)
}

func notFoundError(reason string) *Error {
	return newError(ErrorNotFound, reason, nil)
}

func persistenceError(reason string, err error) *Error {
	return newError(ErrorPersistence, reason, err)
}

// CodeOf returns the service error code carried by err, or "" when err is
// not a service error.
func CodeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}
