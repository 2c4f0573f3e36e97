// Package serr carries user-facing errors together with the HTTP status they map to.
package serr

import (
	"fmt"
	"runtime/debug"
)

type ServiceError struct {
	Err        error
	Msg        string
	StackTrace string
	StatusCode int
	Env        map[string]string
}

func New(err error, statusCode int, msg string, args ...any) *ServiceError {
	return &ServiceError{
		Err:        err,
		Msg:        fmt.Sprintf(msg, args...),
		StatusCode: statusCode,
		StackTrace: string(debug.Stack()),
		Env:        make(map[string]string),
	}
}

// With records a diagnostic key/value and returns the error for chaining.
func (e *ServiceError) With(key, value string) *ServiceError {
	e.Env[key] = value
	return e
}

func (e *ServiceError) Error() string {
	return e.Msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
