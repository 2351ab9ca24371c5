package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned (wrapped) when a record does not exist.
	ErrNotFound = errors.New("record not found")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 characters")
	ErrSessionExpired     = errors.New("session has expired")
	ErrNoSession          = errors.New("no active session")
)

// ReadError is a failed fetch from a collection.
type ReadError struct {
	Collection string
	Op         string
	Err        error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s.%s: %v", e.Collection, e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is a failed insert, update or delete.
type WriteError struct {
	Collection string
	Op         string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s.%s: %v", e.Collection, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// AuthError is a failed authentication call. Its message is safe to show to the user.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

func readErr(collection, op string, err error) error {
	return &ReadError{Collection: collection, Op: op, Err: err}
}

func writeErr(collection, op string, err error) error {
	return &WriteError{Collection: collection, Op: op, Err: err}
}

func authErr(op string, err error) error {
	return &AuthError{Op: op, Err: err}
}

func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
