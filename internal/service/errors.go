package service

import (
	"errors"
	"fmt"
)

// Guest errors
var (
	ErrGuestNotFound  = errors.New("guest not found")
	ErrFamilyNotFound = errors.New("family not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Admin auth errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ValidationError reports a field that failed a name, type or domain rule.
// It is always returned before any row is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps a database failure. The transaction it occurred in has
// been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// txErr passes through domain errors from a transaction body and wraps
// everything else, such as a failed commit, as a StorageError
func txErr(op string, err error) error {
	var (
		se *StorageError
		ve *ValidationError
	)
	if errors.Is(err, ErrGuestNotFound) || errors.Is(err, ErrFamilyNotFound) || errors.As(err, &se) || errors.As(err, &ve) {
		return err
	}
	return storageErr(op, err)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
