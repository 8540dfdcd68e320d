package modlog

import (
	"errors"
	"fmt"
	"time"
)

// TransientError is a network, rate-limit or server-side failure that is worth
// retrying with backoff.
type TransientError struct {
	Op         string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient upstream failure (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient upstream failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

type PermissionError struct {
	Op  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: permission denied: %v", e.Op, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// SchemaMigrationError means the store could not be brought to the expected
// schema. The store must not be used afterwards.
type SchemaMigrationError struct {
	From uint
	To   uint
	Err  error
}

func (e *SchemaMigrationError) Error() string {
	return fmt.Sprintf("schema migration from version %d to %d failed: %v", e.From, e.To, e.Err)
}

func (e *SchemaMigrationError) Unwrap() error { return e.Err }

// RenderOverflowError is returned when the newest date group alone does not fit
// under the document size ceiling.
type RenderOverflowError struct {
	Date  string
	Size  int
	Limit int
}

func (e *RenderOverflowError) Error() string {
	return fmt.Sprintf("newest date group %s renders to %d characters, over the %d character limit", e.Date, e.Size, e.Limit)
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsFatal(err error) bool {
	var (
		ae *AuthError
		pe *PermissionError
		se *SchemaMigrationError
	)
	return errors.As(err, &ae) || errors.As(err, &pe) || errors.As(err, &se)
}
