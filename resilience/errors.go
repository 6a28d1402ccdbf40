// Package resilience provides generic wrappers for invoking fallible
// operations: backoff retry, circuit breaker, adaptive-strategy retry, and
// timeouts. It knows nothing about planning.
package resilience

import (
	"errors"
)

// PermanentError marks a failure that will not succeed on retry. Retry
// wrappers surface it immediately without further attempts.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a permanent failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is classified permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// TransientError marks a failure that may succeed on retry. Unclassified
// errors are treated the same way.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a transient failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is explicitly classified transient.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
