// Package errs defines the error taxonomy for the trading pipeline.
//
// Four classes exist:
//   - Rejection: a candidate failed a rule. Expected, logged, never retried.
//   - Transient: network congestion or timeout. Retried up to a cap.
//   - Validation: malformed transaction, insufficient balance. Fatal, no retry.
//   - DataUnavailable: a safety/holder fetch failed. Treated as a rejection
//     via the fail-closed default, never silently skipped.
package errs

import (
	"errors"
	"fmt"
)

// RejectionError marks an expected rule failure for a single candidate.
type RejectionError struct {
	Rule   string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rejected by %s: %s", e.Rule, e.Reason)
}

// Reject creates a RejectionError.
func Reject(rule, format string, args ...interface{}) *RejectionError {
	return &RejectionError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// TransientError marks a retryable execution failure (congestion, timeout).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// ValidationError marks a fatal execution failure that must not be retried,
// e.g. insufficient balance or a malformed instruction.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failure in %s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Fatal wraps err as non-retryable.
func Fatal(op string, err error) *ValidationError {
	return &ValidationError{Op: op, Err: err}
}

// DataUnavailableError marks a failed or timed-out external data fetch.
// Callers must treat it as a rejection (fail-closed), never as a pass.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s data unavailable: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// DataUnavailable wraps err as a failed external fetch.
func DataUnavailable(source string, err error) *DataUnavailableError {
	return &DataUnavailableError{Source: source, Err: err}
}

// IsRejection reports whether err is a rule rejection or unavailable data.
// Both terminate a candidate's pipeline run without being a fault.
func IsRejection(err error) bool {
	var rej *RejectionError
	var unavail *DataUnavailableError
	return errors.As(err, &rej) || errors.As(err, &unavail)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var tr *TransientError
	return errors.As(err, &tr)
}

// IsFatal reports whether err is a non-retryable execution failure.
func IsFatal(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
