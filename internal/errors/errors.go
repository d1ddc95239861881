// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrNotFound             = errors.New("subject not found")
	ErrRateLimited          = errors.New("rate limited")
	ErrTimeout              = errors.New("operation timed out")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrSentimentUnavailable = errors.New("sentiment unavailable")
	ErrDeliveryForbidden    = errors.New("delivery forbidden")
	ErrSchedulerRunning     = errors.New("scheduler already running")
	ErrWatchlistFull        = errors.New("watchlist limit reached")
	ErrDatabaseError        = errors.New("database error")
)

// FetchError represents a transient quote or sentiment fetch failure.
// The affected subject is skipped for the current cycle only.
type FetchError struct {
	Source  string
	Subject string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error [%s] %s: %v", e.Source, e.Subject, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(source, subject string, err error) *FetchError {
	return &FetchError{Source: source, Subject: subject, Err: err}
}

// RateLimitError carries the retry-after reported by a delivery surface.
type RateLimitError struct {
	Surface    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited [%s]: retry after %s", e.Surface, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(surface string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Surface: surface, RetryAfter: retryAfter}
}

// DeliveryError represents a permanent delivery failure (forbidden,
// recipient gone). It is logged and dropped, never retried.
type DeliveryError struct {
	Surface   string
	Recipient string
	Reason    string
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery error [%s] %s: %s: %v", e.Surface, e.Recipient, e.Reason, e.Err)
	}
	return fmt.Sprintf("delivery error [%s] %s: %s", e.Surface, e.Recipient, e.Reason)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(surface, recipient, reason string, err error) *DeliveryError {
	return &DeliveryError{Surface: surface, Recipient: recipient, Reason: reason, Err: err}
}

// ValidationError represents a configuration or input validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
