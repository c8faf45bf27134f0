// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Extraction errors.
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrNotAReceipt   = errors.New("not a receipt")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ConfigError is a fatal configuration problem detected before any work starts.
type ConfigError struct {
	Err     error
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Setting, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MissingConfig reports a required setting that was not provided.
func MissingConfig(setting string) error {
	return &ConfigError{Setting: setting, Err: ErrMissingConfig}
}

// InvalidConfig reports a setting whose value cannot be used.
func InvalidConfig(setting, reason string) error {
	return &ConfigError{Setting: setting, Err: fmt.Errorf("%w: %s", ErrInvalidConfig, reason)}
}

// IsConfigError reports whether err is a fatal configuration error.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// QuotaError is returned when a caller exceeds its allowance. The operation is not
// queued; the caller may retry after RetryAfter.
type QuotaError struct {
	Key        string
	RetryAfter time.Duration
	Limit      int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota of %d exceeded for %s, retry after %s", e.Limit, e.Key, e.RetryAfter.Round(time.Second))
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
