package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/nota-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateUpdate checks user edits against the same rules imports follow.
func validateUpdate(u model.TransactionUpdate) error {
	if u.MerchantName != nil && strings.TrimSpace(*u.MerchantName) == "" {
		return fmt.Errorf("%w: merchant name cannot be empty", model.ErrInvalidTransaction)
	}
	if u.OccurredOn != nil {
		if _, err := time.Parse("2006-01-02", *u.OccurredOn); err != nil {
			return fmt.Errorf("%w: occurred_on %q", model.ErrInvalidTransaction, *u.OccurredOn)
		}
	}
	return nil
}

// validateFilter rejects impossible listing windows.
func validateFilter(f model.TransactionFilter) error {
	if f.Limit < 0 || f.Offset < 0 {
		return ErrInvalidLimit
	}
	if f.StartDate != nil && f.EndDate != nil && *f.StartDate > *f.EndDate {
		return fmt.Errorf("start date %s is after end date %s", *f.StartDate, *f.EndDate)
	}
	return nil
}
