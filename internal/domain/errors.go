package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds is returned when a buy costs more than the cash balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares is returned when a sell exceeds the held quantity
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrNotFound is returned for operations on an unknown stock or account
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a non-admin identity mutates the catalog
	ErrForbidden = errors.New("operation requires an admin identity")

	// ErrRecordNotFound is returned by a RecordStore when the key has never been saved
	ErrRecordNotFound = errors.New("record not found")
)

// ValidationError reports a malformed stock spec or transaction
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
