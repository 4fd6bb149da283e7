package inventory

import (
	"errors"
	"fmt"
)

// Common inventory errors

var (
	// ErrItemNotFound is returned when an inventory item doesn't exist
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrJobNotFound is returned when a referenced job doesn't exist
	ErrJobNotFound = errors.New("job not found")

	// ErrOrderNotFound is returned when a purchase order doesn't exist
	ErrOrderNotFound = errors.New("purchase order not found")

	// ErrAlertNotFound is returned when a reorder alert doesn't exist
	ErrAlertNotFound = errors.New("reorder alert not found")

	// ErrHistoryNotFound is returned when no matching audit entry exists
	ErrHistoryNotFound = errors.New("history entry not found")

	// ErrDuplicateItem is returned when creating an item that already exists
	ErrDuplicateItem = errors.New("inventory item already exists")

	// ErrDuplicateJob is returned when creating a job that already exists
	ErrDuplicateJob = errors.New("job already exists")

	// ErrVersionMismatch is returned when a compare-and-swap write loses a race
	ErrVersionMismatch = errors.New("item version mismatch: updated by another user")

	// ErrInvalidStatus is returned when a job status is not a known value
	ErrInvalidStatus = errors.New("invalid job status")
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s (value: %s)", e.Field, e.Message, e.Value)
}

// BusinessRuleError represents a business rule violation
type BusinessRuleError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Context string `json:"context"`
}

func (e BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation [%s]: %s (context: %s)", e.Rule, e.Message, e.Context)
}

// StorageError represents a storage layer error
type StorageError struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Cause     error  `json:"cause"`
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage error [%s]: %s (cause: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("storage error [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewBusinessRuleError creates a new business rule error
func NewBusinessRuleError(rule, message, context string) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// NewStorageError creates a new storage error
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
