package inventory

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateItemID validates an inventory item identifier
func ValidateItemID(itemID string) error {
	if itemID == "" {
		return NewValidationError("item_id", "item ID is empty", itemID)
	}
	if len(itemID) > 255 {
		return NewValidationError("item_id", "item ID is too long", itemID)
	}
	if !idPattern.MatchString(itemID) {
		return NewValidationError("item_id", "item ID contains invalid characters", itemID)
	}
	return nil
}

// ValidateJobID validates a job identifier
func ValidateJobID(jobID string) error {
	if jobID == "" {
		return NewValidationError("job_id", "job ID is empty", jobID)
	}
	if len(jobID) > 255 {
		return NewValidationError("job_id", "job ID is too long", jobID)
	}
	if !idPattern.MatchString(jobID) {
		return NewValidationError("job_id", "job ID contains invalid characters", jobID)
	}
	return nil
}

// ValidateItemName validates an item name
func ValidateItemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name", "item name is empty", name)
	}
	if len(name) > 500 {
		return NewValidationError("name", "item name is too long", name)
	}
	return nil
}

// ValidateCategory validates an item category
func ValidateCategory(category ItemCategory) error {
	if !category.Valid() {
		return NewValidationError("category", "unknown item category", string(category))
	}
	return nil
}

// ValidateUnit validates a unit-of-measure label
func ValidateUnit(unit string) error {
	if strings.TrimSpace(unit) == "" {
		return NewValidationError("unit", "unit is empty", unit)
	}
	if len(unit) > 64 {
		return NewValidationError("unit", "unit is too long", unit)
	}
	return nil
}

// ValidatePositiveQuantity validates a quantity that must be strictly positive
func ValidatePositiveQuantity(field string, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return NewValidationError(field, "quantity must be positive", quantity.String())
	}
	return nil
}

// ValidateNonNegativeQuantity validates a quantity that must not be negative
func ValidateNonNegativeQuantity(field string, quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return NewValidationError(field, "quantity must not be negative", quantity.String())
	}
	return nil
}

// ValidateReason validates the human-readable reason on a stock event
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("reason", "reason is empty", reason)
	}
	if len(reason) > 500 {
		return NewValidationError("reason", "reason is too long", reason)
	}
	return nil
}
