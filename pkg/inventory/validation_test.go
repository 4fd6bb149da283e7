package inventory

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateItemID(t *testing.T) {
	assert.NoError(t, ValidateItemID("oak-lumber_01"))

	assert.Error(t, ValidateItemID(""))
	assert.Error(t, ValidateItemID("has spaces"))
	assert.Error(t, ValidateItemID("semi;colon"))
	assert.Error(t, ValidateItemID(strings.Repeat("a", 256)))
}

func TestValidateCategory(t *testing.T) {
	assert.NoError(t, ValidateCategory(CategoryFoam))
	assert.Error(t, ValidateCategory(ItemCategory("plastics")))
}

func TestValidateQuantities(t *testing.T) {
	assert.NoError(t, ValidatePositiveQuantity("quantity", decimal.NewFromFloat(0.5)))
	assert.Error(t, ValidatePositiveQuantity("quantity", decimal.Zero))
	assert.Error(t, ValidatePositiveQuantity("quantity", decimal.NewFromInt(-1)))

	assert.NoError(t, ValidateNonNegativeQuantity("in_stock", decimal.Zero))
	assert.Error(t, ValidateNonNegativeQuantity("in_stock", decimal.NewFromInt(-1)))
}

func TestValidateReason(t *testing.T) {
	assert.NoError(t, ValidateReason("cycle count"))
	assert.Error(t, ValidateReason(""))
	assert.Error(t, ValidateReason("   "))
	assert.Error(t, ValidateReason(strings.Repeat("x", 501)))
}

func TestValidationError_Fields(t *testing.T) {
	err := ValidateItemID("")
	assert.Contains(t, err.Error(), "item_id")
}
