package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/canvasworks/shopstock/pkg/inventory"
	"github.com/canvasworks/shopstock/pkg/inventory/storage"
)

func pricedItem(id string, category inventory.ItemCategory, inStock int64, price string) *inventory.Item {
	now := time.Now()
	p, _ := decimal.NewFromString(price)
	return &inventory.Item{
		ID:        id,
		Name:      id,
		Category:  category,
		InStock:   decimal.NewFromInt(inStock),
		UnitPrice: decimal.NewNullDecimal(p),
		Unit:      "ea",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestValuationEngine_GenerateReport(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, store.CreateItem(ctx, pricedItem("oak", inventory.CategoryMaterial, 10, "12.50")))
	require.NoError(t, store.CreateItem(ctx, pricedItem("foam", inventory.CategoryFoam, 4, "8.00")))

	unpriced := pricedItem("scrap", inventory.CategoryMiscSupplies, 100, "0")
	unpriced.UnitPrice = decimal.NullDecimal{}
	require.NoError(t, store.CreateItem(ctx, unpriced))

	engine := inventory.NewValuationEngine(store, zap.NewNop())
	report, err := engine.GenerateReport(ctx)
	require.NoError(t, err)

	assert.Len(t, report.Items, 3)
	assert.Equal(t, 1, report.UnpricedItems)
	assert.True(t, report.TotalValue.Equal(decimal.RequireFromString("157")), "got %s", report.TotalValue)
	assert.True(t, report.ByCategory[inventory.CategoryMaterial].Equal(decimal.RequireFromString("125")))
	assert.True(t, report.ByCategory[inventory.CategoryFoam].Equal(decimal.RequireFromString("32")))
	assert.True(t, report.ByCategory[inventory.CategoryMiscSupplies].IsZero())
}

func TestValuationEngine_CalculateItemValue(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, store.CreateItem(ctx, pricedItem("oak", inventory.CategoryMaterial, 10, "12.50")))

	engine := inventory.NewValuationEngine(store, zap.NewNop())

	value, err := engine.CalculateItemValue(ctx, "oak")
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("125")))

	_, err = engine.CalculateItemValue(ctx, "missing")
	assert.Equal(t, inventory.ErrItemNotFound, err)
}

func TestOrderTracker_Outstanding(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.CreateOrder(ctx, &inventory.PurchaseOrder{
		PONumber:    "po-1",
		InventoryID: "oak",
		Quantity:    decimal.NewFromInt(50),
		Received:    decimal.NewFromInt(20),
		Status:      inventory.OrderStatusOpen,
		CreatedBy:   "bob",
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	require.NoError(t, store.CreateOrder(ctx, &inventory.PurchaseOrder{
		PONumber:    "po-2",
		InventoryID: "oak",
		Quantity:    decimal.NewFromInt(10),
		Status:      inventory.OrderStatusOpen,
		CreatedBy:   "bob",
		CreatedAt:   now.Add(time.Minute),
		UpdatedAt:   now.Add(time.Minute),
	}))

	tracker := inventory.NewOrderTracker(store, zap.NewNop())

	outstanding, err := tracker.Outstanding(ctx, "oak")
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(40)))

	orders, err := tracker.OpenOrders(ctx, "oak")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "po-1", orders[0].PONumber)
}
