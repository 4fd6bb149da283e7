package inventory

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderTracker answers purchase-order questions for the ordering screens:
// which POs are still open for an item and how much is outstanding overall.
// Mutation goes through the Engine (MarkOrdered/ReceiveOrder) so that the
// on_order column and the audit trail stay paired.
type OrderTracker struct {
	storage Storage
	logger  *zap.Logger
}

// NewOrderTracker creates a new order tracker.
func NewOrderTracker(storage Storage, logger *zap.Logger) *OrderTracker {
	return &OrderTracker{
		storage: storage,
		logger:  logger,
	}
}

// OpenOrders returns the open purchase orders for an item, oldest first.
func (t *OrderTracker) OpenOrders(ctx context.Context, itemID string) ([]PurchaseOrder, error) {
	if err := ValidateItemID(itemID); err != nil {
		return nil, err
	}

	orders, err := t.storage.ListOpenOrders(ctx, itemID)
	if err != nil {
		return nil, NewStorageError("list_open_orders", "failed to list open orders", err)
	}

	return orders, nil
}

// Outstanding sums the not-yet-received quantity across an item's open
// purchase orders. When PO rows and the item's on_order column disagree
// (e.g. a PO insert was lost), the on_order column is authoritative; this
// sum exists for display and drift detection.
func (t *OrderTracker) Outstanding(ctx context.Context, itemID string) (decimal.Decimal, error) {
	orders, err := t.OpenOrders(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for i := range orders {
		total = total.Add(orders[i].Outstanding())
	}

	t.logger.Debug("outstanding order quantity computed",
		zap.String("item_id", itemID),
		zap.Int("open_orders", len(orders)),
		zap.String("outstanding", total.String()),
	)

	return total, nil
}
