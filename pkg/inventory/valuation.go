package inventory

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ValuationEngine computes the dollar value of stock on hand for quoting and
// reporting. Items without a unit price contribute zero and are counted so
// the report can flag incomplete pricing.
type ValuationEngine struct {
	storage Storage
	logger  *zap.Logger
}

// NewValuationEngine creates a new valuation engine.
func NewValuationEngine(storage Storage, logger *zap.Logger) *ValuationEngine {
	return &ValuationEngine{
		storage: storage,
		logger:  logger,
	}
}

// ItemValuation is one item's contribution to stock value.
type ItemValuation struct {
	InventoryID string          `json:"inventory_id"`
	Name        string          `json:"name"`
	Category    ItemCategory    `json:"category"`
	InStock     decimal.Decimal `json:"in_stock"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Value       decimal.Decimal `json:"value"`
	Priced      bool            `json:"priced"`
}

// ValuationReport is the stock value rollup.
type ValuationReport struct {
	Items         []ItemValuation                  `json:"items"`
	ByCategory    map[ItemCategory]decimal.Decimal `json:"by_category"`
	TotalValue    decimal.Decimal                  `json:"total_value"`
	UnpricedItems int                              `json:"unpriced_items"`
}

// CalculateItemValue returns in_stock x unit_price for one item. Items with
// no unit price are valued at zero.
func (v *ValuationEngine) CalculateItemValue(ctx context.Context, itemID string) (decimal.Decimal, error) {
	item, err := v.storage.GetItem(ctx, itemID)
	if err != nil {
		if err == ErrItemNotFound {
			return decimal.Zero, ErrItemNotFound
		}
		return decimal.Zero, NewStorageError("get_item", "failed to load item", err)
	}

	if !item.UnitPrice.Valid {
		return decimal.Zero, nil
	}
	return item.InStock.Mul(item.UnitPrice.Decimal), nil
}

// GenerateReport values all stock on hand and rolls it up per category.
func (v *ValuationEngine) GenerateReport(ctx context.Context) (*ValuationReport, error) {
	items, err := v.storage.ListItems(ctx)
	if err != nil {
		return nil, NewStorageError("list_items", "failed to list items", err)
	}

	report := &ValuationReport{
		Items:      make([]ItemValuation, 0, len(items)),
		ByCategory: make(map[ItemCategory]decimal.Decimal),
		TotalValue: decimal.Zero,
	}

	for _, item := range items {
		valuation := ItemValuation{
			InventoryID: item.ID,
			Name:        item.Name,
			Category:    item.Category,
			InStock:     item.InStock,
			Priced:      item.UnitPrice.Valid,
		}
		if item.UnitPrice.Valid {
			valuation.UnitPrice = item.UnitPrice.Decimal
			valuation.Value = item.InStock.Mul(item.UnitPrice.Decimal)
		} else {
			report.UnpricedItems++
		}

		report.Items = append(report.Items, valuation)
		report.ByCategory[item.Category] = report.ByCategory[item.Category].Add(valuation.Value)
		report.TotalValue = report.TotalValue.Add(valuation.Value)
	}

	v.logger.Info("valuation report generated",
		zap.Int("items", len(report.Items)),
		zap.Int("unpriced_items", report.UnpricedItems),
		zap.String("total_value", report.TotalValue.String()),
	)

	return report, nil
}
