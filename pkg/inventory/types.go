// Package inventory provides the shop's stock allocation and reconciliation
// core: deriving allocated/available quantities from live jobs and applying
// stock-affecting events with a paired audit trail.
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemCategory groups stocked materials and supplies.
type ItemCategory string

const (
	CategoryMaterial     ItemCategory = "material"
	CategoryFoam         ItemCategory = "foam"
	CategoryTrimCord     ItemCategory = "trimCord"
	CategoryPrinting3D   ItemCategory = "printing3d"
	CategoryChemicals    ItemCategory = "chemicals"
	CategoryHardware     ItemCategory = "hardware"
	CategoryMiscSupplies ItemCategory = "miscSupplies"
)

// Valid reports whether c is a known category.
func (c ItemCategory) Valid() bool {
	switch c {
	case CategoryMaterial, CategoryFoam, CategoryTrimCord, CategoryPrinting3D,
		CategoryChemicals, CategoryHardware, CategoryMiscSupplies:
		return true
	}
	return false
}

// Item is a stocked material or supply. InStock and OnOrder are the only
// persisted stock columns; allocated and available are always derived from
// live job state (see StockLevel) and never stored as source of truth.
type Item struct {
	ID           string              `json:"id" db:"id"`
	Name         string              `json:"name" db:"name"`
	Category     ItemCategory        `json:"category" db:"category"`
	InStock      decimal.Decimal     `json:"in_stock" db:"in_stock"`
	OnOrder      decimal.Decimal     `json:"on_order" db:"on_order"`
	ReorderPoint decimal.NullDecimal `json:"reorder_point" db:"reorder_point"`
	Unit         string              `json:"unit" db:"unit"`
	UnitPrice    decimal.NullDecimal `json:"unit_price" db:"unit_price"`
	Version      int64               `json:"version" db:"version"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" db:"updated_at"`
}

// StockLevel is the read-time view of an item with its computed allocation.
// Available is max(0, InStock - Allocated); a shortage surfaces as
// Allocated > InStock with Available pinned at zero.
type StockLevel struct {
	Item      Item            `json:"item"`
	Allocated decimal.Decimal `json:"allocated"`
	Available decimal.Decimal `json:"available"`
}

// Shortage reports whether committed job demand exceeds physical stock.
func (s *StockLevel) Shortage() bool {
	return s.Allocated.GreaterThan(s.Item.InStock)
}

// ActionType identifies the kind of stock-affecting event in the audit trail.
type ActionType string

const (
	ActionManualAdjust         ActionType = "manual_adjust"
	ActionOrderPlaced          ActionType = "order_placed"
	ActionOrderReceived        ActionType = "order_received"
	ActionReconcileJob         ActionType = "reconcile_job"
	ActionReconcileJobReversal ActionType = "reconcile_job_reversal"
)

// HistoryEntry is an immutable record of one stock-affecting event. Every
// write to in_stock or on_order appends exactly one entry; entries are never
// edited or deleted by this core.
type HistoryEntry struct {
	ID                string          `json:"id" db:"id"`
	InventoryID       string          `json:"inventory_id" db:"inventory_id"`
	UserID            string          `json:"user_id" db:"user_id"`
	Action            ActionType      `json:"action" db:"action"`
	Reason            string          `json:"reason" db:"reason"`
	PreviousInStock   decimal.Decimal `json:"previous_in_stock" db:"previous_in_stock"`
	NewInStock        decimal.Decimal `json:"new_in_stock" db:"new_in_stock"`
	PreviousAvailable decimal.Decimal `json:"previous_available" db:"previous_available"`
	NewAvailable      decimal.Decimal `json:"new_available" db:"new_available"`
	ChangeAmount      decimal.Decimal `json:"change_amount" db:"change_amount"`
	RelatedJobID      *string         `json:"related_job_id" db:"related_job_id"`
	RelatedPO         *string         `json:"related_po" db:"related_po"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// OrderStatus is the lifecycle of a purchase order.
type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusReceived OrderStatus = "received"
)

// PurchaseOrder tracks quantity requested from a vendor and how much of it
// has arrived. Outstanding quantity feeds the item's on_order column.
type PurchaseOrder struct {
	PONumber    string          `json:"po_number" db:"po_number"`
	InventoryID string          `json:"inventory_id" db:"inventory_id"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	Received    decimal.Decimal `json:"received" db:"received"`
	Status      OrderStatus     `json:"status" db:"status"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Outstanding is the quantity still expected from the vendor.
func (o *PurchaseOrder) Outstanding() decimal.Decimal {
	remaining := o.Quantity.Sub(o.Received)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ReorderAlert marks an item whose computed available quantity dropped below
// its reorder point.
type ReorderAlert struct {
	ID           string          `json:"id" db:"id"`
	InventoryID  string          `json:"inventory_id" db:"inventory_id"`
	Available    decimal.Decimal `json:"available" db:"available"`
	ReorderPoint decimal.Decimal `json:"reorder_point" db:"reorder_point"`
	Message      string          `json:"message" db:"message"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	ResolvedAt   *time.Time      `json:"resolved_at" db:"resolved_at"`
}

// NewHistoryID generates a new history entry ID.
func NewHistoryID() string {
	return uuid.New().String()
}

// NewPONumber generates a new purchase order number.
func NewPONumber() string {
	return uuid.New().String()
}

// NewAlertID generates a new reorder alert ID.
func NewAlertID() string {
	return uuid.New().String()
}

// NewItemID generates a new inventory item ID.
func NewItemID() string {
	return uuid.New().String()
}
