package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/canvasworks/shopstock/pkg/jobs"
)

// Storage defines the interface for the data persistence layer. It is the
// single boundary between snake_case store rows and the domain types; the
// engine never sees wire shapes.
type Storage interface {
	// Item catalog
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, itemID string) (*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	UpdateItemStock(ctx context.Context, item *Item) error
	ListItems(ctx context.Context) ([]Item, error)

	// Audit trail (append-only)
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
	ListHistory(ctx context.Context, itemID string, limit int) ([]HistoryEntry, error)
	LastReconcileEntry(ctx context.Context, jobID, itemID string) (*HistoryEntry, error)

	// Job collaborator (read plus the two columns this core owns on it:
	// status is written by the transition handler, reconciled_at by the engine)
	CreateJob(ctx context.Context, job *jobs.Job) error
	GetJob(ctx context.Context, jobID string) (*jobs.Job, error)
	ListJobs(ctx context.Context) ([]jobs.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status jobs.Status) error
	SetJobReconciled(ctx context.Context, jobID string, reconciledAt *time.Time) error

	// Purchase orders
	CreateOrder(ctx context.Context, order *PurchaseOrder) error
	UpdateOrder(ctx context.Context, order *PurchaseOrder) error
	ListOpenOrders(ctx context.Context, itemID string) ([]PurchaseOrder, error)

	// Reorder alerts
	CreateAlert(ctx context.Context, alert *ReorderAlert) error
	ActiveAlertExists(ctx context.Context, itemID string) (bool, error)
	ListActiveAlerts(ctx context.Context) ([]ReorderAlert, error)
	ResolveAlert(ctx context.Context, alertID string) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher defines the interface for publishing stock events. A nil
// publisher disables publishing; the engine treats publish failures as
// log-only.
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, event StockChangedEvent) error
	PublishReorderAlert(ctx context.Context, event ReorderAlertEvent) error
}

// StockChangedEvent mirrors one audit entry for downstream consumers
// (notification hooks, cache invalidation).
type StockChangedEvent struct {
	InventoryID       string          `json:"inventory_id"`
	Action            ActionType      `json:"action"`
	PreviousInStock   decimal.Decimal `json:"previous_in_stock"`
	NewInStock        decimal.Decimal `json:"new_in_stock"`
	PreviousAvailable decimal.Decimal `json:"previous_available"`
	NewAvailable      decimal.Decimal `json:"new_available"`
	ChangeAmount      decimal.Decimal `json:"change_amount"`
	RelatedJobID      *string         `json:"related_job_id,omitempty"`
	RelatedPO         *string         `json:"related_po,omitempty"`
	UserID            string          `json:"user_id"`
	Timestamp         time.Time       `json:"timestamp"`
}

// ReorderAlertEvent signals that an item's available quantity fell below its
// reorder point.
type ReorderAlertEvent struct {
	InventoryID  string          `json:"inventory_id"`
	Available    decimal.Decimal `json:"available"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
	Timestamp    time.Time       `json:"timestamp"`
}
