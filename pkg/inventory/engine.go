package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/canvasworks/shopstock/pkg/jobs"
)

// Engine applies stock-affecting business events: job delivery
// reconciliation and its reversal, manual adjustments, and vendor order
// placement/receipt. Every in_stock/on_order write is paired with exactly
// one audit entry whose available snapshots come from the allocation
// calculator against the live job list.
type Engine struct {
	storage   Storage
	publisher EventPublisher
	logger    *zap.Logger
	config    *Config
}

// Config holds engine configuration.
type Config struct {
	ReorderAlertsEnabled bool   `yaml:"reorder_alerts_enabled"`
	DefaultActor         string `yaml:"default_actor"`
}

// NewEngine creates a new reconciliation engine. A nil publisher disables
// event publishing; a nil config falls back to defaults.
func NewEngine(storage Storage, publisher EventPublisher, logger *zap.Logger, config *Config) *Engine {
	if config == nil {
		config = &Config{
			ReorderAlertsEnabled: true,
			DefaultActor:         "system",
		}
	}

	return &Engine{
		storage:   storage,
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

// materialRequirement is a job's total demand for one inventory item. Links
// to the same item are summed so each item is reconciled exactly once and
// carries exactly one audit entry per operation; reversal then restores that
// entry's quantity once regardless of how the demand was split across links.
type materialRequirement struct {
	inventoryID string
	quantity    decimal.Decimal
	unit        string
}

// aggregateMaterials sums a job's positive-quantity links per item,
// preserving first-seen order. The unit label comes from the first link.
func aggregateMaterials(links []jobs.MaterialLink) []materialRequirement {
	var requirements []materialRequirement
	index := make(map[string]int)
	for _, link := range links {
		if !link.Quantity.IsPositive() {
			continue
		}
		if i, ok := index[link.InventoryID]; ok {
			requirements[i].quantity = requirements[i].quantity.Add(link.Quantity)
			continue
		}
		index[link.InventoryID] = len(requirements)
		requirements = append(requirements, materialRequirement{
			inventoryID: link.InventoryID,
			quantity:    link.Quantity,
			unit:        link.Unit,
		})
	}
	return requirements
}

// ItemResult records one successfully reconciled material within a job
// operation, with the authoritative post-write values so the caller can
// patch local state or refetch.
type ItemResult struct {
	InventoryID  string          `json:"inventory_id"`
	Applied      decimal.Decimal `json:"applied"`
	NewInStock   decimal.Decimal `json:"new_in_stock"`
	NewAvailable decimal.Decimal `json:"new_available"`
}

// ItemFailure records one material that could not be reconciled.
type ItemFailure struct {
	InventoryID string `json:"inventory_id"`
	Reason      string `json:"reason"`
}

// ReconcileResult aggregates the per-item outcome of a job reconciliation or
// reversal. Multi-item operations are best effort: items already updated
// stay updated, remaining items are still attempted, and failures are
// reported here for retry or manual correction. There is no cross-item
// transaction.
type ReconcileResult struct {
	JobID     string        `json:"job_id"`
	Action    ActionType    `json:"action"`
	Succeeded []ItemResult  `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

// Applied reports whether the operation touched anything.
func (r *ReconcileResult) Applied() bool {
	return len(r.Succeeded) > 0 || len(r.Failed) > 0
}

// ReconcileJobDelivered consumes a delivered job's materials from physical
// stock: links are aggregated per item, each item's in_stock drops by
// min(in_stock, total quantity) with one audit entry per item, and the job
// stops counting toward allocation.
// Idempotent: a job that is already reconciled returns an empty result.
// The job's reconciled_at marker is set once any item has been consumed, so
// a retry after partial failure never double-subtracts; failed items are
// reported for manual adjustment.
func (e *Engine) ReconcileJobDelivered(ctx context.Context, jobID, actor string) (*ReconcileResult, error) {
	if err := ValidateJobID(jobID); err != nil {
		return nil, err
	}
	actor = e.actorOrDefault(actor)

	job, err := e.storage.GetJob(ctx, jobID)
	if err != nil {
		if err == ErrJobNotFound {
			return nil, ErrJobNotFound
		}
		return nil, NewStorageError("get_job", "failed to load job", err)
	}

	result := &ReconcileResult{JobID: jobID, Action: ActionReconcileJob}
	if job.Reconciled() {
		// Already consumed; nothing to do.
		return result, nil
	}

	jobList, err := e.storage.ListJobs(ctx)
	if err != nil {
		return nil, NewStorageError("list_jobs", "failed to load job snapshot", err)
	}
	// Allocation from every job except the one being delivered. Adding the
	// link quantity back gives the pre-delivery snapshot; the bare index is
	// the post-delivery one.
	otherAlloc := allocatedIndexExcluding(jobList, jobID)

	for _, req := range aggregateMaterials(job.Materials) {
		item, err := e.storage.GetItem(ctx, req.inventoryID)
		if err != nil {
			result.Failed = append(result.Failed, ItemFailure{InventoryID: req.inventoryID, Reason: err.Error()})
			stockOperations.WithLabelValues(string(ActionReconcileJob), resultFailed).Inc()
			continue
		}

		previousInStock := item.InStock
		previousAvailable := CalculateAvailable(previousInStock, otherAlloc[item.ID].Add(req.quantity))

		// Clamp: never drive in_stock negative. The shortfall never
		// physically left the shelf, so only the removed quantity is owed
		// back on reversal.
		removed := req.quantity
		if removed.GreaterThan(item.InStock) {
			removed = item.InStock
		}

		item.InStock = item.InStock.Sub(removed)
		item.Version++
		item.UpdatedAt = time.Now()

		if err := e.storage.UpdateItemStock(ctx, item); err != nil {
			result.Failed = append(result.Failed, ItemFailure{InventoryID: item.ID, Reason: err.Error()})
			stockOperations.WithLabelValues(string(ActionReconcileJob), resultFailed).Inc()
			continue
		}

		newAvailable := CalculateAvailable(item.InStock, otherAlloc[item.ID])
		e.appendHistory(ctx, &HistoryEntry{
			ID:                NewHistoryID(),
			InventoryID:       item.ID,
			UserID:            actor,
			Action:            ActionReconcileJob,
			Reason:            fmt.Sprintf("job %s delivered: consumed %s %s", jobID, removed.String(), req.unit),
			PreviousInStock:   previousInStock,
			NewInStock:        item.InStock,
			PreviousAvailable: previousAvailable,
			NewAvailable:      newAvailable,
			ChangeAmount:      removed.Neg(),
			RelatedJobID:      &jobID,
			CreatedAt:         time.Now(),
		})

		e.checkReorderPoint(ctx, item, newAvailable)
		stockOperations.WithLabelValues(string(ActionReconcileJob), resultOK).Inc()

		result.Succeeded = append(result.Succeeded, ItemResult{
			InventoryID:  item.ID,
			Applied:      removed,
			NewInStock:   item.InStock,
			NewAvailable: newAvailable,
		})
	}

	if len(result.Succeeded) > 0 || len(result.Failed) == 0 {
		now := time.Now()
		if err := e.storage.SetJobReconciled(ctx, jobID, &now); err != nil {
			e.logger.Error("failed to mark job reconciled", zap.String("job_id", jobID), zap.Error(err))
		}
	}

	e.logger.Info("job reconciliation complete",
		zap.String("job_id", jobID),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
		zap.String("actor", actor),
	)

	return result, nil
}

// ReverseJobReconciliation undoes a prior delivery reconciliation when a
// delivered job is reopened. Each material is restored by the quantity its
// reconcile_job audit entry actually removed, which keeps the clamped case
// honest: delivering 50 against a stock of 20 removed 20, so reversal
// restores 20. Idempotent: a job that was never reconciled (or already
// reversed) returns an empty result.
func (e *Engine) ReverseJobReconciliation(ctx context.Context, jobID, actor string) (*ReconcileResult, error) {
	if err := ValidateJobID(jobID); err != nil {
		return nil, err
	}
	actor = e.actorOrDefault(actor)

	job, err := e.storage.GetJob(ctx, jobID)
	if err != nil {
		if err == ErrJobNotFound {
			return nil, ErrJobNotFound
		}
		return nil, NewStorageError("get_job", "failed to load job", err)
	}

	result := &ReconcileResult{JobID: jobID, Action: ActionReconcileJobReversal}
	if !job.Reconciled() {
		// Nothing was consumed; nothing to restore.
		return result, nil
	}

	jobList, err := e.storage.ListJobs(ctx)
	if err != nil {
		return nil, NewStorageError("list_jobs", "failed to load job snapshot", err)
	}
	otherAlloc := allocatedIndexExcluding(jobList, jobID)

	for _, req := range aggregateMaterials(job.Materials) {
		item, err := e.storage.GetItem(ctx, req.inventoryID)
		if err != nil {
			result.Failed = append(result.Failed, ItemFailure{InventoryID: req.inventoryID, Reason: err.Error()})
			stockOperations.WithLabelValues(string(ActionReconcileJobReversal), resultFailed).Inc()
			continue
		}

		entry, err := e.storage.LastReconcileEntry(ctx, jobID, req.inventoryID)
		if err != nil {
			result.Failed = append(result.Failed, ItemFailure{InventoryID: req.inventoryID, Reason: err.Error()})
			stockOperations.WithLabelValues(string(ActionReconcileJobReversal), resultFailed).Inc()
			continue
		}
		restored := entry.ChangeAmount.Abs()

		previousInStock := item.InStock
		// The job is still excluded from allocation before the reversal and
		// re-admitted after it.
		previousAvailable := CalculateAvailable(previousInStock, otherAlloc[item.ID])

		item.InStock = item.InStock.Add(restored)
		item.Version++
		item.UpdatedAt = time.Now()

		if err := e.storage.UpdateItemStock(ctx, item); err != nil {
			result.Failed = append(result.Failed, ItemFailure{InventoryID: item.ID, Reason: err.Error()})
			stockOperations.WithLabelValues(string(ActionReconcileJobReversal), resultFailed).Inc()
			continue
		}

		newAvailable := CalculateAvailable(item.InStock, otherAlloc[item.ID].Add(req.quantity))
		e.appendHistory(ctx, &HistoryEntry{
			ID:                NewHistoryID(),
			InventoryID:       item.ID,
			UserID:            actor,
			Action:            ActionReconcileJobReversal,
			Reason:            fmt.Sprintf("job %s reopened: restored %s %s", jobID, restored.String(), req.unit),
			PreviousInStock:   previousInStock,
			NewInStock:        item.InStock,
			PreviousAvailable: previousAvailable,
			NewAvailable:      newAvailable,
			ChangeAmount:      restored,
			RelatedJobID:      &jobID,
			CreatedAt:         time.Now(),
		})

		stockOperations.WithLabelValues(string(ActionReconcileJobReversal), resultOK).Inc()

		result.Succeeded = append(result.Succeeded, ItemResult{
			InventoryID:  item.ID,
			Applied:      restored,
			NewInStock:   item.InStock,
			NewAvailable: newAvailable,
		})
	}

	if len(result.Succeeded) > 0 || len(result.Failed) == 0 {
		if err := e.storage.SetJobReconciled(ctx, jobID, nil); err != nil {
			e.logger.Error("failed to clear job reconciled marker", zap.String("job_id", jobID), zap.Error(err))
		}
	}

	e.logger.Info("job reconciliation reversed",
		zap.String("job_id", jobID),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
		zap.String("actor", actor),
	)

	return result, nil
}

// HandleStatusChange is the status-transition hook: it runs the required
// reconciliation (if any) and then persists the new status. The stock effect
// happens while the job is still in its prior state so the available
// snapshots in the audit trail line up.
func (e *Engine) HandleStatusChange(ctx context.Context, jobID string, newStatus jobs.Status, actor string) (*ReconcileResult, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	job, err := e.storage.GetJob(ctx, jobID)
	if err != nil {
		if err == ErrJobNotFound {
			return nil, ErrJobNotFound
		}
		return nil, NewStorageError("get_job", "failed to load job", err)
	}

	var result *ReconcileResult
	switch jobs.Transition(job.Status, newStatus) {
	case jobs.TransitionReconcile:
		result, err = e.ReconcileJobDelivered(ctx, jobID, actor)
	case jobs.TransitionReverse:
		result, err = e.ReverseJobReconciliation(ctx, jobID, actor)
	default:
		result = &ReconcileResult{JobID: jobID}
	}
	if err != nil {
		return nil, err
	}

	if err := e.storage.UpdateJobStatus(ctx, jobID, newStatus); err != nil {
		return result, NewStorageError("update_job_status", "failed to persist job status", err)
	}

	e.logger.Info("job status changed",
		zap.String("job_id", jobID),
		zap.String("from", string(job.Status)),
		zap.String("to", string(newStatus)),
	)

	return result, nil
}

// AdjustStock sets an item's in_stock to an explicit value (cycle count,
// damage write-off). A no-op adjustment (unchanged value) produces no write
// and no history row.
func (e *Engine) AdjustStock(ctx context.Context, itemID string, newInStock decimal.Decimal, reason, actor string) error {
	if err := ValidateItemID(itemID); err != nil {
		return err
	}
	if err := ValidateNonNegativeQuantity("new_in_stock", newInStock); err != nil {
		return err
	}
	if err := ValidateReason(reason); err != nil {
		return err
	}
	actor = e.actorOrDefault(actor)

	item, err := e.storage.GetItem(ctx, itemID)
	if err != nil {
		if err == ErrItemNotFound {
			return ErrItemNotFound
		}
		return NewStorageError("get_item", "failed to load item", err)
	}

	change := newInStock.Sub(item.InStock)
	if change.IsZero() {
		// Null edit; keep the audit trail clean.
		return nil
	}

	jobList, err := e.storage.ListJobs(ctx)
	if err != nil {
		return NewStorageError("list_jobs", "failed to load job snapshot", err)
	}
	allocated := CalculateAllocated(itemID, jobList)

	previousInStock := item.InStock
	previousAvailable := CalculateAvailable(previousInStock, allocated)

	item.InStock = newInStock
	item.Version++
	item.UpdatedAt = time.Now()

	if err := e.storage.UpdateItemStock(ctx, item); err != nil {
		stockOperations.WithLabelValues(string(ActionManualAdjust), resultFailed).Inc()
		return NewStorageError("update_item_stock", "failed to update stock", err)
	}

	newAvailable := CalculateAvailable(newInStock, allocated)
	e.appendHistory(ctx, &HistoryEntry{
		ID:                NewHistoryID(),
		InventoryID:       itemID,
		UserID:            actor,
		Action:            ActionManualAdjust,
		Reason:            reason,
		PreviousInStock:   previousInStock,
		NewInStock:        newInStock,
		PreviousAvailable: previousAvailable,
		NewAvailable:      newAvailable,
		ChangeAmount:      change,
		CreatedAt:         time.Now(),
	})

	e.checkReorderPoint(ctx, item, newAvailable)
	stockOperations.WithLabelValues(string(ActionManualAdjust), resultOK).Inc()

	e.logger.Info("stock adjusted",
		zap.String("item_id", itemID),
		zap.String("previous", previousInStock.String()),
		zap.String("new", newInStock.String()),
		zap.String("reason", reason),
		zap.String("actor", actor),
	)

	return nil
}

// MarkOrdered records a vendor order: on_order grows by the requested
// quantity and a purchase order opens. The stock position (in_stock,
// available) is unaffected until receipt, so change_amount is zero.
func (e *Engine) MarkOrdered(ctx context.Context, itemID string, quantity decimal.Decimal, actor string) error {
	if err := ValidateItemID(itemID); err != nil {
		return err
	}
	if err := ValidatePositiveQuantity("quantity", quantity); err != nil {
		return err
	}
	actor = e.actorOrDefault(actor)

	item, err := e.storage.GetItem(ctx, itemID)
	if err != nil {
		if err == ErrItemNotFound {
			return ErrItemNotFound
		}
		return NewStorageError("get_item", "failed to load item", err)
	}

	jobList, err := e.storage.ListJobs(ctx)
	if err != nil {
		return NewStorageError("list_jobs", "failed to load job snapshot", err)
	}
	available := CalculateAvailable(item.InStock, CalculateAllocated(itemID, jobList))

	item.OnOrder = item.OnOrder.Add(quantity)
	item.Version++
	item.UpdatedAt = time.Now()

	if err := e.storage.UpdateItemStock(ctx, item); err != nil {
		stockOperations.WithLabelValues(string(ActionOrderPlaced), resultFailed).Inc()
		return NewStorageError("update_item_stock", "failed to update on-order quantity", err)
	}

	poNumber := NewPONumber()
	order := &PurchaseOrder{
		PONumber:    poNumber,
		InventoryID: itemID,
		Quantity:    quantity,
		Received:    decimal.Zero,
		Status:      OrderStatusOpen,
		CreatedBy:   actor,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := e.storage.CreateOrder(ctx, order); err != nil {
		e.logger.Error("failed to record purchase order", zap.String("po_number", poNumber), zap.Error(err))
	}

	e.appendHistory(ctx, &HistoryEntry{
		ID:                NewHistoryID(),
		InventoryID:       itemID,
		UserID:            actor,
		Action:            ActionOrderPlaced,
		Reason:            fmt.Sprintf("ordered %s %s", quantity.String(), item.Unit),
		PreviousInStock:   item.InStock,
		NewInStock:        item.InStock,
		PreviousAvailable: available,
		NewAvailable:      available,
		ChangeAmount:      decimal.Zero,
		RelatedPO:         &poNumber,
		CreatedAt:         time.Now(),
	})

	stockOperations.WithLabelValues(string(ActionOrderPlaced), resultOK).Inc()

	e.logger.Info("order placed",
		zap.String("item_id", itemID),
		zap.String("po_number", poNumber),
		zap.String("quantity", quantity.String()),
		zap.String("on_order", item.OnOrder.String()),
		zap.String("actor", actor),
	)

	return nil
}

// ReceiveOrder records a full or partial delivery: in_stock grows by the
// received quantity, on_order shrinks by it (clamped at zero), and the
// receipt is applied to the oldest open purchase orders first.
func (e *Engine) ReceiveOrder(ctx context.Context, itemID string, receivedQuantity decimal.Decimal, actor string) error {
	if err := ValidateItemID(itemID); err != nil {
		return err
	}
	if err := ValidatePositiveQuantity("received_quantity", receivedQuantity); err != nil {
		return err
	}
	actor = e.actorOrDefault(actor)

	item, err := e.storage.GetItem(ctx, itemID)
	if err != nil {
		if err == ErrItemNotFound {
			return ErrItemNotFound
		}
		return NewStorageError("get_item", "failed to load item", err)
	}

	jobList, err := e.storage.ListJobs(ctx)
	if err != nil {
		return NewStorageError("list_jobs", "failed to load job snapshot", err)
	}
	allocated := CalculateAllocated(itemID, jobList)

	previousInStock := item.InStock
	previousAvailable := CalculateAvailable(previousInStock, allocated)

	item.InStock = item.InStock.Add(receivedQuantity)
	newOnOrder := item.OnOrder.Sub(receivedQuantity)
	if newOnOrder.IsNegative() {
		newOnOrder = decimal.Zero
	}
	item.OnOrder = newOnOrder
	item.Version++
	item.UpdatedAt = time.Now()

	if err := e.storage.UpdateItemStock(ctx, item); err != nil {
		stockOperations.WithLabelValues(string(ActionOrderReceived), resultFailed).Inc()
		return NewStorageError("update_item_stock", "failed to apply receipt", err)
	}

	relatedPO := e.applyReceiptToOrders(ctx, itemID, receivedQuantity)

	newAvailable := CalculateAvailable(item.InStock, allocated)
	e.appendHistory(ctx, &HistoryEntry{
		ID:                NewHistoryID(),
		InventoryID:       itemID,
		UserID:            actor,
		Action:            ActionOrderReceived,
		Reason:            fmt.Sprintf("received %s %s", receivedQuantity.String(), item.Unit),
		PreviousInStock:   previousInStock,
		NewInStock:        item.InStock,
		PreviousAvailable: previousAvailable,
		NewAvailable:      newAvailable,
		ChangeAmount:      receivedQuantity,
		RelatedPO:         relatedPO,
		CreatedAt:         time.Now(),
	})

	stockOperations.WithLabelValues(string(ActionOrderReceived), resultOK).Inc()

	e.logger.Info("order received",
		zap.String("item_id", itemID),
		zap.String("quantity", receivedQuantity.String()),
		zap.String("in_stock", item.InStock.String()),
		zap.String("on_order", item.OnOrder.String()),
		zap.String("actor", actor),
	)

	return nil
}

// GetStockLevels returns the computed stock view for all items.
func (e *Engine) GetStockLevels(ctx context.Context) ([]StockLevel, error) {
	items, err := e.storage.ListItems(ctx)
	if err != nil {
		return nil, NewStorageError("list_items", "failed to list items", err)
	}
	jobList, err := e.storage.ListJobs(ctx)
	if err != nil {
		return nil, NewStorageError("list_jobs", "failed to load job snapshot", err)
	}
	return BuildStockLevels(items, jobList), nil
}

// GetStockLevel returns the computed stock view for one item.
func (e *Engine) GetStockLevel(ctx context.Context, itemID string) (*StockLevel, error) {
	item, err := e.storage.GetItem(ctx, itemID)
	if err != nil {
		if err == ErrItemNotFound {
			return nil, ErrItemNotFound
		}
		return nil, NewStorageError("get_item", "failed to load item", err)
	}
	jobList, err := e.storage.ListJobs(ctx)
	if err != nil {
		return nil, NewStorageError("list_jobs", "failed to load job snapshot", err)
	}
	allocated := CalculateAllocated(itemID, jobList)
	return &StockLevel{
		Item:      *item,
		Allocated: allocated,
		Available: CalculateAvailable(item.InStock, allocated),
	}, nil
}

// GetHistory returns the most recent audit entries for an item.
func (e *Engine) GetHistory(ctx context.Context, itemID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return e.storage.ListHistory(ctx, itemID, limit)
}

// GetAlerts returns active reorder alerts.
func (e *Engine) GetAlerts(ctx context.Context) ([]ReorderAlert, error) {
	return e.storage.ListActiveAlerts(ctx)
}

// ResolveAlert resolves a reorder alert.
func (e *Engine) ResolveAlert(ctx context.Context, alertID string) error {
	return e.storage.ResolveAlert(ctx, alertID)
}

// helpers

func (e *Engine) actorOrDefault(actor string) string {
	if actor == "" {
		return e.config.DefaultActor
	}
	return actor
}

// appendHistory appends one audit entry and publishes the matching event.
// An append failure after a successful stock write is logged rather than
// rolled back: the write and the append are two separate store calls and a
// gap between them is a known, accepted limitation.
func (e *Engine) appendHistory(ctx context.Context, entry *HistoryEntry) {
	if err := e.storage.AppendHistory(ctx, entry); err != nil {
		e.logger.Error("failed to append history entry",
			zap.String("item_id", entry.InventoryID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
		return
	}
	historyAppends.Inc()

	if e.publisher != nil {
		event := StockChangedEvent{
			InventoryID:       entry.InventoryID,
			Action:            entry.Action,
			PreviousInStock:   entry.PreviousInStock,
			NewInStock:        entry.NewInStock,
			PreviousAvailable: entry.PreviousAvailable,
			NewAvailable:      entry.NewAvailable,
			ChangeAmount:      entry.ChangeAmount,
			RelatedJobID:      entry.RelatedJobID,
			RelatedPO:         entry.RelatedPO,
			UserID:            entry.UserID,
			Timestamp:         entry.CreatedAt,
		}
		if err := e.publisher.PublishStockChanged(ctx, event); err != nil {
			e.logger.Error("failed to publish stock event", zap.Error(err))
		}
	}
}

// checkReorderPoint raises a reorder alert when available drops below the
// item's reorder point, deduplicated against existing active alerts.
func (e *Engine) checkReorderPoint(ctx context.Context, item *Item, available decimal.Decimal) {
	if !e.config.ReorderAlertsEnabled || !item.ReorderPoint.Valid {
		return
	}
	if available.GreaterThanOrEqual(item.ReorderPoint.Decimal) {
		return
	}

	exists, err := e.storage.ActiveAlertExists(ctx, item.ID)
	if err != nil {
		e.logger.Error("failed to check active alerts", zap.String("item_id", item.ID), zap.Error(err))
		return
	}
	if exists {
		return
	}

	alert := &ReorderAlert{
		ID:           NewAlertID(),
		InventoryID:  item.ID,
		Available:    available,
		ReorderPoint: item.ReorderPoint.Decimal,
		Message: fmt.Sprintf("%s is below its reorder point (available: %s %s, reorder at: %s)",
			item.Name, available.String(), item.Unit, item.ReorderPoint.Decimal.String()),
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	if err := e.storage.CreateAlert(ctx, alert); err != nil {
		e.logger.Error("failed to create reorder alert", zap.String("item_id", item.ID), zap.Error(err))
		return
	}
	reorderAlertsRaised.Inc()

	if e.publisher != nil {
		event := ReorderAlertEvent{
			InventoryID:  item.ID,
			Available:    available,
			ReorderPoint: item.ReorderPoint.Decimal,
			Timestamp:    time.Now(),
		}
		if err := e.publisher.PublishReorderAlert(ctx, event); err != nil {
			e.logger.Error("failed to publish reorder alert event", zap.Error(err))
		}
	}
}

// applyReceiptToOrders fills open purchase orders oldest first and returns
// the first PO the receipt applied to, for the audit entry.
func (e *Engine) applyReceiptToOrders(ctx context.Context, itemID string, received decimal.Decimal) *string {
	orders, err := e.storage.ListOpenOrders(ctx, itemID)
	if err != nil {
		e.logger.Error("failed to list open orders", zap.String("item_id", itemID), zap.Error(err))
		return nil
	}

	var relatedPO *string
	remaining := received
	for i := range orders {
		if !remaining.IsPositive() {
			break
		}
		order := orders[i]

		fill := order.Outstanding()
		if fill.GreaterThan(remaining) {
			fill = remaining
		}
		if !fill.IsPositive() {
			continue
		}

		order.Received = order.Received.Add(fill)
		if order.Received.GreaterThanOrEqual(order.Quantity) {
			order.Status = OrderStatusReceived
		}
		order.UpdatedAt = time.Now()

		if err := e.storage.UpdateOrder(ctx, &order); err != nil {
			e.logger.Error("failed to update purchase order",
				zap.String("po_number", order.PONumber),
				zap.Error(err),
			)
			continue
		}

		if relatedPO == nil {
			po := order.PONumber
			relatedPO = &po
		}
		remaining = remaining.Sub(fill)
	}

	return relatedPO
}
