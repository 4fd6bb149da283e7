package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/canvasworks/shopstock/pkg/inventory"
	"github.com/canvasworks/shopstock/pkg/jobs"
)

// Handlers holds HTTP handlers for the shop stock API
type Handlers struct {
	engine    *inventory.Engine
	tracker   *inventory.OrderTracker
	valuation *inventory.ValuationEngine
	storage   inventory.Storage
	logger    *zap.Logger

	historyPageSize int
}

// NewHandlers creates new HTTP handlers
func NewHandlers(engine *inventory.Engine, tracker *inventory.OrderTracker, valuation *inventory.ValuationEngine, storage inventory.Storage, logger *zap.Logger) *Handlers {
	return &Handlers{
		engine:          engine,
		tracker:         tracker,
		valuation:       valuation,
		storage:         storage,
		logger:          logger,
		historyPageSize: 100,
	}
}

// APIResponse represents standard API response format
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// actor resolves the acting user from the request header; the engine falls
// back to its configured default when empty.
func actor(r *http.Request) string {
	return r.Header.Get("X-Acting-User")
}

// CreateItemRequest represents request to create an inventory item
type CreateItemRequest struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Category     inventory.ItemCategory `json:"category"`
	InStock      decimal.Decimal        `json:"in_stock"`
	OnOrder      decimal.Decimal        `json:"on_order"`
	ReorderPoint *decimal.Decimal       `json:"reorder_point"`
	Unit         string                 `json:"unit"`
	UnitPrice    *decimal.Decimal       `json:"unit_price"`
}

// UpdateItemRequest represents request to update an item's catalog fields
type UpdateItemRequest struct {
	Name         string                 `json:"name"`
	Category     inventory.ItemCategory `json:"category"`
	ReorderPoint *decimal.Decimal       `json:"reorder_point"`
	Unit         string                 `json:"unit"`
	UnitPrice    *decimal.Decimal       `json:"unit_price"`
}

// AdjustStockRequest represents request to set an item's in-stock count
type AdjustStockRequest struct {
	ItemID     string          `json:"item_id"`
	NewInStock decimal.Decimal `json:"new_in_stock"`
	Reason     string          `json:"reason"`
}

// MarkOrderedRequest represents request to record a placed order
type MarkOrderedRequest struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReceiveOrderRequest represents request to record a received delivery
type ReceiveOrderRequest struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CreateJobRequest represents request to create a job with material links
type CreateJobRequest struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    jobs.Status         `json:"status"`
	Materials []MaterialLinkInput `json:"materials"`
}

// MaterialLinkInput represents one material requirement on a job
type MaterialLinkInput struct {
	InventoryID string          `json:"inventory_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
}

// UpdateJobStatusRequest represents request to move a job through the workflow
type UpdateJobStatusRequest struct {
	Status jobs.Status `json:"status"`
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.sendError(w, http.StatusServiceUnavailable, "storage unreachable")
		return
	}

	h.sendSuccess(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "shopstock",
	})
}

// CreateItem handles item creation requests
func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ID == "" {
		req.ID = inventory.NewItemID()
	}

	now := time.Now()
	item := &inventory.Item{
		ID:        req.ID,
		Name:      req.Name,
		Category:  req.Category,
		InStock:   req.InStock,
		OnOrder:   req.OnOrder,
		Unit:      req.Unit,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.ReorderPoint != nil {
		item.ReorderPoint = decimal.NewNullDecimal(*req.ReorderPoint)
	}
	if req.UnitPrice != nil {
		item.UnitPrice = decimal.NewNullDecimal(*req.UnitPrice)
	}

	if err := validateItem(item); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storage.CreateItem(r.Context(), item); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendCreated(w, item)
}

// ListItems handles item list requests
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.storage.ListItems(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, items)
}

// GetItem handles single item requests
func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]

	item, err := h.storage.GetItem(r.Context(), itemID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, item)
}

// UpdateItem handles item catalog update requests
func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.storage.GetItem(r.Context(), itemID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	item.Name = req.Name
	item.Category = req.Category
	item.Unit = req.Unit
	item.ReorderPoint = decimal.NullDecimal{}
	if req.ReorderPoint != nil {
		item.ReorderPoint = decimal.NewNullDecimal(*req.ReorderPoint)
	}
	item.UnitPrice = decimal.NullDecimal{}
	if req.UnitPrice != nil {
		item.UnitPrice = decimal.NewNullDecimal(*req.UnitPrice)
	}
	item.UpdatedAt = time.Now()

	if err := validateItem(item); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storage.UpdateItem(r.Context(), item); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, item)
}

// GetHistory handles audit trail requests for an item
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]

	limit := h.historyPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			h.sendError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.engine.GetHistory(r.Context(), itemID, limit)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, entries)
}

// GetStockLevels handles requests for all items with computed allocation
func (h *Handlers) GetStockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.engine.GetStockLevels(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, levels)
}

// GetStockLevel handles requests for one item's computed allocation
func (h *Handlers) GetStockLevel(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]

	level, err := h.engine.GetStockLevel(r.Context(), itemID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, level)
}

// AdjustStock handles manual stock adjustment requests
func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.AdjustStock(r.Context(), req.ItemID, req.NewInStock, req.Reason, actor(r)); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "stock adjusted",
	})
}

// MarkOrdered handles order placement requests
func (h *Handlers) MarkOrdered(w http.ResponseWriter, r *http.Request) {
	var req MarkOrderedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.MarkOrdered(r.Context(), req.ItemID, req.Quantity, actor(r)); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "order recorded",
	})
}

// ReceiveOrder handles delivery receipt requests
func (h *Handlers) ReceiveOrder(w http.ResponseWriter, r *http.Request) {
	var req ReceiveOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.ReceiveOrder(r.Context(), req.ItemID, req.Quantity, actor(r)); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "delivery received",
	})
}

// GetValuation handles stock valuation report requests
func (h *Handlers) GetValuation(w http.ResponseWriter, r *http.Request) {
	report, err := h.valuation.GenerateReport(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, report)
}

// GetOpenOrders handles open purchase order requests for an item
func (h *Handlers) GetOpenOrders(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]

	orders, err := h.tracker.OpenOrders(r.Context(), itemID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, orders)
}

// CreateJob handles job creation requests
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ID == "" {
		req.ID = jobs.NewJobID()
	}
	if req.Status == "" {
		req.Status = jobs.StatusPending
	}
	if !req.Status.Valid() {
		h.sendError(w, http.StatusBadRequest, "invalid job status")
		return
	}
	if req.Name == "" {
		h.sendError(w, http.StatusBadRequest, "job name is required")
		return
	}

	now := time.Now()
	job := &jobs.Job{
		ID:        req.ID,
		Name:      req.Name,
		Status:    req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range req.Materials {
		if !m.Quantity.IsPositive() {
			h.sendError(w, http.StatusBadRequest, "material quantity must be positive")
			return
		}
		if _, err := h.storage.GetItem(r.Context(), m.InventoryID); err != nil {
			h.sendDomainError(w, err)
			return
		}
		job.Materials = append(job.Materials, jobs.MaterialLink{
			ID:          jobs.NewLinkID(),
			InventoryID: m.InventoryID,
			Quantity:    m.Quantity,
			Unit:        m.Unit,
		})
	}

	if err := h.storage.CreateJob(r.Context(), job); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendCreated(w, job)
}

// ListJobs handles job list requests
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobList, err := h.storage.ListJobs(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, jobList)
}

// GetJob handles single job requests
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.storage.GetJob(r.Context(), jobID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, job)
}

// UpdateJobStatus handles job workflow transitions; moving into delivered
// reconciles material stock and moving back out reverses it.
func (h *Handlers) UpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	var req UpdateJobStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.HandleStatusChange(r.Context(), jobID, req.Status, actor(r))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, result)
}

// GetAlerts handles active reorder alert requests
func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.engine.GetAlerts(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, alerts)
}

// ResolveAlert handles alert resolution requests
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertId"]

	if err := h.engine.ResolveAlert(r.Context(), alertID); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "alert resolved",
	})
}

// validateItem runs catalog field validation for create and update
func validateItem(item *inventory.Item) error {
	if err := inventory.ValidateItemID(item.ID); err != nil {
		return err
	}
	if err := inventory.ValidateItemName(item.Name); err != nil {
		return err
	}
	if err := inventory.ValidateCategory(item.Category); err != nil {
		return err
	}
	if err := inventory.ValidateUnit(item.Unit); err != nil {
		return err
	}
	if err := inventory.ValidateNonNegativeQuantity("in_stock", item.InStock); err != nil {
		return err
	}
	if err := inventory.ValidateNonNegativeQuantity("on_order", item.OnOrder); err != nil {
		return err
	}
	if item.ReorderPoint.Valid {
		if err := inventory.ValidateNonNegativeQuantity("reorder_point", item.ReorderPoint.Decimal); err != nil {
			return err
		}
	}
	if item.UnitPrice.Valid {
		if err := inventory.ValidateNonNegativeQuantity("unit_price", item.UnitPrice.Decimal); err != nil {
			return err
		}
	}
	return nil
}

// sendDomainError maps domain errors to HTTP status codes
func (h *Handlers) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrItemNotFound),
		errors.Is(err, inventory.ErrJobNotFound),
		errors.Is(err, inventory.ErrOrderNotFound),
		errors.Is(err, inventory.ErrAlertNotFound),
		errors.Is(err, inventory.ErrHistoryNotFound):
		h.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, inventory.ErrDuplicateItem),
		errors.Is(err, inventory.ErrDuplicateJob),
		errors.Is(err, inventory.ErrVersionMismatch):
		h.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, inventory.ErrInvalidStatus):
		h.sendError(w, http.StatusBadRequest, err.Error())
	default:
		var validationErr *inventory.ValidationError
		if errors.As(err, &validationErr) {
			h.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		var ruleErr *inventory.BusinessRuleError
		if errors.As(err, &ruleErr) {
			h.sendError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("request failed", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Data:    data,
	})
}

func (h *Handlers) sendCreated(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Data:    data,
	})
}

func (h *Handlers) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
