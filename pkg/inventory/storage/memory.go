package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/canvasworks/shopstock/pkg/inventory"
	"github.com/canvasworks/shopstock/pkg/jobs"
)

// MemoryStorage is an in-memory Storage implementation. It backs the usage
// example and scenario tests; it is not intended for production use.
type MemoryStorage struct {
	mu      sync.RWMutex
	items   map[string]inventory.Item
	history []inventory.HistoryEntry
	jobs    map[string]jobs.Job
	orders  map[string]inventory.PurchaseOrder
	alerts  map[string]inventory.ReorderAlert
}

var _ inventory.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items:  make(map[string]inventory.Item),
		jobs:   make(map[string]jobs.Job),
		orders: make(map[string]inventory.PurchaseOrder),
		alerts: make(map[string]inventory.ReorderAlert),
	}
}

func (s *MemoryStorage) CreateItem(ctx context.Context, item *inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return inventory.ErrDuplicateItem
	}
	s.items[item.ID] = *item
	return nil
}

func (s *MemoryStorage) GetItem(ctx context.Context, itemID string) (*inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, inventory.ErrItemNotFound
	}
	copy := item
	return &copy, nil
}

func (s *MemoryStorage) UpdateItem(ctx context.Context, item *inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[item.ID]
	if !ok {
		return inventory.ErrItemNotFound
	}
	stored.Name = item.Name
	stored.Category = item.Category
	stored.ReorderPoint = item.ReorderPoint
	stored.Unit = item.Unit
	stored.UnitPrice = item.UnitPrice
	stored.UpdatedAt = item.UpdatedAt
	s.items[item.ID] = stored
	return nil
}

func (s *MemoryStorage) UpdateItemStock(ctx context.Context, item *inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[item.ID]
	if !ok {
		return inventory.ErrItemNotFound
	}
	if stored.Version != item.Version-1 {
		return inventory.ErrVersionMismatch
	}
	stored.InStock = item.InStock
	stored.OnOrder = item.OnOrder
	stored.Version = item.Version
	stored.UpdatedAt = item.UpdatedAt
	s.items[item.ID] = stored
	return nil
}

func (s *MemoryStorage) ListItems(ctx context.Context) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]inventory.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *MemoryStorage) AppendHistory(ctx context.Context, entry *inventory.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, *entry)
	return nil
}

func (s *MemoryStorage) ListHistory(ctx context.Context, itemID string, limit int) ([]inventory.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []inventory.HistoryEntry
	// newest first
	for i := len(s.history) - 1; i >= 0 && len(entries) < limit; i-- {
		if s.history[i].InventoryID == itemID {
			entries = append(entries, s.history[i])
		}
	}
	return entries, nil
}

func (s *MemoryStorage) LastReconcileEntry(ctx context.Context, jobID, itemID string) (*inventory.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.history) - 1; i >= 0; i-- {
		entry := s.history[i]
		if entry.Action != inventory.ActionReconcileJob || entry.InventoryID != itemID {
			continue
		}
		if entry.RelatedJobID != nil && *entry.RelatedJobID == jobID {
			copy := entry
			return &copy, nil
		}
	}
	return nil, inventory.ErrHistoryNotFound
}

func (s *MemoryStorage) CreateJob(ctx context.Context, job *jobs.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return inventory.ErrDuplicateJob
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStorage) GetJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, inventory.ErrJobNotFound
	}
	copy := job
	copy.Materials = append([]jobs.MaterialLink(nil), job.Materials...)
	return &copy, nil
}

func (s *MemoryStorage) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobList := make([]jobs.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		job.Materials = append([]jobs.MaterialLink(nil), job.Materials...)
		jobList = append(jobList, job)
	}
	sort.Slice(jobList, func(i, j int) bool { return jobList[i].CreatedAt.Before(jobList[j].CreatedAt) })
	return jobList, nil
}

func (s *MemoryStorage) UpdateJobStatus(ctx context.Context, jobID string, status jobs.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return inventory.ErrJobNotFound
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	s.jobs[jobID] = job
	return nil
}

func (s *MemoryStorage) SetJobReconciled(ctx context.Context, jobID string, reconciledAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return inventory.ErrJobNotFound
	}
	job.ReconciledAt = reconciledAt
	job.UpdatedAt = time.Now()
	s.jobs[jobID] = job
	return nil
}

func (s *MemoryStorage) CreateOrder(ctx context.Context, order *inventory.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.PONumber] = *order
	return nil
}

func (s *MemoryStorage) UpdateOrder(ctx context.Context, order *inventory.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.PONumber]; !ok {
		return inventory.ErrOrderNotFound
	}
	s.orders[order.PONumber] = *order
	return nil
}

func (s *MemoryStorage) ListOpenOrders(ctx context.Context, itemID string) ([]inventory.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []inventory.PurchaseOrder
	for _, order := range s.orders {
		if order.InventoryID == itemID && order.Status == inventory.OrderStatusOpen {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

func (s *MemoryStorage) CreateAlert(ctx context.Context, alert *inventory.ReorderAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts[alert.ID] = *alert
	return nil
}

func (s *MemoryStorage) ActiveAlertExists(ctx context.Context, itemID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, alert := range s.alerts {
		if alert.InventoryID == itemID && alert.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) ListActiveAlerts(ctx context.Context) ([]inventory.ReorderAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var alerts []inventory.ReorderAlert
	for _, alert := range s.alerts {
		if alert.IsActive {
			alerts = append(alerts, alert)
		}
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].CreatedAt.After(alerts[j].CreatedAt) })
	return alerts, nil
}

func (s *MemoryStorage) ResolveAlert(ctx context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[alertID]
	if !ok || !alert.IsActive {
		return inventory.ErrAlertNotFound
	}
	now := time.Now()
	alert.IsActive = false
	alert.ResolvedAt = &now
	s.alerts[alertID] = alert
	return nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (s *MemoryStorage) Close() error { return nil }
