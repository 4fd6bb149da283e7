package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/canvasworks/shopstock/pkg/jobs"
)

// MockStorage is a Storage mock for engine unit tests
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateItem(ctx context.Context, item *Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockStorage) GetItem(ctx context.Context, itemID string) (*Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Item), args.Error(1)
}

func (m *MockStorage) UpdateItem(ctx context.Context, item *Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockStorage) UpdateItemStock(ctx context.Context, item *Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockStorage) ListItems(ctx context.Context) ([]Item, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Item), args.Error(1)
}

func (m *MockStorage) AppendHistory(ctx context.Context, entry *HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStorage) ListHistory(ctx context.Context, itemID string, limit int) ([]HistoryEntry, error) {
	args := m.Called(ctx, itemID, limit)
	return args.Get(0).([]HistoryEntry), args.Error(1)
}

func (m *MockStorage) LastReconcileEntry(ctx context.Context, jobID, itemID string) (*HistoryEntry, error) {
	args := m.Called(ctx, jobID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HistoryEntry), args.Error(1)
}

func (m *MockStorage) CreateJob(ctx context.Context, job *jobs.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockStorage) GetJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jobs.Job), args.Error(1)
}

func (m *MockStorage) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	args := m.Called(ctx)
	return args.Get(0).([]jobs.Job), args.Error(1)
}

func (m *MockStorage) UpdateJobStatus(ctx context.Context, jobID string, status jobs.Status) error {
	args := m.Called(ctx, jobID, status)
	return args.Error(0)
}

func (m *MockStorage) SetJobReconciled(ctx context.Context, jobID string, reconciledAt *time.Time) error {
	args := m.Called(ctx, jobID, reconciledAt)
	return args.Error(0)
}

func (m *MockStorage) CreateOrder(ctx context.Context, order *PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStorage) UpdateOrder(ctx context.Context, order *PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStorage) ListOpenOrders(ctx context.Context, itemID string) ([]PurchaseOrder, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]PurchaseOrder), args.Error(1)
}

func (m *MockStorage) CreateAlert(ctx context.Context, alert *ReorderAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockStorage) ActiveAlertExists(ctx context.Context, itemID string) (bool, error) {
	args := m.Called(ctx, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) ListActiveAlerts(ctx context.Context) ([]ReorderAlert, error) {
	args := m.Called(ctx)
	return args.Get(0).([]ReorderAlert), args.Error(1)
}

func (m *MockStorage) ResolveAlert(ctx context.Context, alertID string) error {
	args := m.Called(ctx, alertID)
	return args.Error(0)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testItem(inStock int64) *Item {
	return &Item{
		ID:        "oak",
		Name:      "Oak Lumber",
		Category:  CategoryMaterial,
		InStock:   decimal.NewFromInt(inStock),
		OnOrder:   decimal.Zero,
		Unit:      "bf",
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestEngine_AdjustStock(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	mockStorage.On("GetItem", ctx, "oak").Return(testItem(100), nil)
	mockStorage.On("ListJobs", ctx).Return([]jobs.Job{}, nil)
	mockStorage.On("UpdateItemStock", ctx, mock.AnythingOfType("*inventory.Item")).Return(nil)
	mockStorage.On("AppendHistory", ctx, mock.AnythingOfType("*inventory.HistoryEntry")).Return(nil)

	err := engine.AdjustStock(ctx, "oak", decimal.NewFromInt(80), "cycle count", "alice")

	assert.NoError(t, err)
	mockStorage.AssertExpectations(t)

	// the history entry carries the delta and the actor
	entry := mockStorage.Calls[3].Arguments.Get(1).(*HistoryEntry)
	assert.Equal(t, ActionManualAdjust, entry.Action)
	assert.Equal(t, "alice", entry.UserID)
	assert.True(t, entry.ChangeAmount.Equal(decimal.NewFromInt(-20)))
	assert.True(t, entry.PreviousInStock.Equal(decimal.NewFromInt(100)))
	assert.True(t, entry.NewInStock.Equal(decimal.NewFromInt(80)))
}

func TestEngine_AdjustStock_NoOp(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	mockStorage.On("GetItem", ctx, "oak").Return(testItem(100), nil)

	err := engine.AdjustStock(ctx, "oak", decimal.NewFromInt(100), "cycle count", "alice")

	assert.NoError(t, err)
	mockStorage.AssertNotCalled(t, "UpdateItemStock", mock.Anything, mock.Anything)
	mockStorage.AssertNotCalled(t, "AppendHistory", mock.Anything, mock.Anything)
}

func TestEngine_AdjustStock_ValidationErrors(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	err := engine.AdjustStock(ctx, "", decimal.NewFromInt(10), "reason", "alice")
	assert.Error(t, err)

	err = engine.AdjustStock(ctx, "oak", decimal.NewFromInt(-5), "reason", "alice")
	assert.Error(t, err)

	err = engine.AdjustStock(ctx, "oak", decimal.NewFromInt(10), "  ", "alice")
	assert.Error(t, err)

	mockStorage.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
}

func TestEngine_AdjustStock_ItemNotFound(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	mockStorage.On("GetItem", ctx, "missing").Return(nil, ErrItemNotFound)

	err := engine.AdjustStock(ctx, "missing", decimal.NewFromInt(10), "reason", "alice")
	assert.Equal(t, ErrItemNotFound, err)
}

func TestEngine_AdjustStock_DefaultActor(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), &Config{DefaultActor: "system"})
	ctx := context.Background()

	mockStorage.On("GetItem", ctx, "oak").Return(testItem(100), nil)
	mockStorage.On("ListJobs", ctx).Return([]jobs.Job{}, nil)
	mockStorage.On("UpdateItemStock", ctx, mock.AnythingOfType("*inventory.Item")).Return(nil)
	mockStorage.On("AppendHistory", ctx, mock.AnythingOfType("*inventory.HistoryEntry")).Return(nil)

	err := engine.AdjustStock(ctx, "oak", decimal.NewFromInt(90), "cycle count", "")
	assert.NoError(t, err)

	entry := mockStorage.Calls[3].Arguments.Get(1).(*HistoryEntry)
	assert.Equal(t, "system", entry.UserID)
}

func TestEngine_MarkOrdered(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	mockStorage.On("GetItem", ctx, "oak").Return(testItem(100), nil)
	mockStorage.On("ListJobs", ctx).Return([]jobs.Job{}, nil)
	mockStorage.On("UpdateItemStock", ctx, mock.AnythingOfType("*inventory.Item")).Return(nil)
	mockStorage.On("CreateOrder", ctx, mock.AnythingOfType("*inventory.PurchaseOrder")).Return(nil)
	mockStorage.On("AppendHistory", ctx, mock.AnythingOfType("*inventory.HistoryEntry")).Return(nil)

	err := engine.MarkOrdered(ctx, "oak", decimal.NewFromInt(25), "bob")

	assert.NoError(t, err)
	mockStorage.AssertExpectations(t)

	// on_order changed; stock position untouched, so change_amount is zero
	item := mockStorage.Calls[2].Arguments.Get(1).(*Item)
	assert.True(t, item.OnOrder.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int64(2), item.Version)

	entry := mockStorage.Calls[4].Arguments.Get(1).(*HistoryEntry)
	assert.Equal(t, ActionOrderPlaced, entry.Action)
	assert.True(t, entry.ChangeAmount.IsZero())
	assert.NotNil(t, entry.RelatedPO)
}

func TestEngine_MarkOrdered_RejectsNonPositive(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	err := engine.MarkOrdered(ctx, "oak", decimal.Zero, "bob")
	assert.Error(t, err)

	err = engine.MarkOrdered(ctx, "oak", decimal.NewFromInt(-5), "bob")
	assert.Error(t, err)

	mockStorage.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
}

func TestEngine_ReconcileJobDelivered_AlreadyReconciled(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	reconciledAt := time.Now()
	job := &jobs.Job{
		ID:           "job-1",
		Status:       jobs.StatusDelivered,
		ReconciledAt: &reconciledAt,
		Materials:    []jobs.MaterialLink{{InventoryID: "oak", Quantity: decimal.NewFromInt(30)}},
	}
	mockStorage.On("GetJob", ctx, "job-1").Return(job, nil)

	result, err := engine.ReconcileJobDelivered(ctx, "job-1", "alice")

	assert.NoError(t, err)
	assert.False(t, result.Applied())
	mockStorage.AssertNotCalled(t, "UpdateItemStock", mock.Anything, mock.Anything)
	mockStorage.AssertNotCalled(t, "SetJobReconciled", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_ReverseJobReconciliation_NeverReconciled(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	job := &jobs.Job{
		ID:        "job-1",
		Status:    jobs.StatusDelivered,
		Materials: []jobs.MaterialLink{{InventoryID: "oak", Quantity: decimal.NewFromInt(30)}},
	}
	mockStorage.On("GetJob", ctx, "job-1").Return(job, nil)

	result, err := engine.ReverseJobReconciliation(ctx, "job-1", "alice")

	assert.NoError(t, err)
	assert.False(t, result.Applied())
	mockStorage.AssertNotCalled(t, "UpdateItemStock", mock.Anything, mock.Anything)
}

func TestEngine_HandleStatusChange_InvalidStatus(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := engine.HandleStatusChange(ctx, "job-1", jobs.Status("archived"), "alice")
	assert.Equal(t, ErrInvalidStatus, err)
	mockStorage.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything)
}

func TestEngine_HandleStatusChange_ActiveToActive(t *testing.T) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	job := &jobs.Job{ID: "job-1", Status: jobs.StatusPending}
	mockStorage.On("GetJob", ctx, "job-1").Return(job, nil)
	mockStorage.On("UpdateJobStatus", ctx, "job-1", jobs.StatusInProgress).Return(nil)

	result, err := engine.HandleStatusChange(ctx, "job-1", jobs.StatusInProgress, "alice")

	assert.NoError(t, err)
	assert.False(t, result.Applied())
	mockStorage.AssertExpectations(t)
}

func TestAggregateMaterials(t *testing.T) {
	links := []jobs.MaterialLink{
		{ID: "l1", InventoryID: "oak", Quantity: decimal.NewFromInt(10), Unit: "bf"},
		{ID: "l2", InventoryID: "foam", Quantity: decimal.NewFromInt(5), Unit: "sheet"},
		{ID: "l3", InventoryID: "oak", Quantity: decimal.NewFromInt(20), Unit: "bf"},
		{ID: "l4", InventoryID: "oak", Quantity: decimal.Zero, Unit: "bf"},
		{ID: "l5", InventoryID: "foam", Quantity: decimal.NewFromInt(-3), Unit: "sheet"},
	}

	requirements := aggregateMaterials(links)

	require.Len(t, requirements, 2)
	assert.Equal(t, "oak", requirements[0].inventoryID)
	assert.True(t, requirements[0].quantity.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "bf", requirements[0].unit)
	assert.Equal(t, "foam", requirements[1].inventoryID)
	assert.True(t, requirements[1].quantity.Equal(decimal.NewFromInt(5)))
}

func BenchmarkEngine_MarkOrdered(b *testing.B) {
	mockStorage := new(MockStorage)
	engine := NewEngine(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	mockStorage.On("GetItem", ctx, "oak").Return(testItem(100), nil)
	mockStorage.On("ListJobs", ctx).Return([]jobs.Job{}, nil)
	mockStorage.On("UpdateItemStock", ctx, mock.AnythingOfType("*inventory.Item")).Return(nil)
	mockStorage.On("CreateOrder", ctx, mock.AnythingOfType("*inventory.PurchaseOrder")).Return(nil)
	mockStorage.On("AppendHistory", ctx, mock.AnythingOfType("*inventory.HistoryEntry")).Return(nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.MarkOrdered(ctx, "oak", decimal.NewFromInt(1), "bench")
	}
}
