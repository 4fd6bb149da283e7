package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasworks/shopstock/pkg/inventory"
	"github.com/canvasworks/shopstock/pkg/jobs"
)

func seedItem(t *testing.T, s *MemoryStorage, id string, version int64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, s.CreateItem(context.Background(), &inventory.Item{
		ID:        id,
		Name:      id,
		Category:  inventory.CategoryMaterial,
		InStock:   decimal.NewFromInt(10),
		Unit:      "ea",
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func TestMemoryStorage_UpdateItemStock_VersionCheck(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	seedItem(t, s, "oak", 1)

	item, err := s.GetItem(ctx, "oak")
	require.NoError(t, err)

	item.InStock = decimal.NewFromInt(5)
	item.Version++
	require.NoError(t, s.UpdateItemStock(ctx, item))

	// a concurrent writer based on the stale version loses the race
	stale := *item
	stale.Version = 2 // expects stored version 1, but it is now 2
	err = s.UpdateItemStock(ctx, &stale)
	assert.Equal(t, inventory.ErrVersionMismatch, err)

	stored, err := s.GetItem(ctx, "oak")
	require.NoError(t, err)
	assert.True(t, stored.InStock.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemoryStorage_DuplicateItem(t *testing.T) {
	s := NewMemoryStorage()
	seedItem(t, s, "oak", 1)

	err := s.CreateItem(context.Background(), &inventory.Item{ID: "oak", Name: "oak"})
	assert.Equal(t, inventory.ErrDuplicateItem, err)
}

func TestMemoryStorage_GetItem_ReturnsCopy(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	seedItem(t, s, "oak", 1)

	item, err := s.GetItem(ctx, "oak")
	require.NoError(t, err)
	item.InStock = decimal.NewFromInt(999)

	stored, err := s.GetItem(ctx, "oak")
	require.NoError(t, err)
	assert.True(t, stored.InStock.Equal(decimal.NewFromInt(10)))
}

func TestMemoryStorage_LastReconcileEntry(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	jobID := "job-1"

	_, err := s.LastReconcileEntry(ctx, jobID, "oak")
	assert.Equal(t, inventory.ErrHistoryNotFound, err)

	first := &inventory.HistoryEntry{
		ID:           "h1",
		InventoryID:  "oak",
		Action:       inventory.ActionReconcileJob,
		ChangeAmount: decimal.NewFromInt(-10),
		RelatedJobID: &jobID,
		CreatedAt:    time.Now(),
	}
	second := &inventory.HistoryEntry{
		ID:           "h2",
		InventoryID:  "oak",
		Action:       inventory.ActionReconcileJob,
		ChangeAmount: decimal.NewFromInt(-20),
		RelatedJobID: &jobID,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.AppendHistory(ctx, first))
	require.NoError(t, s.AppendHistory(ctx, second))

	// non-reconcile entries for the same pair are ignored
	require.NoError(t, s.AppendHistory(ctx, &inventory.HistoryEntry{
		ID:          "h3",
		InventoryID: "oak",
		Action:      inventory.ActionManualAdjust,
		CreatedAt:   time.Now(),
	}))

	entry, err := s.LastReconcileEntry(ctx, jobID, "oak")
	require.NoError(t, err)
	assert.Equal(t, "h2", entry.ID)
}

func TestMemoryStorage_JobReconciledMarker(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateJob(ctx, &jobs.Job{
		ID:        "job-1",
		Name:      "job-1",
		Status:    jobs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	require.NoError(t, s.SetJobReconciled(ctx, "job-1", &now))
	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, job.Reconciled())

	require.NoError(t, s.SetJobReconciled(ctx, "job-1", nil))
	job, err = s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, job.Reconciled())

	assert.Equal(t, inventory.ErrJobNotFound, s.SetJobReconciled(ctx, "missing", nil))
}
