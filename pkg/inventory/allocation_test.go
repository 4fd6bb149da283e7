package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/canvasworks/shopstock/pkg/jobs"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func jobWith(id string, status jobs.Status, links ...jobs.MaterialLink) jobs.Job {
	return jobs.Job{ID: id, Name: id, Status: status, Materials: links}
}

func link(inventoryID string, quantity int64) jobs.MaterialLink {
	return jobs.MaterialLink{ID: inventoryID + "-link", InventoryID: inventoryID, Quantity: d(quantity), Unit: "ea"}
}

func TestBuildAllocatedIndex_SumsActiveJobs(t *testing.T) {
	jobList := []jobs.Job{
		jobWith("job-1", jobs.StatusPending, link("oak", 10), link("foam", 5)),
		jobWith("job-2", jobs.StatusInProgress, link("oak", 7)),
		jobWith("job-3", jobs.StatusQualityControl, link("oak", 3)),
		jobWith("job-4", jobs.StatusDelivered, link("oak", 100)),
	}

	index := BuildAllocatedIndex(jobList)

	assert.True(t, index["oak"].Equal(d(20)), "delivered jobs must not allocate, got %s", index["oak"])
	assert.True(t, index["foam"].Equal(d(5)))
	assert.True(t, index["missing"].IsZero())
}

func TestBuildAllocatedIndex_SkipsNonPositiveQuantities(t *testing.T) {
	jobList := []jobs.Job{
		jobWith("job-1", jobs.StatusRush,
			jobs.MaterialLink{InventoryID: "oak", Quantity: decimal.Zero},
			jobs.MaterialLink{InventoryID: "oak", Quantity: d(-4)},
			link("oak", 6),
		),
	}

	index := BuildAllocatedIndex(jobList)
	assert.True(t, index["oak"].Equal(d(6)))
}

func TestBuildAllocatedIndex_EmptyJobList(t *testing.T) {
	index := BuildAllocatedIndex(nil)
	assert.Empty(t, index)
}

func TestBuildAllocatedIndex_OrderIndependent(t *testing.T) {
	a := jobWith("job-1", jobs.StatusPending, link("oak", 10))
	b := jobWith("job-2", jobs.StatusFinished, link("oak", 7))

	forward := BuildAllocatedIndex([]jobs.Job{a, b})
	backward := BuildAllocatedIndex([]jobs.Job{b, a})

	assert.True(t, forward["oak"].Equal(backward["oak"]))
}

func TestCalculateAllocated_MatchesIndex(t *testing.T) {
	jobList := []jobs.Job{
		jobWith("job-1", jobs.StatusPod, link("oak", 12)),
		jobWith("job-2", jobs.StatusDelivered, link("oak", 9)),
	}

	assert.True(t, CalculateAllocated("oak", jobList).Equal(d(12)))
	assert.True(t, CalculateAllocated("foam", jobList).IsZero())
}

func TestCalculateAvailable_ClampsAtZero(t *testing.T) {
	assert.True(t, CalculateAvailable(d(100), d(30)).Equal(d(70)))
	assert.True(t, CalculateAvailable(d(10), d(10)).IsZero())
	// over-allocation is a shortage, never a negative available
	assert.True(t, CalculateAvailable(d(10), d(50)).IsZero())
}

func TestBuildStockLevels(t *testing.T) {
	items := []Item{
		{ID: "oak", Name: "Oak", InStock: d(100)},
		{ID: "foam", Name: "Foam", InStock: d(3)},
	}
	jobList := []jobs.Job{
		jobWith("job-1", jobs.StatusInProgress, link("oak", 40), link("foam", 8)),
	}

	levels := BuildStockLevels(items, jobList)
	assert.Len(t, levels, 2)

	assert.True(t, levels[0].Allocated.Equal(d(40)))
	assert.True(t, levels[0].Available.Equal(d(60)))
	assert.False(t, levels[0].Shortage())

	assert.True(t, levels[1].Allocated.Equal(d(8)))
	assert.True(t, levels[1].Available.IsZero())
	assert.True(t, levels[1].Shortage())
}

func TestBuildAllocatedIndex_DoesNotMutateInput(t *testing.T) {
	jobList := []jobs.Job{
		jobWith("job-1", jobs.StatusPending, link("oak", 10)),
	}

	BuildAllocatedIndex(jobList)

	assert.Equal(t, jobs.StatusPending, jobList[0].Status)
	assert.True(t, jobList[0].Materials[0].Quantity.Equal(d(10)))
}
