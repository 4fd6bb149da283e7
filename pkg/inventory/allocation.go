package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/canvasworks/shopstock/pkg/jobs"
)

// Allocation calculator. Pure functions over an injected job snapshot; no
// storage access, no hidden state. Every "available" figure shown anywhere
// in the system is produced here at read time; a persisted available column
// is a stale cache and is never consulted.

// BuildAllocatedIndex sums, per inventory item, the material-link quantities
// of every job whose status is in the active-allocation set. A single pass
// over all links; an empty job list yields an empty map. Results are
// independent of job ordering.
func BuildAllocatedIndex(jobList []jobs.Job) map[string]decimal.Decimal {
	index := make(map[string]decimal.Decimal)
	for _, job := range jobList {
		if !jobs.ActiveForAllocation(job.Status) {
			continue
		}
		for _, link := range job.Materials {
			if !link.Quantity.IsPositive() {
				continue
			}
			index[link.InventoryID] = index[link.InventoryID].Add(link.Quantity)
		}
	}
	return index
}

// CalculateAllocated returns the quantity of one inventory item committed to
// not-yet-delivered jobs. Equivalent to BuildAllocatedIndex(jobList)[inventoryID]
// with a zero default.
func CalculateAllocated(inventoryID string, jobList []jobs.Job) decimal.Decimal {
	total := decimal.Zero
	for _, job := range jobList {
		if !jobs.ActiveForAllocation(job.Status) {
			continue
		}
		for _, link := range job.Materials {
			if link.InventoryID == inventoryID && link.Quantity.IsPositive() {
				total = total.Add(link.Quantity)
			}
		}
	}
	return total
}

// CalculateAvailable returns max(0, inStock - allocated). Demand exceeding
// physical stock is a legitimate state; it clamps to zero here and surfaces
// as a shortage on the StockLevel view instead of an error.
func CalculateAvailable(inStock, allocated decimal.Decimal) decimal.Decimal {
	available := inStock.Sub(allocated)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// BuildStockLevels joins items with the allocation derived from the given
// job snapshot.
func BuildStockLevels(items []Item, jobList []jobs.Job) []StockLevel {
	index := BuildAllocatedIndex(jobList)
	levels := make([]StockLevel, 0, len(items))
	for _, item := range items {
		allocated := index[item.ID]
		levels = append(levels, StockLevel{
			Item:      item,
			Allocated: allocated,
			Available: CalculateAvailable(item.InStock, allocated),
		})
	}
	return levels
}

// allocatedIndexExcluding builds the allocation index with one job left out,
// regardless of that job's stored status. Reconciliation uses it to compute
// before/after available snapshots without depending on when the status
// write lands.
func allocatedIndexExcluding(jobList []jobs.Job, jobID string) map[string]decimal.Decimal {
	filtered := make([]jobs.Job, 0, len(jobList))
	for _, job := range jobList {
		if job.ID == jobID {
			continue
		}
		filtered = append(filtered, job)
	}
	return BuildAllocatedIndex(filtered)
}
