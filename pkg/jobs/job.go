// Package jobs holds the job-side domain types the inventory core reads.
// The inventory engine never owns job state; it only inspects statuses and
// material links to derive allocation.
package jobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is a job's position in the shop workflow.
type Status string

const (
	StatusPod            Status = "pod"
	StatusRush           Status = "rush"
	StatusPending        Status = "pending"
	StatusInProgress     Status = "inProgress"
	StatusQualityControl Status = "qualityControl"
	StatusFinished       Status = "finished"
	StatusDelivered      Status = "delivered"
)

// Valid reports whether s is a known workflow status.
func (s Status) Valid() bool {
	switch s {
	case StatusPod, StatusRush, StatusPending, StatusInProgress,
		StatusQualityControl, StatusFinished, StatusDelivered:
		return true
	}
	return false
}

// ActiveForAllocation reports whether a job in this status still counts its
// material links toward inventory allocation. This is the only place in the
// repository where the active-allocation set is defined.
func ActiveForAllocation(s Status) bool {
	return s.Valid() && s != StatusDelivered
}

// MaterialLink records that a job needs (or consumed) a quantity of an
// inventory item. Unit is the label entered on the job and may differ from
// the item's canonical unit.
type MaterialLink struct {
	ID          string          `json:"id" db:"id"`
	InventoryID string          `json:"inventory_id" db:"inventory_id"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	Unit        string          `json:"unit" db:"unit"`
}

// Job carries the attributes the inventory core needs: identity, status and
// the set of material links.
type Job struct {
	ID           string         `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Status       Status         `json:"status" db:"status"`
	ReconciledAt *time.Time     `json:"reconciled_at" db:"reconciled_at"`
	Materials    []MaterialLink `json:"materials"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Reconciled reports whether the job's materials have been consumed from
// physical stock.
func (j *Job) Reconciled() bool {
	return j.ReconciledAt != nil
}

// TransitionAction is what a status change requires from the inventory core.
type TransitionAction int

const (
	TransitionNone TransitionAction = iota
	TransitionReconcile
	TransitionReverse
)

// Transition classifies a status change. Entering delivered consumes stock;
// leaving delivered back into an active status restores it. Whether every
// backward transition out of delivered should restore stock is an assumption
// pending product sign-off; until then any such move triggers a reversal.
func Transition(from, to Status) TransitionAction {
	if from == to {
		return TransitionNone
	}
	if to == StatusDelivered {
		return TransitionReconcile
	}
	if from == StatusDelivered && ActiveForAllocation(to) {
		return TransitionReverse
	}
	return TransitionNone
}

// NewJobID generates a new job identifier.
func NewJobID() string {
	return uuid.New().String()
}

// NewLinkID generates a new material link identifier.
func NewLinkID() string {
	return uuid.New().String()
}
