// internal/domain/order/statemachine.go
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// WorkflowStatus is the simplified five-state vocabulary the guarded
// state machine speaks. Storage rows carry the full OrderStatus enum;
// this is the transition-guarded view layered over it.
type WorkflowStatus string

const (
	WorkflowPending    WorkflowStatus = "pending"
	WorkflowInProgress WorkflowStatus = "in_progress"
	WorkflowServed     WorkflowStatus = "served"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowCancelled  WorkflowStatus = "cancelled"
)

// ErrInvalidTransition is wrapped by transition guard failures
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnknownStatus is returned when a status string matches neither
// vocabulary
var ErrUnknownStatus = errors.New("unknown order status")

// fullToWorkflow is many-to-one: several fine-grained statuses collapse
// into one workflow state on read.
var fullToWorkflow = map[OrderStatus]WorkflowStatus{
	OrderStatusPending:        WorkflowPending,
	OrderStatusConfirmed:      WorkflowInProgress,
	OrderStatusPreparing:      WorkflowInProgress,
	OrderStatusOutForDelivery: WorkflowInProgress,
	OrderStatusReady:          WorkflowServed,
	OrderStatusCompleted:      WorkflowCompleted,
	OrderStatusCancelled:      WorkflowCancelled,
	OrderStatusRefunded:       WorkflowCancelled,
}

// workflowToFull picks one canonical storage value per workflow state.
// The system accepts legacy fine-grained statuses on read but only ever
// writes these canonical values for a guarded transition.
var workflowToFull = map[WorkflowStatus]OrderStatus{
	WorkflowPending:    OrderStatusPending,
	WorkflowInProgress: OrderStatusPreparing,
	WorkflowServed:     OrderStatusReady,
	WorkflowCompleted:  OrderStatusCompleted,
	WorkflowCancelled:  OrderStatusCancelled,
}

// workflowTransitions is the guarded transition table. completed and
// cancelled are terminal.
var workflowTransitions = map[WorkflowStatus][]WorkflowStatus{
	WorkflowPending:    {WorkflowInProgress, WorkflowCancelled},
	WorkflowInProgress: {WorkflowServed, WorkflowCancelled},
	WorkflowServed:     {WorkflowCompleted, WorkflowCancelled},
	WorkflowCompleted:  {},
	WorkflowCancelled:  {},
}

// NormalizeStatus maps a status string in either vocabulary, case
// insensitively, onto the workflow vocabulary.
func NormalizeStatus(status string) (WorkflowStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(status))

	switch WorkflowStatus(normalized) {
	case WorkflowPending, WorkflowInProgress, WorkflowServed, WorkflowCompleted, WorkflowCancelled:
		return WorkflowStatus(normalized), nil
	}

	if wf, ok := fullToWorkflow[OrderStatus(normalized)]; ok {
		return wf, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, status)
}

// CanTransition reports whether from → to is allowed by the table
func CanTransition(from, to WorkflowStatus) bool {
	for _, allowed := range workflowTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanonicalStatus returns the storage enum value written for a workflow
// state
func CanonicalStatus(wf WorkflowStatus) OrderStatus {
	return workflowToFull[wf]
}

// WorkflowOf collapses the order's stored status into the workflow
// vocabulary
func (o *Order) WorkflowOf() WorkflowStatus {
	if wf, ok := fullToWorkflow[o.Status]; ok {
		return wf
	}
	return WorkflowPending
}

// applyEntryTimestamp sets the timestamp for first entry into a workflow
// state. Re-entering a state never overwrites an already-set timestamp.
func (o *Order) applyEntryTimestamp(wf WorkflowStatus, now time.Time) {
	switch wf {
	case WorkflowInProgress:
		if o.StartedPreparingAt == nil {
			o.StartedPreparingAt = &now
		}
	case WorkflowServed:
		if o.ReadyAt == nil {
			o.ReadyAt = &now
		}
	case WorkflowCompleted:
		if o.CompletedAt == nil {
			o.CompletedAt = &now
		}
	case WorkflowCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}
}
