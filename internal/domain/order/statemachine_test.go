package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		input string
		want  WorkflowStatus
	}{
		{"pending", WorkflowPending},
		{"in_progress", WorkflowInProgress},
		{"served", WorkflowServed},
		{"completed", WorkflowCompleted},
		{"cancelled", WorkflowCancelled},
		{"In_Progress", WorkflowInProgress},
		{"  SERVED  ", WorkflowServed},
		{"confirmed", WorkflowInProgress},
		{"preparing", WorkflowInProgress},
		{"out_for_delivery", WorkflowInProgress},
		{"ready", WorkflowServed},
		{"refunded", WorkflowCancelled},
	}
	for _, tc := range cases {
		got, err := NormalizeStatus(tc.input)
		assert.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}
}

func TestNormalizeStatusRejectsUnknown(t *testing.T) {
	_, err := NormalizeStatus("delivered")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = NormalizeStatus("")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestCanTransition(t *testing.T) {
	allowed := map[WorkflowStatus][]WorkflowStatus{
		WorkflowPending:    {WorkflowInProgress, WorkflowCancelled},
		WorkflowInProgress: {WorkflowServed, WorkflowCancelled},
		WorkflowServed:     {WorkflowCompleted, WorkflowCancelled},
		WorkflowCompleted:  {},
		WorkflowCancelled:  {},
	}

	all := []WorkflowStatus{
		WorkflowPending, WorkflowInProgress, WorkflowServed, WorkflowCompleted, WorkflowCancelled,
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanonicalStatus(t *testing.T) {
	assert.Equal(t, OrderStatusPending, CanonicalStatus(WorkflowPending))
	assert.Equal(t, OrderStatusPreparing, CanonicalStatus(WorkflowInProgress))
	assert.Equal(t, OrderStatusReady, CanonicalStatus(WorkflowServed))
	assert.Equal(t, OrderStatusCompleted, CanonicalStatus(WorkflowCompleted))
	assert.Equal(t, OrderStatusCancelled, CanonicalStatus(WorkflowCancelled))
}

func TestWorkflowOfCollapsesFullStatuses(t *testing.T) {
	cases := map[OrderStatus]WorkflowStatus{
		OrderStatusPending:        WorkflowPending,
		OrderStatusConfirmed:      WorkflowInProgress,
		OrderStatusPreparing:      WorkflowInProgress,
		OrderStatusOutForDelivery: WorkflowInProgress,
		OrderStatusReady:          WorkflowServed,
		OrderStatusCompleted:      WorkflowCompleted,
		OrderStatusCancelled:      WorkflowCancelled,
		OrderStatusRefunded:       WorkflowCancelled,
	}
	for full, wf := range cases {
		o := Order{Status: full}
		assert.Equal(t, wf, o.WorkflowOf(), string(full))
	}
}

func TestEntryTimestampsSetOnce(t *testing.T) {
	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	var o Order
	o.applyEntryTimestamp(WorkflowInProgress, first)
	o.applyEntryTimestamp(WorkflowInProgress, later)

	assert.NotNil(t, o.StartedPreparingAt)
	assert.Equal(t, first, *o.StartedPreparingAt)

	o.applyEntryTimestamp(WorkflowServed, first)
	o.applyEntryTimestamp(WorkflowCompleted, first)
	o.applyEntryTimestamp(WorkflowCancelled, first)
	assert.Equal(t, first, *o.ReadyAt)
	assert.Equal(t, first, *o.CompletedAt)
	assert.Equal(t, first, *o.CancelledAt)
}
