// internal/domain/order/events.go
package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// StatusChangedEvent is the broadcast payload consumed by live dashboards
// and other external subscribers. The channel is a pure sink; nothing
// feeds back into this package.
type StatusChangedEvent struct {
	OrderID     uint        `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	ChangedByID *uint       `json:"changed_by_id,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// EventPublisher broadcasts order status changes over Redis pub/sub.
// Publishing is fire-and-forget: a broadcast failure never blocks or
// fails the status change that triggered it.
type EventPublisher struct {
	redisClient *redis.Client
	channel     string
}

// NewEventPublisher creates a publisher for the given channel
func NewEventPublisher(redisClient *redis.Client, channel string) *EventPublisher {
	return &EventPublisher{
		redisClient: redisClient,
		channel:     channel,
	}
}

// PublishStatusChanged emits a status-changed event. Failures are logged
// and swallowed.
func (p *EventPublisher) PublishStatusChanged(ctx context.Context, o *Order, old, new OrderStatus, changedBy *uint) {
	if p == nil || p.redisClient == nil {
		return
	}

	event := StatusChangedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		OldStatus:   old,
		NewStatus:   new,
		ChangedByID: changedBy,
		OccurredAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("order_id", o.ID).Warn("failed to encode status event")
		return
	}

	if err := p.redisClient.Publish(ctx, p.channel, payload).Err(); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"order_id": o.ID,
			"channel":  p.channel,
		}).Warn("failed to publish status event")
	}
}
