package providers

import (
	"context"

	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
)

// EventChannelOrderDecisions carries every accepted approve or reject
const EventChannelOrderDecisions = "orders:decisions"

// EventBus publishes order decision events to other screens and services
type EventBus interface {
	// Publish publishes an event on a channel
	Publish(ctx context.Context, channel string, event *entities.OrderDecisionEvent) error

	// Close releases the bus
	Close() error
}
