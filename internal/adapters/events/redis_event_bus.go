package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
)

// ErrBusClosed is returned by Publish after Close
var ErrBusClosed = errors.New("event bus closed")

// RedisEventBus implements the EventBus interface using Redis Pub/Sub
type RedisEventBus struct {
	client redis.Cmdable

	mu     sync.RWMutex
	closed bool
}

// NewRedisEventBus creates a new Redis-based event bus. The bus does not own
// the client; closing the bus only stops publishing.
func NewRedisEventBus(client redis.Cmdable) *RedisEventBus {
	return &RedisEventBus{client: client}
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// Publish publishes a decision event on channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.OrderDecisionEvent) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := b.client.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Int64("receivers", receivers).
		Msg("published order decision")
	return nil
}

// Close stops the bus; later publishes fail with ErrBusClosed
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
