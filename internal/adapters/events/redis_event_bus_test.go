package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/orderdesk/backend/internal/adapters/events"
	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	redis.Cmdable
	sent []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.sent = append(f.sent, published{channel: channel, payload: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

func TestRedisEventBus_Publish(t *testing.T) {
	fake := &fakePublisher{}
	bus := events.NewRedisEventBus(fake)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := bus.Publish(context.Background(), providers.EventChannelOrderDecisions, &entities.OrderDecisionEvent{
		ID:        "evt-1",
		OrderID:   "ord-1",
		PatientID: "pat-1",
		Decision:  entities.DecisionRejected,
		Reason:    "stock issue",
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "orders:decisions", fake.sent[0].channel)

	var got entities.OrderDecisionEvent
	require.NoError(t, json.Unmarshal(fake.sent[0].payload, &got))
	assert.Equal(t, "ord-1", got.OrderID)
	assert.Equal(t, entities.DecisionRejected, got.Decision)
	assert.True(t, at.Equal(got.At))
}

func TestRedisEventBus_Errors(t *testing.T) {
	fake := &fakePublisher{err: errors.New("READONLY")}
	bus := events.NewRedisEventBus(fake)
	event := &entities.OrderDecisionEvent{ID: "evt-1"}

	assert.Error(t, bus.Publish(context.Background(), "c", event))

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), "c", event), events.ErrBusClosed)
}
