package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/orderdesk/backend/internal/adapters/cache"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
)

// fakeRedis implements the handful of commands the adapter issues
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	v, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisAdapter(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	adapter := cache.NewRedisAdapter(fake, "orderdesk:")

	_, err := adapter.Get(ctx, "department:1")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "department:1", []byte("Cardiology"), 90))
	assert.Equal(t, 90*time.Second, fake.ttl["orderdesk:department:1"])

	got, err := adapter.Get(ctx, "department:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("Cardiology"), got)

	require.NoError(t, adapter.Delete(ctx, "department:1"))
	_, err = adapter.Get(ctx, "department:1")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_ConnectionErrorsAreNotMisses(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("dial tcp: connection refused")
	adapter := cache.NewRedisAdapter(fake, "")

	_, err := adapter.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss)
	assert.Error(t, adapter.Set(context.Background(), "k", []byte("v"), 1))
}
