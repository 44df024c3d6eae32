package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"form-connectors/internal/common/logger"
	"form-connectors/internal/form"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSource struct {
	types      []form.ConnectorType
	conns      []form.Connector
	err        error
	typeCalls  int32
	connCalls  int32
	block      chan struct{}
	onTypeCall func()
}

func (f *fakeSource) LoadActionTypes(ctx context.Context) ([]form.ConnectorType, error) {
	atomic.AddInt32(&f.typeCalls, 1)
	if f.onTypeCall != nil {
		f.onTypeCall()
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.types, f.err
}

func (f *fakeSource) LoadAllActions(ctx context.Context) ([]form.Connector, error) {
	atomic.AddInt32(&f.connCalls, 1)
	return f.conns, f.err
}

func createTestSource() *fakeSource {
	return &fakeSource{
		types: []form.ConnectorType{{ID: ".webhook", Name: "Webhook", Enabled: true}},
		conns: []form.Connector{{ID: "wh-1", Name: "Ops webhook", ConnectorTypeID: ".webhook"}},
	}
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ==========================
// Tests
// ==========================

func TestRedisCache_ServesFromCache(t *testing.T) {
	mr, client := setupTestRedis(t)
	source := createTestSource()
	cache := NewRedisCache(source, client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := cache.LoadActionTypes(ctx)
	require.NoError(t, err)
	second, err := cache.LoadActionTypes(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.typeCalls))
	assert.True(t, mr.Exists("form-connectors:catalog:types"))

	_, err = cache.LoadAllActions(ctx)
	require.NoError(t, err)
	conns, err := cache.LoadAllActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wh-1", conns[0].ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.connCalls))
}

func TestRedisCache_TTLAndInvalidate(t *testing.T) {
	mr, client := setupTestRedis(t)
	source := createTestSource()
	cache := NewRedisCache(source, client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := cache.LoadActionTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("form-connectors:catalog:types"))

	mr.FastForward(2 * time.Minute)
	_, err = cache.LoadActionTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.typeCalls))

	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists("form-connectors:catalog:types"))
}

func TestRedisCache_SourceErrorNotCached(t *testing.T) {
	mr, client := setupTestRedis(t)
	source := &fakeSource{err: errors.New("kibana down")}
	cache := NewRedisCache(source, client, time.Minute, logger.NewTestLogger(t))

	_, err := cache.LoadAllActions(context.Background())
	assert.EqualError(t, err, "kibana down")
	assert.False(t, mr.Exists("form-connectors:catalog:connectors"))
}

func TestRedisCache_FallsThroughWhenRedisIsDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()
	source := createTestSource()
	cache := NewRedisCache(source, client, time.Minute, logger.NewTestLogger(t))

	types, err := cache.LoadActionTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, types, 1)
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set("form-connectors:catalog:types", "{not json"))
	source := createTestSource()
	cache := NewRedisCache(source, client, time.Minute, logger.NewTestLogger(t))

	types, err := cache.LoadActionTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Webhook", types[0].Name)
}
