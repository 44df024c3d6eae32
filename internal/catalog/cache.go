package catalog

import (
	"context"
	"encoding/json"
	"time"

	"form-connectors/internal/common/logger"
	"form-connectors/internal/form"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "form-connectors:catalog:"
	typesKey      = keyPrefix + "types"
	connectorsKey = keyPrefix + "connectors"
)

// RedisCache serves catalogs from Redis and falls through to the wrapped
// source on a miss. Cache failures are logged and never fail a load.
type RedisCache struct {
	source Source
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisCache(source Source, client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{
		source: source,
		redis:  client,
		ttl:    ttl,
		logger: logger.Component(log, "catalog-cache"),
	}
}

func (c *RedisCache) LoadActionTypes(ctx context.Context) ([]form.ConnectorType, error) {
	var types []form.ConnectorType
	if c.get(ctx, typesKey, &types) {
		return types, nil
	}
	types, err := c.source.LoadActionTypes(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, typesKey, types)
	return types, nil
}

func (c *RedisCache) LoadAllActions(ctx context.Context) ([]form.Connector, error) {
	var conns []form.Connector
	if c.get(ctx, connectorsKey, &conns) {
		return conns, nil
	}
	conns, err := c.source.LoadAllActions(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, connectorsKey, conns)
	return conns, nil
}

// Invalidate drops both cached catalogs so the next load goes to the source.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, typesKey, connectorsKey).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, out interface{}) bool {
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("catalog cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		c.logger.Warn("discarding corrupt catalog cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (c *RedisCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
