package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

// RedisBreachLedger records announced breaches with SET NX so that several
// API replicas sweeping the same tenants announce each breach once.
type RedisBreachLedger struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.BreachLedger = (*RedisBreachLedger)(nil)

// NewRedisBreachLedger creates a ledger whose keys expire after ttl.
func NewRedisBreachLedger(client redis.Cmdable, ttl time.Duration) *RedisBreachLedger {
	return &RedisBreachLedger{client: client, ttl: ttl}
}

// MarkNotified sets key if absent and reports whether this call set it.
func (l *RedisBreachLedger) MarkNotified(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}
