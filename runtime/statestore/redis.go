package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger is a Ledger shared by every worker pointed at the same Redis.
// Each resolution is one JSON string key expiring after the ledger's TTL.
type RedisLedger struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisLedger.
type RedisOption func(*RedisLedger)

// WithTTL sets how long resolutions are kept. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLedger) { l.ttl = ttl }
}

// WithPrefix sets the key prefix. Default is "taskkit".
func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLedger) { l.prefix = prefix }
}

// NewRedisLedger creates a Redis-backed ledger.
//
// Example:
//
//	ledger := NewRedisLedger(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithTTL(time.Hour),
//	    WithPrefix("invoices"),
//	)
func NewRedisLedger(client redis.UniversalClient, opts ...RedisOption) *RedisLedger {
	l := &RedisLedger{
		client: client,
		ttl:    defaultTTL,
		prefix: "taskkit",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record implements Ledger.
func (l *RedisLedger) Record(ctx context.Context, r Resolution) error {
	if r.TaskID == "" {
		return ErrInvalidID
	}
	if r.ResolvedAt.IsZero() {
		r.ResolvedAt = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("statestore: record %s: %w", r.TaskID, err)
	}
	if err := l.client.Set(ctx, l.key(r.TaskID), data, l.ttl).Err(); err != nil {
		return fmt.Errorf("statestore: record %s: %w", r.TaskID, err)
	}
	return nil
}

// Lookup implements Ledger.
func (l *RedisLedger) Lookup(ctx context.Context, taskID string) (*Resolution, error) {
	if taskID == "" {
		return nil, ErrInvalidID
	}
	data, err := l.client.Get(ctx, l.key(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("statestore: lookup %s: %w", taskID, err)
	}
	var r Resolution
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("statestore: lookup %s: %w", taskID, err)
	}
	return &r, nil
}

// Forget implements Ledger.
func (l *RedisLedger) Forget(ctx context.Context, taskID string) error {
	if taskID == "" {
		return ErrInvalidID
	}
	if err := l.client.Del(ctx, l.key(taskID)).Err(); err != nil {
		return fmt.Errorf("statestore: forget %s: %w", taskID, err)
	}
	return nil
}

// Ping checks connectivity.
func (l *RedisLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLedger) key(taskID string) string {
	return fmt.Sprintf("%s:task:%s", l.prefix, taskID)
}
