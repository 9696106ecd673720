package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisLedger creates a test Redis ledger with miniredis
func setupRedisLedger(t *testing.T, opts ...RedisOption) (*RedisLedger, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLedger(client, opts...), mr
}

func TestRedisLedger_LookupNotFound(t *testing.T) {
	l, _ := setupRedisLedger(t)

	_, err := l.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisLedger_InvalidID(t *testing.T) {
	l, _ := setupRedisLedger(t)
	ctx := context.Background()

	assert.ErrorIs(t, l.Record(ctx, Resolution{}), ErrInvalidID)
	_, err := l.Lookup(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, l.Forget(ctx, ""), ErrInvalidID)
}

func TestRedisLedger_RecordAndLookup(t *testing.T) {
	l, mr := setupRedisLedger(t, WithPrefix("invoices"))
	ctx := context.Background()

	resolvedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, l.Record(ctx, Resolution{
		TaskID:     "t1",
		Topic:      "invoice",
		Operation:  "handle_bpmn_error",
		WorkerID:   "worker-1",
		ResolvedAt: resolvedAt,
	}))

	assert.True(t, mr.Exists("invoices:task:t1"))

	r, err := l.Lookup(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "handle_bpmn_error", r.Operation)
	assert.Equal(t, "worker-1", r.WorkerID)
	assert.True(t, resolvedAt.Equal(r.ResolvedAt))
}

func TestRedisLedger_TTL(t *testing.T) {
	l, mr := setupRedisLedger(t, WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Resolution{TaskID: "t1", Operation: "complete"}))
	assert.Equal(t, time.Hour, mr.TTL("taskkit:task:t1"))

	mr.FastForward(2 * time.Hour)

	resolved, err := IsResolved(ctx, l, "t1")
	require.NoError(t, err)
	assert.False(t, resolved)
}

func TestRedisLedger_NoTTL(t *testing.T) {
	l, mr := setupRedisLedger(t, WithTTL(0))

	require.NoError(t, l.Record(context.Background(), Resolution{TaskID: "t1"}))
	assert.Equal(t, time.Duration(0), mr.TTL("taskkit:task:t1"))
}

func TestRedisLedger_Forget(t *testing.T) {
	l, mr := setupRedisLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Resolution{TaskID: "t1"}))
	require.NoError(t, l.Forget(ctx, "t1"))
	assert.False(t, mr.Exists("taskkit:task:t1"))
}

func TestRedisLedger_CorruptEntry(t *testing.T) {
	l, mr := setupRedisLedger(t)
	require.NoError(t, mr.Set("taskkit:task:t1", "{not json"))

	_, err := l.Lookup(context.Background(), "t1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisLedger_ConnectionError(t *testing.T) {
	l, mr := setupRedisLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Ping(ctx))

	mr.Close()

	assert.Error(t, l.Ping(ctx))
	_, err := IsResolved(ctx, l, "t1")
	assert.Error(t, err)
}
