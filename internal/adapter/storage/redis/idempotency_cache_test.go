package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mini-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*IdempotencyCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyCache(client), s
}

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()

	accountID := uuid.New()
	key := domain.BuildIdempotencyKey(accountID, "k1")
	rec := domain.IdempotencyRecord{
		AccountID: accountID,
		Key:       "k1",
		Operation: domain.OperationDeposit,
		Entries: []domain.Transaction{{
			ID:             uuid.New(),
			AccountID:      accountID,
			Amount:         decimal.RequireFromString("100.25"),
			Currency:       "USD",
			AccountVersion: 1,
			IdempotencyKey: "k1",
		}},
	}
	value, err := json.Marshal(rec)
	require.NoError(t, err)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)

	var decoded domain.IdempotencyRecord
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Equal(t, domain.OperationDeposit, decoded.Operation)
	assert.True(t, decoded.Entries[0].Amount.Equal(decimal.RequireFromString("100.25")))

	assert.True(t, s.Exists(KeyPrefix+key))
	assert.Equal(t, 24*time.Hour, s.TTL(KeyPrefix+key))
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()
	key := domain.BuildIdempotencyKey(uuid.New(), "k2")

	require.NoError(t, cache.Set(ctx, key, []byte(`{}`), time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_NoTTL(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()
	key := domain.BuildIdempotencyKey(uuid.New(), "k3")

	require.NoError(t, cache.Set(ctx, key, []byte(`{}`), 0))
	assert.Equal(t, time.Duration(0), s.TTL(KeyPrefix+key))

	s.FastForward(48 * time.Hour)
	result, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestIdempotencyCache_ServerDown(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()
	s.Close()

	_, err := cache.Get(ctx, "any")
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, "any", []byte("x"), time.Minute))
	assert.Error(t, cache.Ping(ctx))
}

func TestIdempotencyCache_Health(t *testing.T) {
	cache, _ := newTestCache(t)

	assert.NoError(t, cache.Ping(context.Background()))
	assert.Equal(t, "redis", cache.Name())
}
