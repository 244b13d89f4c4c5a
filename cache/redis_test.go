package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "", time.Hour)
	ctx := context.Background()

	t.Run("hit decodes value", func(t *testing.T) {
		mock.ExpectGet("stockcast:fit:1").SetVal(`{"name":"a","values":[1,2]}`)

		var got entry
		require.NoError(t, store.Get(ctx, "fit:1", &got))
		assert.Equal(t, entry{Name: "a", Values: []float64{1, 2}}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil reply is a miss", func(t *testing.T) {
		mock.ExpectGet("stockcast:fit:2").RedisNil()

		var got entry
		assert.ErrorIs(t, store.Get(ctx, "fit:2", &got), ErrCacheMiss)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("server error propagates", func(t *testing.T) {
		mock.ExpectGet("stockcast:fit:3").SetErr(redis.TxFailedErr)

		var got entry
		err := store.Get(ctx, "fit:3", &got)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCacheMiss)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "test", 10*time.Minute)
	ctx := context.Background()

	value := entry{Name: "b", Values: []float64{0.1}}
	data, err := json.Marshal(value)
	require.NoError(t, err)

	t.Run("default ttl", func(t *testing.T) {
		mock.ExpectSet("test:k", data, 10*time.Minute).SetVal("OK")

		require.NoError(t, store.Set(ctx, "k", value, 0))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("explicit ttl", func(t *testing.T) {
		mock.ExpectSet("test:k", data, time.Minute).SetVal("OK")

		require.NoError(t, store.Set(ctx, "k", value, time.Minute))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("server error propagates", func(t *testing.T) {
		mock.ExpectSet("test:k", data, time.Minute).SetErr(redis.TxFailedErr)

		assert.Error(t, store.Set(ctx, "k", value, time.Minute))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "", 0)
	ctx := context.Background()

	mock.ExpectUnlink("stockcast:a", "stockcast:b").SetVal(2)

	require.NoError(t, store.Delete(ctx, "a", "b"))
	require.NoError(t, store.Delete(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredFallsThroughAndRefills(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewLayered(NewMemory(), NewRedis(db, "", 0))
	ctx := context.Background()

	mock.ExpectGet("stockcast:k").SetVal(`{"name":"remote","values":[3]}`)

	var got entry
	require.NoError(t, store.Get(ctx, "k", &got))
	assert.Equal(t, "remote", got.Name)

	// Second read is served locally without touching Redis.
	var again entry
	require.NoError(t, store.Get(ctx, "k", &again))
	assert.Equal(t, got, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredMissAndWriteThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	local := NewMemory()
	store := NewLayered(local, NewRedis(db, "", 0))
	ctx := context.Background()

	mock.ExpectGet("stockcast:k").RedisNil()
	var got entry
	assert.ErrorIs(t, store.Get(ctx, "k", &got), ErrCacheMiss)

	value := entry{Name: "w"}
	data, err := json.Marshal(value)
	require.NoError(t, err)
	mock.ExpectSet("stockcast:k", data, time.Duration(0)).SetVal("OK")

	require.NoError(t, store.Set(ctx, "k", value, 0))
	assert.Equal(t, 1, local.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}
