package hold

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexDueOrdersByExpiry(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	now := time.Now()

	require.NoError(t, idx.Schedule(ctx, "late", now.Add(-time.Second)))
	require.NoError(t, idx.Schedule(ctx, "early", now.Add(-time.Minute)))
	require.NoError(t, idx.Schedule(ctx, "future", now.Add(time.Minute)))

	due, err := idx.Due(ctx, now, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, due)

	due, err = idx.Due(ctx, now, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, due)

	require.NoError(t, idx.Remove(ctx, "early"))
	assert.Equal(t, 2, idx.Len())
	require.NoError(t, idx.Clear(ctx))
	assert.Zero(t, idx.Len())
}

func TestRedisIndexKey(t *testing.T) {
	db, _ := redismock.NewClientMock()
	assert.Equal(t, "holds:expiry:node-1", NewRedisIndex(db, "", "node-1").Key())
	assert.Equal(t, "custom", NewRedisIndex(db, "custom", "").Key())
}

func TestRedisIndexSchedule(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idx := NewRedisIndex(db, "holds:expiry", "a")
	at := time.UnixMilli(1_700_000_000_000)

	mock.ExpectZAdd("holds:expiry:a", redis.Z{Score: float64(at.UnixMilli()), Member: "h1"}).SetVal(1)
	require.NoError(t, idx.Schedule(context.Background(), "h1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIndexRemoveAndClear(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idx := NewRedisIndex(db, "holds:expiry", "a")

	mock.ExpectZRem("holds:expiry:a", "h1").SetVal(1)
	mock.ExpectDel("holds:expiry:a").SetVal(1)
	require.NoError(t, idx.Remove(context.Background(), "h1"))
	require.NoError(t, idx.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIndexDue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idx := NewRedisIndex(db, "holds:expiry", "a")
	now := time.UnixMilli(1_700_000_000_500)

	mock.ExpectZRangeByScore("holds:expiry:a", &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "1700000000500",
		Count: 10,
	}).SetVal([]string{"h1", "h2"})

	due, err := idx.Due(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, due)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIndexErrorsSurface(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idx := NewRedisIndex(db, "holds:expiry", "a")

	mock.ExpectZRem("holds:expiry:a", "h1").SetErr(errors.New("connection refused"))
	assert.Error(t, idx.Remove(context.Background(), "h1"))
}

func TestManagerToleratesIndexFailures(t *testing.T) {
	// no expectations: every Redis call fails
	db, _ := redismock.NewClientMock()
	f := newFixture(t, WithIndex(NewRedisIndex(db, "holds:expiry", "a")))

	h, err := f.mgr.RequestHold(context.Background(), "s1", f.seats(t, "A01"), 0)
	require.NoError(t, err, "the in-process timer still owns expiry")
	assert.Equal(t, "s1", h.SessionID)
}
