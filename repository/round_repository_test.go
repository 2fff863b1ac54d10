package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo/models"
	"wingo/repository/testutil"
	"wingo/service"
)

var oneMinute = models.Interval{Label: "1m", Duration: time.Minute}

func TestRoundRepository_CreateAndGetActive(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now().UTC()

	round := testutil.CreateTestRound(oneMinute, 1, now.Add(-10*time.Second))
	require.NoError(t, repo.Create(ctx, round))
	assert.NotZero(t, round.ID)
	assert.False(t, round.CreatedAt.IsZero())

	t.Run("active across intervals", func(t *testing.T) {
		active, err := repo.GetActive(ctx, now)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, round.ID, active[0].ID)
		assert.Equal(t, round.Period, active[0].Period)
		assert.True(t, round.StartTime.Equal(active[0].StartTime))
	})

	t.Run("active by interval", func(t *testing.T) {
		active, err := repo.GetActiveByInterval(ctx, "1m", now)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, round.ID, active.ID)

		none, err := repo.GetActiveByInterval(ctx, "5m", now)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("window end is exclusive", func(t *testing.T) {
		active, err := repo.GetActive(ctx, round.EndTime)
		require.NoError(t, err)
		assert.Empty(t, active)
	})
}

func TestRoundRepository_UniqueConstraints(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()
	start := time.Now().UTC()

	first := testutil.CreateTestRound(oneMinute, 1, start)
	require.NoError(t, repo.Create(ctx, first))

	t.Run("duplicate serial", func(t *testing.T) {
		dup := testutil.CreateTestRound(oneMinute, 1, start.Add(time.Minute))
		err := repo.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, errors.Is(err, service.ErrConcurrentUpdate))
	})

	t.Run("duplicate start", func(t *testing.T) {
		dup := testutil.CreateTestRound(oneMinute, 2, start)
		err := repo.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, errors.Is(err, service.ErrConcurrentUpdate))
	})

	t.Run("same start in another interval", func(t *testing.T) {
		other := testutil.CreateTestRound(models.Interval{Label: "3m", Duration: 3 * time.Minute}, 1, start)
		require.NoError(t, repo.Create(ctx, other))
	})
}

func TestRoundRepository_NextSerialAndLatest(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()

	next, err := repo.NextSerialNumber(ctx, "1m")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	latest, err := repo.GetLatestByInterval(ctx, "1m")
	require.NoError(t, err)
	assert.Nil(t, latest)

	start := time.Now().UTC().Add(-3 * time.Minute)
	for i := int64(1); i <= 3; i++ {
		round := testutil.CreateTestRound(oneMinute, i, start.Add(time.Duration(i-1)*time.Minute))
		require.NoError(t, repo.Create(ctx, round))
	}

	next, err = repo.NextSerialNumber(ctx, "1m")
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)

	latest, err = repo.GetLatestByInterval(ctx, "1m")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(3), latest.SerialNumber)

	recent, err := repo.GetRecentByInterval(ctx, "1m", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].SerialNumber)
	assert.Equal(t, int64(2), recent[1].SerialNumber)
}

func TestRoundRepository_ExpiredAndSettle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now().UTC()

	older := testutil.CreateTestRound(oneMinute, 1, now.Add(-3*time.Minute))
	newer := testutil.CreateTestRound(oneMinute, 2, now.Add(-2*time.Minute))
	current := testutil.CreateTestRound(oneMinute, 3, now.Add(-30*time.Second))
	for _, round := range []*models.Round{newer, older, current} {
		require.NoError(t, repo.Create(ctx, round))
	}

	expired, err := repo.GetExpiredPending(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, older.ID, expired[0].ID)
	assert.Equal(t, newer.ID, expired[1].ID)

	limited, err := repo.GetExpiredPending(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	require.NoError(t, repo.MarkSettled(ctx, older.ID, 7, now))

	settled, err := repo.GetByIDForUpdate(ctx, older.ID)
	require.NoError(t, err)
	require.NotNil(t, settled)
	assert.Equal(t, models.RoundStatusSettled, settled.Status)
	require.NotNil(t, settled.ResultNumber)
	assert.Equal(t, int16(7), *settled.ResultNumber)
	require.NotNil(t, settled.ResultAt)

	t.Run("settling twice fails", func(t *testing.T) {
		assert.Error(t, repo.MarkSettled(ctx, older.ID, 3, now))
	})

	t.Run("out of range result", func(t *testing.T) {
		assert.Error(t, repo.MarkSettled(ctx, newer.ID, 10, now))
	})

	t.Run("missing round", func(t *testing.T) {
		missing, err := repo.GetByIDForUpdate(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	expired, err = repo.GetExpiredPending(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, newer.ID, expired[0].ID)
}
