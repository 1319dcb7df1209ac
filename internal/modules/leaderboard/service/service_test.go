package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/coinexchange/internal/entity"
	leaderboardDto "anoa.com/coinexchange/internal/modules/leaderboard/dto"
	leaderboardRepo "anoa.com/coinexchange/internal/modules/leaderboard/repository"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/internal/testutil"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userA int64 = 100
	userB int64 = 200
	userC int64 = 300
)

var accrualTime = time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) LeaderboardService {
	t.Helper()
	db := testutil.NewDB(t)
	return NewLeaderboardService(leaderboardRepo.NewLeaderboardRepository(db), database.NewTransactor(db), pricing.Default(), nil, nil, time.UTC)
}

func record(t *testing.T, svc LeaderboardService, userID int64, kind entity.ActionKind) {
	t.Helper()
	require.NoError(t, svc.RecordPoints(context.Background(), userID, kind, 0, accrualTime))
}

func TestLeaderboardOrdersByPointsThenEarliestAccrual(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	record(t, svc, userA, entity.ActionLike)
	record(t, svc, userB, entity.ActionComment)
	record(t, svc, userC, entity.ActionLike)
	record(t, svc, userA, entity.ActionFollow)

	entries, err := svc.Leaderboard(ctx, "weekly:2026-W11", 10)
	require.NoError(t, err)
	assert.Equal(t, []leaderboardDto.LeaderboardEntry{
		{Position: 1, UserID: userB, Points: 6},
		{Position: 2, UserID: userA, Points: 6},
		{Position: 3, UserID: userC, Points: 1},
	}, entries)

	monthly, err := svc.Leaderboard(ctx, "monthly:2026-03", 2)
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, userB, monthly[0].UserID)

	empty, err := svc.Leaderboard(ctx, "weekly:2026-W12", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.Leaderboard(ctx, "yearly:2026", 10)
	assert.ErrorIs(t, err, apperror.ErrInvalidPeriod)

	points, err := svc.UserPoints(ctx, "weekly:2026-W11", userA)
	require.NoError(t, err)
	assert.Equal(t, int64(6), points)
}

func TestClosePeriodIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	record(t, svc, userA, entity.ActionComment)
	record(t, svc, userB, entity.ActionComment)
	record(t, svc, userC, entity.ActionLike)

	first, err := svc.ClosePeriod(ctx, "weekly:2026-W11")
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, userA, first[0].UserID)
	assert.Equal(t, userB, first[1].UserID)

	record(t, svc, userC, entity.ActionStoryShare)

	second, err := svc.ClosePeriod(ctx, "weekly:2026-W11")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	frozen, err := svc.Leaderboard(ctx, "weekly:2026-W11", 10)
	require.NoError(t, err)
	assert.Equal(t, first, frozen)

	monthly, err := svc.Leaderboard(ctx, "monthly:2026-03", 10)
	require.NoError(t, err)
	require.NotEmpty(t, monthly)
	assert.Equal(t, leaderboardDto.LeaderboardEntry{Position: 1, UserID: userC, Points: 11}, monthly[0])
}

func TestClosePeriodRejectsFuturePeriod(t *testing.T) {
	svc := newService(t)

	_, err := svc.ClosePeriod(context.Background(), "monthly:2999-01")
	assert.ErrorIs(t, err, apperror.ErrInvalidPeriod)
}
