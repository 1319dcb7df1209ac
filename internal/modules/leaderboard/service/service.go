package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"anoa.com/coinexchange/internal/entity"
	leaderboardDto "anoa.com/coinexchange/internal/modules/leaderboard/dto"
	leaderboardRepo "anoa.com/coinexchange/internal/modules/leaderboard/repository"
	notifService "anoa.com/coinexchange/internal/modules/notification/service"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"anoa.com/coinexchange/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultTopN = 10
	MaxTopN     = 100

	cacheTTL = 30 * time.Second
	// Users notified of their final position when a period closes.
	notifiedPositions = 3
)

type LeaderboardService interface {
	// RecordPoints credits the action's points to every period containing at. Periods
	// that are already closed are skipped. Runs inside the caller's transaction.
	RecordPoints(ctx context.Context, userID int64, kind entity.ActionKind, completionID uint64, at time.Time) error
	Leaderboard(ctx context.Context, periodKey string, topN int) ([]leaderboardDto.LeaderboardEntry, error)
	// ClosePeriod freezes the period. Closing a closed period returns the stored snapshot.
	ClosePeriod(ctx context.Context, periodKey string) ([]leaderboardDto.LeaderboardEntry, error)
	IsClosed(ctx context.Context, periodKey string) (bool, error)
	CurrentPeriods() []string
	UserPoints(ctx context.Context, periodKey string, userID int64) (int64, error)
}

type leaderboardService struct {
	repo          leaderboardRepo.LeaderboardRepository
	tx            database.Transactor
	prices        *pricing.Table
	redisClient   *redis.Client
	notifications notifService.NotificationService
	loc           *time.Location
	now           func() time.Time
}

func NewLeaderboardService(repo leaderboardRepo.LeaderboardRepository, tx database.Transactor, prices *pricing.Table, redisClient *redis.Client, notifications notifService.NotificationService, loc *time.Location) LeaderboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &leaderboardService{
		repo:          repo,
		tx:            tx,
		prices:        prices,
		redisClient:   redisClient,
		notifications: notifications,
		loc:           loc,
		now:           time.Now,
	}
}

func (s *leaderboardService) RecordPoints(ctx context.Context, userID int64, kind entity.ActionKind, completionID uint64, at time.Time) error {
	points := s.prices.PointsFor(kind)
	if points <= 0 {
		return nil
	}

	for _, key := range PeriodKeys(at, s.loc) {
		closed, err := s.repo.IsClosed(ctx, key)
		if err != nil {
			return err
		}
		if closed {
			logger.Log.Info("points dropped for closed period",
				zap.String("period", key),
				zap.Int64("user_id", userID),
				zap.Uint64("completion_id", completionID),
			)
			continue
		}

		if err := s.repo.CreatePointLog(ctx, &entity.PointLog{
			UserID:       userID,
			PeriodKey:    key,
			ActionKind:   kind,
			Points:       points,
			CompletionID: completionID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *leaderboardService) Leaderboard(ctx context.Context, periodKey string, topN int) ([]leaderboardDto.LeaderboardEntry, error) {
	if _, err := ParsePeriod(periodKey, s.loc); err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	topN = min(topN, MaxTopN)

	closed, err := s.repo.IsClosed(ctx, periodKey)
	if err != nil {
		return nil, err
	}
	if closed {
		rows, err := s.repo.Snapshot(ctx, periodKey, topN)
		if err != nil {
			return nil, err
		}
		return fromSnapshot(rows), nil
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%d", periodKey, topN)
	if entries, ok := s.cached(ctx, cacheKey); ok {
		return entries, nil
	}

	standings, err := s.repo.Aggregate(ctx, periodKey, topN)
	if err != nil {
		return nil, err
	}
	entries := fromStandings(standings)
	s.cache(ctx, cacheKey, entries)
	return entries, nil
}

func (s *leaderboardService) ClosePeriod(ctx context.Context, periodKey string) ([]leaderboardDto.LeaderboardEntry, error) {
	period, err := ParsePeriod(periodKey, s.loc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if period.Start.After(now) {
		return nil, apperror.ErrInvalidPeriod
	}

	var (
		entries []leaderboardDto.LeaderboardEntry
		created bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		standings, err := s.repo.Aggregate(ctx, periodKey, 0)
		if err != nil {
			return err
		}

		snapshot := make([]entity.RankingSnapshot, 0, len(standings))
		for i, st := range standings {
			snapshot = append(snapshot, entity.RankingSnapshot{
				PeriodKey:     periodKey,
				Position:      i + 1,
				UserID:        st.UserID,
				Points:        st.Points,
				LastAccrualID: st.LastAccrualID,
			})
		}

		created, err = s.repo.ClosePeriod(ctx, periodKey, now, snapshot)
		if err != nil {
			return err
		}
		if !created {
			rows, err := s.repo.Snapshot(ctx, periodKey, 0)
			if err != nil {
				return err
			}
			snapshot = rows
		}
		entries = fromSnapshot(snapshot)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		logger.Log.Info("ranking period closed",
			zap.String("period", periodKey),
			zap.Int("ranked_users", len(entries)),
		)
		s.notifyWinners(ctx, periodKey, entries)
	}
	return entries, nil
}

func (s *leaderboardService) IsClosed(ctx context.Context, periodKey string) (bool, error) {
	return s.repo.IsClosed(ctx, periodKey)
}

func (s *leaderboardService) CurrentPeriods() []string {
	return PeriodKeys(s.now(), s.loc)
}

func (s *leaderboardService) UserPoints(ctx context.Context, periodKey string, userID int64) (int64, error) {
	if _, err := ParsePeriod(periodKey, s.loc); err != nil {
		return 0, err
	}
	return s.repo.PointsFor(ctx, periodKey, userID)
}

func (s *leaderboardService) notifyWinners(ctx context.Context, periodKey string, entries []leaderboardDto.LeaderboardEntry) {
	if s.notifications == nil {
		return
	}
	for _, e := range entries[:min(len(entries), notifiedPositions)] {
		s.notifications.Notify(ctx, &entity.Notification{
			UserID:     e.UserID,
			Type:       entity.NotificationPeriodClosed,
			Message:    fmt.Sprintf("You finished #%d in %s with %d points.", e.Position, periodKey, e.Points),
			EntityType: "ranking_period",
			EntityID:   periodKey,
		})
	}
}

func (s *leaderboardService) cached(ctx context.Context, key string) ([]leaderboardDto.LeaderboardEntry, bool) {
	if s.redisClient == nil {
		return nil, false
	}
	raw, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("leaderboard cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var entries []leaderboardDto.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *leaderboardService) cache(ctx context.Context, key string, entries []leaderboardDto.LeaderboardEntry) {
	if s.redisClient == nil {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
		logger.Log.Warn("leaderboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func fromStandings(standings []leaderboardRepo.Standing) []leaderboardDto.LeaderboardEntry {
	entries := make([]leaderboardDto.LeaderboardEntry, 0, len(standings))
	for i, st := range standings {
		entries = append(entries, leaderboardDto.LeaderboardEntry{Position: i + 1, UserID: st.UserID, Points: st.Points})
	}
	return entries
}

func fromSnapshot(rows []entity.RankingSnapshot) []leaderboardDto.LeaderboardEntry {
	entries := make([]leaderboardDto.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, leaderboardDto.LeaderboardEntry{Position: row.Position, UserID: row.UserID, Points: row.Points})
	}
	return entries
}
