package repository

import (
	"context"
	"time"

	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Standing is one aggregated leaderboard row. LastAccrualID is the id of the point log
// that brought the user to their total, used to break ties.
type Standing struct {
	UserID        int64
	Points        int64
	LastAccrualID uint64
}

type LeaderboardRepository interface {
	CreatePointLog(ctx context.Context, log *entity.PointLog) error
	IsClosed(ctx context.Context, periodKey string) (bool, error)
	Aggregate(ctx context.Context, periodKey string, limit int) ([]Standing, error)
	// ClosePeriod marks the period closed and stores its snapshot. It reports false
	// without writing anything when the period was already closed.
	ClosePeriod(ctx context.Context, periodKey string, at time.Time, snapshot []entity.RankingSnapshot) (bool, error)
	Snapshot(ctx context.Context, periodKey string, limit int) ([]entity.RankingSnapshot, error)
	PointsFor(ctx context.Context, periodKey string, userID int64) (int64, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) CreatePointLog(ctx context.Context, log *entity.PointLog) error {
	return apperror.Storage(database.Conn(ctx, r.db).Create(log).Error)
}

func (r *leaderboardRepository) IsClosed(ctx context.Context, periodKey string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.RankingPeriod{}).
		Where("period_key = ?", periodKey).
		Count(&count).Error
	return count > 0, apperror.Storage(err)
}

func (r *leaderboardRepository) Aggregate(ctx context.Context, periodKey string, limit int) ([]Standing, error) {
	query := database.Conn(ctx, r.db).Model(&entity.PointLog{}).
		Select("user_id, SUM(points) AS points, MAX(id) AS last_accrual_id").
		Where("period_key = ?", periodKey).
		Group("user_id").
		Order("points DESC, last_accrual_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var standings []Standing
	err := query.Scan(&standings).Error
	return standings, apperror.Storage(err)
}

func (r *leaderboardRepository) ClosePeriod(ctx context.Context, periodKey string, at time.Time, snapshot []entity.RankingSnapshot) (bool, error) {
	conn := database.Conn(ctx, r.db)

	res := conn.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.RankingPeriod{Key: periodKey, ClosedAt: at})
	if res.Error != nil {
		return false, apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if len(snapshot) > 0 {
		if err := conn.CreateInBatches(&snapshot, 200).Error; err != nil {
			return false, apperror.Storage(err)
		}
	}
	return true, nil
}

func (r *leaderboardRepository) Snapshot(ctx context.Context, periodKey string, limit int) ([]entity.RankingSnapshot, error) {
	query := database.Conn(ctx, r.db).
		Where("period_key = ?", periodKey).
		Order("position ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []entity.RankingSnapshot
	err := query.Find(&rows).Error
	return rows, apperror.Storage(err)
}

func (r *leaderboardRepository) PointsFor(ctx context.Context, periodKey string, userID int64) (int64, error) {
	var points int64
	err := database.Conn(ctx, r.db).Model(&entity.PointLog{}).
		Select("COALESCE(SUM(points), 0)").
		Where("period_key = ? AND user_id = ?", periodKey, userID).
		Scan(&points).Error
	return points, apperror.Storage(err)
}
