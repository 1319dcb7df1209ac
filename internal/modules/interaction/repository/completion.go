package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"gorm.io/gorm"
)

type CompletionRepository interface {
	// Create fails with ErrDuplicateClaim when the performer already claimed the request.
	Create(ctx context.Context, c *entity.Completion) error
	FindByID(ctx context.Context, id uint64) (*entity.Completion, error)
	Exists(ctx context.Context, performerID int64, requestID uint64) (bool, error)
	// MarkPaid records the payout. It only succeeds once per completion.
	MarkPaid(ctx context.Context, id uint64, state entity.VerificationState, amount int64, at time.Time) error
	MarkRejected(ctx context.Context, id uint64) error
	ListByPerformer(ctx context.Context, performerID int64, limit int) ([]entity.Completion, error)
	Count(ctx context.Context) (int64, error)
}

type completionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) Create(ctx context.Context, c *entity.Completion) error {
	err := database.Conn(ctx, r.db).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrDuplicateClaim
	}
	return apperror.Storage(err)
}

func (r *completionRepository) FindByID(ctx context.Context, id uint64) (*entity.Completion, error) {
	var c entity.Completion
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, apperror.Storage(err)
	}
	return &c, nil
}

func (r *completionRepository) Exists(ctx context.Context, performerID int64, requestID uint64) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Completion{}).
		Where("performer_id = ? AND request_id = ?", performerID, requestID).
		Count(&count).Error
	return count > 0, apperror.Storage(err)
}

func (r *completionRepository) MarkPaid(ctx context.Context, id uint64, state entity.VerificationState, amount int64, at time.Time) error {
	res := database.Conn(ctx, r.db).Model(&entity.Completion{}).
		Where("id = ? AND paid_at IS NULL AND payable = ?", id, true).
		Updates(map[string]any{
			"state":           state,
			"amount_credited": amount,
			"paid_at":         at,
		})
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ErrInvalidTransition
	}
	return nil
}

func (r *completionRepository) MarkRejected(ctx context.Context, id uint64) error {
	res := database.Conn(ctx, r.db).Model(&entity.Completion{}).
		Where("id = ? AND paid_at IS NULL", id).
		Updates(map[string]any{
			"state":   entity.StateRejected,
			"payable": false,
		})
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ErrInvalidTransition
	}
	return nil
}

func (r *completionRepository) ListByPerformer(ctx context.Context, performerID int64, limit int) ([]entity.Completion, error) {
	var completions []entity.Completion
	err := database.Conn(ctx, r.db).
		Where("performer_id = ?", performerID).
		Order("id desc").
		Limit(limit).
		Find(&completions).Error
	return completions, apperror.Storage(err)
}

func (r *completionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Completion{}).Count(&count).Error
	return count, apperror.Storage(err)
}
