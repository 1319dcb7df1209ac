package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EvidenceRepository interface {
	Create(ctx context.Context, e *entity.Evidence) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Evidence, error)
	FindByCompletion(ctx context.Context, completionID uint64) (*entity.Evidence, error)
	// SetStorageRef only touches pending evidence.
	SetStorageRef(ctx context.Context, id uuid.UUID, ref string) error
	// Resolve moves pending evidence to a terminal state. Zero affected rows means the
	// evidence was resolved by someone else first.
	Resolve(ctx context.Context, id uuid.UUID, state entity.VerificationState, reviewerID int64, at time.Time) error
	ListPending(ctx context.Context, limit, offset int) ([]entity.Evidence, error)
	CountPending(ctx context.Context) (int64, error)
}

type evidenceRepository struct {
	db *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) EvidenceRepository {
	return &evidenceRepository{db: db}
}

func (r *evidenceRepository) Create(ctx context.Context, e *entity.Evidence) error {
	return apperror.Storage(database.Conn(ctx, r.db).Create(e).Error)
}

func (r *evidenceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Evidence, error) {
	var e entity.Evidence
	err := database.Conn(ctx, r.db).Preload("Completion").Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrEvidenceNotFound
		}
		return nil, apperror.Storage(err)
	}
	return &e, nil
}

func (r *evidenceRepository) FindByCompletion(ctx context.Context, completionID uint64) (*entity.Evidence, error) {
	var e entity.Evidence
	err := database.Conn(ctx, r.db).Where("completion_id = ?", completionID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrEvidenceNotFound
		}
		return nil, apperror.Storage(err)
	}
	return &e, nil
}

func (r *evidenceRepository) SetStorageRef(ctx context.Context, id uuid.UUID, ref string) error {
	res := database.Conn(ctx, r.db).Model(&entity.Evidence{}).
		Where("id = ? AND state = ?", id, entity.StatePending).
		Update("storage_ref", ref)
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrResolved(ctx, id)
	}
	return nil
}

func (r *evidenceRepository) Resolve(ctx context.Context, id uuid.UUID, state entity.VerificationState, reviewerID int64, at time.Time) error {
	res := database.Conn(ctx, r.db).Model(&entity.Evidence{}).
		Where("id = ? AND state = ?", id, entity.StatePending).
		Updates(map[string]any{
			"state":       state,
			"reviewer_id": reviewerID,
			"reviewed_at": at,
		})
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrResolved(ctx, id)
	}
	return nil
}

func (r *evidenceRepository) missingOrResolved(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := database.Conn(ctx, r.db).Model(&entity.Evidence{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperror.Storage(err)
	}
	if count == 0 {
		return apperror.ErrEvidenceNotFound
	}
	return apperror.ErrInvalidTransition
}

func (r *evidenceRepository) ListPending(ctx context.Context, limit, offset int) ([]entity.Evidence, error) {
	var evidence []entity.Evidence
	err := database.Conn(ctx, r.db).
		Preload("Completion").
		Where("state = ?", entity.StatePending).
		Order("created_at asc").
		Limit(limit).
		Offset(offset).
		Find(&evidence).Error
	return evidence, apperror.Storage(err)
}

func (r *evidenceRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Evidence{}).
		Where("state = ?", entity.StatePending).
		Count(&count).Error
	return count, apperror.Storage(err)
}
