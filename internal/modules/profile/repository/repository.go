package repository

import (
	"context"
	"errors"

	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	// Upsert writes the handle into the slot and clears its verified flag.
	Upsert(ctx context.Context, profile *entity.Profile) error
	FindByUser(ctx context.Context, userID int64) ([]entity.Profile, error)
	Find(ctx context.Context, userID int64, slot entity.ProfileSlot) (*entity.Profile, error)
	SetVerified(ctx context.Context, userID int64, slot entity.ProfileSlot, verified bool, adminID int64) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *entity.Profile) error {
	profile.Verified = false
	profile.VerifiedBy = nil

	err := database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"handle", "verified", "verified_by", "updated_at"}),
	}).Create(profile).Error
	return apperror.Storage(err)
}

func (r *profileRepository) FindByUser(ctx context.Context, userID int64) ([]entity.Profile, error) {
	var profiles []entity.Profile
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("slot asc").
		Find(&profiles).Error
	return profiles, apperror.Storage(err)
}

func (r *profileRepository) Find(ctx context.Context, userID int64, slot entity.ProfileSlot) (*entity.Profile, error) {
	var profile entity.Profile
	err := database.Conn(ctx, r.db).
		Where("user_id = ? AND slot = ?", userID, slot).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrProfileRequired
		}
		return nil, apperror.Storage(err)
	}
	return &profile, nil
}

func (r *profileRepository) SetVerified(ctx context.Context, userID int64, slot entity.ProfileSlot, verified bool, adminID int64) error {
	var verifiedBy *int64
	if verified {
		verifiedBy = &adminID
	}

	res := database.Conn(ctx, r.db).
		Model(&entity.Profile{}).
		Where("user_id = ? AND slot = ?", userID, slot).
		Updates(map[string]any{
			"verified":    verified,
			"verified_by": verifiedBy,
		})
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ErrProfileRequired
	}
	return nil
}
