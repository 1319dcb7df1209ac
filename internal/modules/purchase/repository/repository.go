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

type PurchaseRepository interface {
	Create(ctx context.Context, p *entity.Purchase) error
	FindByID(ctx context.Context, id uint64) (*entity.Purchase, error)
	// Resolve moves a pending purchase to status. It fails with ErrInvalidTransition if
	// the purchase was already resolved.
	Resolve(ctx context.Context, id uint64, status entity.PurchaseStatus, reviewerID int64, at time.Time) error
	ListByStatus(ctx context.Context, status entity.PurchaseStatus, limit, offset int) ([]entity.Purchase, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]entity.Purchase, error)
	CountPending(ctx context.Context) (int64, error)
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, p *entity.Purchase) error {
	return apperror.Storage(database.Conn(ctx, r.db).Create(p).Error)
}

func (r *purchaseRepository) FindByID(ctx context.Context, id uint64) (*entity.Purchase, error) {
	var p entity.Purchase
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrPurchaseNotFound
		}
		return nil, apperror.Storage(err)
	}
	return &p, nil
}

func (r *purchaseRepository) Resolve(ctx context.Context, id uint64, status entity.PurchaseStatus, reviewerID int64, at time.Time) error {
	res := database.Conn(ctx, r.db).Model(&entity.Purchase{}).
		Where("id = ? AND status = ?", id, entity.PurchasePending).
		Updates(map[string]any{
			"status":      status,
			"reviewer_id": reviewerID,
			"resolved_at": at,
		})
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return apperror.ErrInvalidTransition
	}
	return nil
}

func (r *purchaseRepository) ListByStatus(ctx context.Context, status entity.PurchaseStatus, limit, offset int) ([]entity.Purchase, error) {
	var purchases []entity.Purchase
	err := database.Conn(ctx, r.db).
		Where("status = ?", status).
		Order("id asc").
		Limit(limit).
		Offset(offset).
		Find(&purchases).Error
	return purchases, apperror.Storage(err)
}

func (r *purchaseRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]entity.Purchase, error) {
	var purchases []entity.Purchase
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Find(&purchases).Error
	return purchases, apperror.Storage(err)
}

func (r *purchaseRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Purchase{}).
		Where("status = ?", entity.PurchasePending).
		Count(&count).Error
	return count, apperror.Storage(err)
}
