package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OpenFilter struct {
	ActionKind         *entity.ActionKind
	ExcludeOwner       *int64
	ExcludeCompletedBy *int64
	Limit              int
	Offset             int
}

type RequestRepository interface {
	Create(ctx context.Context, req *entity.InteractionRequest) error
	FindByID(ctx context.Context, id uint64) (*entity.InteractionRequest, error)
	// FindByIDForUpdate row-locks the request until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint64) (*entity.InteractionRequest, error)
	FindOpen(ctx context.Context, filter OpenFilter) ([]entity.InteractionRequest, error)
	// IncrementCompleted takes one unit of an open request with remaining quantity and
	// closes the request when that was the last unit. It reports whether it closed it.
	IncrementCompleted(ctx context.Context, id uint64, at time.Time) (bool, error)
	// Close moves an open request to closed. It fails with ErrRequestClosed if the
	// request is no longer open.
	Close(ctx context.Context, id uint64, reason string, at time.Time) error
	CountOpen(ctx context.Context) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *entity.InteractionRequest) error {
	return apperror.Storage(database.Conn(ctx, r.db).Create(req).Error)
}

func (r *requestRepository) FindByID(ctx context.Context, id uint64) (*entity.InteractionRequest, error) {
	return r.find(database.Conn(ctx, r.db), id)
}

func (r *requestRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.InteractionRequest, error) {
	return r.find(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *requestRepository) find(conn *gorm.DB, id uint64) (*entity.InteractionRequest, error) {
	var req entity.InteractionRequest
	err := conn.Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, apperror.Storage(err)
	}
	return &req, nil
}

func (r *requestRepository) FindOpen(ctx context.Context, filter OpenFilter) ([]entity.InteractionRequest, error) {
	query := database.Conn(ctx, r.db).
		Where("status = ? AND completed_count < quantity", entity.RequestOpen)

	if filter.ActionKind != nil {
		query = query.Where("action_kind = ?", *filter.ActionKind)
	}
	if filter.ExcludeOwner != nil {
		query = query.Where("owner_id <> ?", *filter.ExcludeOwner)
	}
	if filter.ExcludeCompletedBy != nil {
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM completions c WHERE c.request_id = interaction_requests.id AND c.performer_id = ?)",
			*filter.ExcludeCompletedBy,
		)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var requests []entity.InteractionRequest
	err := query.Order("id asc").Find(&requests).Error
	return requests, apperror.Storage(err)
}

func (r *requestRepository) IncrementCompleted(ctx context.Context, id uint64, at time.Time) (bool, error) {
	conn := database.Conn(ctx, r.db)

	res := conn.Model(&entity.InteractionRequest{}).
		Where("id = ? AND status = ? AND completed_count < quantity", id, entity.RequestOpen).
		Update("completed_count", gorm.Expr("completed_count + 1"))
	if res.Error != nil {
		return false, apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return false, err
		}
		return false, apperror.ErrRequestClosed
	}

	res = conn.Model(&entity.InteractionRequest{}).
		Where("id = ? AND status = ? AND completed_count >= quantity", id, entity.RequestOpen).
		Updates(map[string]any{
			"status":       entity.RequestClosed,
			"close_reason": entity.CloseFulfilled,
			"closed_at":    at,
		})
	if res.Error != nil {
		return false, apperror.Storage(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *requestRepository) Close(ctx context.Context, id uint64, reason string, at time.Time) error {
	res := database.Conn(ctx, r.db).Model(&entity.InteractionRequest{}).
		Where("id = ? AND status = ?", id, entity.RequestOpen).
		Updates(map[string]any{
			"status":       entity.RequestClosed,
			"close_reason": reason,
			"closed_at":    at,
		})
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return apperror.ErrRequestClosed
	}
	return nil
}

func (r *requestRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.InteractionRequest{}).
		Where("status = ?", entity.RequestOpen).
		Count(&count).Error
	return count, apperror.Storage(err)
}
