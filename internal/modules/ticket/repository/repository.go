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

type TicketRepository interface {
	Create(ctx context.Context, ticket *entity.Ticket) error
	FindByID(ctx context.Context, id uint64) (*entity.Ticket, error)
	// Close fails with ErrInvalidTransition when the ticket is already closed.
	Close(ctx context.Context, id uint64, reviewerID int64, at time.Time) error
	ListOpen(ctx context.Context, limit, offset int) ([]entity.Ticket, error)
	CountOpen(ctx context.Context) (int64, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]entity.Ticket, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *entity.Ticket) error {
	return apperror.Storage(database.Conn(ctx, r.db).Create(ticket).Error)
}

func (r *ticketRepository) FindByID(ctx context.Context, id uint64) (*entity.Ticket, error) {
	var ticket entity.Ticket
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrTicketNotFound
		}
		return nil, apperror.Storage(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) Close(ctx context.Context, id uint64, reviewerID int64, at time.Time) error {
	res := database.Conn(ctx, r.db).Model(&entity.Ticket{}).
		Where("id = ? AND status = ?", id, entity.TicketOpen).
		Updates(map[string]any{
			"status":      entity.TicketClosed,
			"reviewer_id": reviewerID,
			"closed_at":   at,
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

func (r *ticketRepository) ListOpen(ctx context.Context, limit, offset int) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := database.Conn(ctx, r.db).
		Where("status = ?", entity.TicketOpen).
		Order("id asc").
		Limit(limit).
		Offset(offset).
		Find(&tickets).Error
	return tickets, apperror.Storage(err)
}

func (r *ticketRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Ticket{}).
		Where("status = ?", entity.TicketOpen).
		Count(&count).Error
	return count, apperror.Storage(err)
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Find(&tickets).Error
	return tickets, apperror.Storage(err)
}
