package repository

import (
	"context"

	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID int64, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	CountUnread(ctx context.Context, userID int64) (int64, error)
	ActiveUserIDs(ctx context.Context) ([]int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	return apperror.Storage(database.Conn(ctx, r.db).Create(notification).Error)
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, apperror.Storage(err)
}

// MarkAsRead only touches notifications owned by userID.
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID int64, id uuid.UUID) error {
	res := database.Conn(ctx, r.db).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	return apperror.Storage(database.Conn(ctx, r.db).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error)
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, apperror.Storage(err)
}

func (r *notificationRepository) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := database.Conn(ctx, r.db).
		Model(&entity.User{}).
		Where("active = ?", true).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, apperror.Storage(err)
}
