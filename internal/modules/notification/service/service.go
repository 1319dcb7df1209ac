package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	notifRepo "anoa.com/coinexchange/internal/modules/notification/repository"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/logger"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the redis pub/sub channel the chat layer subscribes to for userID.
func Channel(userID int64) string {
	return fmt.Sprintf("user_notifications:%d", userID)
}

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	// Notify delivers a notification after the caller's transaction has committed.
	// Failures are logged and never returned.
	Notify(ctx context.Context, notification *entity.Notification)
	NotifyAdmins(ctx context.Context, notification entity.Notification)
	// Broadcast sends message to every active user and returns how many were addressed.
	Broadcast(ctx context.Context, adminID int64, message string) (int, error)
	GetNotifications(ctx context.Context, userID int64, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID int64, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	admins      authz.Admins
	sanitizer   *bluemonday.Policy
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, admins authz.Admins) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		admins:      admins,
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err != nil {
			return err
		}
		if err := s.redisClient.Publish(ctx, Channel(notification.UserID), payload).Err(); err != nil {
			return fmt.Errorf("publish notification: %w", err)
		}
	}

	return nil
}

func (s *notificationService) Notify(ctx context.Context, notification *entity.Notification) {
	if err := s.CreateNotification(context.WithoutCancel(ctx), notification); err != nil {
		logger.Log.Warn("notification delivery failed",
			zap.Int64("user_id", notification.UserID),
			zap.String("type", notification.Type),
			zap.Error(err),
		)
	}
}

func (s *notificationService) NotifyAdmins(ctx context.Context, notification entity.Notification) {
	for _, adminID := range s.admins.IDs() {
		n := notification
		n.UserID = adminID
		s.Notify(ctx, &n)
	}
}

func (s *notificationService) Broadcast(ctx context.Context, adminID int64, message string) (int, error) {
	if err := s.admins.Require(adminID); err != nil {
		return 0, err
	}
	message = strings.TrimSpace(s.sanitizer.Sanitize(message))
	if message == "" {
		return 0, apperror.ErrBadRequest
	}

	ids, err := s.repo.ActiveUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, userID := range ids {
		s.Notify(ctx, &entity.Notification{
			UserID:  userID,
			Type:    entity.NotificationBroadcast,
			Message: message,
		})
	}

	logger.Log.Info("broadcast sent",
		zap.Int64("admin_id", adminID),
		zap.Int("recipients", len(ids)),
	)
	return len(ids), nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID int64, limit, offset int) ([]entity.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID int64, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
