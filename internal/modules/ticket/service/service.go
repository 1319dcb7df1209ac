package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"
	notifService "anoa.com/coinexchange/internal/modules/notification/service"
	ticketRepo "anoa.com/coinexchange/internal/modules/ticket/repository"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/logger"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const maxMessageLength = 2000

type TicketService interface {
	// Create stores a support message and notifies every admin.
	Create(ctx context.Context, userID int64, message string) (*entity.Ticket, error)
	Close(ctx context.Context, adminID int64, id uint64) (*entity.Ticket, error)
	ListOpen(ctx context.Context, adminID int64, limit, offset int) ([]entity.Ticket, int64, error)
	ListMine(ctx context.Context, userID int64) ([]entity.Ticket, error)
}

type ticketService struct {
	repo          ticketRepo.TicketRepository
	ledger        ledgerService.LedgerService
	notifications notifService.NotificationService
	admins        authz.Admins
	sanitizer     *bluemonday.Policy
	now           func() time.Time
}

func NewTicketService(repo ticketRepo.TicketRepository, ledger ledgerService.LedgerService, notifications notifService.NotificationService, admins authz.Admins) TicketService {
	return &ticketService{
		repo:          repo,
		ledger:        ledger,
		notifications: notifications,
		admins:        admins,
		sanitizer:     bluemonday.StrictPolicy(),
		now:           time.Now,
	}
}

func (s *ticketService) Create(ctx context.Context, userID int64, message string) (*entity.Ticket, error) {
	message = strings.TrimSpace(s.sanitizer.Sanitize(message))
	if message == "" || len(message) > maxMessageLength {
		return nil, apperror.ErrBadRequest
	}

	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, apperror.ErrUserInactive
	}

	ticket := &entity.Ticket{
		UserID:  userID,
		Message: message,
		Status:  entity.TicketOpen,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	logger.Log.Info("support ticket opened",
		zap.Uint64("ticket_id", ticket.ID),
		zap.Int64("user_id", userID),
	)

	if s.notifications != nil {
		s.notifications.NotifyAdmins(ctx, entity.Notification{
			Type:       entity.NotificationTicketOpened,
			Message:    fmt.Sprintf("Support request from user %d: %s", userID, message),
			EntityType: "ticket",
			EntityID:   fmt.Sprint(ticket.ID),
		})
	}
	return ticket, nil
}

func (s *ticketService) Close(ctx context.Context, adminID int64, id uint64) (*entity.Ticket, error) {
	if err := s.admins.Require(adminID); err != nil {
		return nil, err
	}

	if err := s.repo.Close(ctx, id, adminID, s.now()); err != nil {
		return nil, err
	}
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("support ticket closed",
		zap.Uint64("ticket_id", id),
		zap.Int64("admin_id", adminID),
	)

	if s.notifications != nil {
		s.notifications.Notify(ctx, &entity.Notification{
			UserID:     ticket.UserID,
			Type:       entity.NotificationTicketClosed,
			Message:    "Your support request was handled by an admin.",
			EntityType: "ticket",
			EntityID:   fmt.Sprint(ticket.ID),
		})
	}
	return ticket, nil
}

func (s *ticketService) ListOpen(ctx context.Context, adminID int64, limit, offset int) ([]entity.Ticket, int64, error) {
	if err := s.admins.Require(adminID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	tickets, err := s.repo.ListOpen(ctx, limit, max(offset, 0))
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountOpen(ctx)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (s *ticketService) ListMine(ctx context.Context, userID int64) ([]entity.Ticket, error) {
	return s.repo.ListByUser(ctx, userID, 20)
}
