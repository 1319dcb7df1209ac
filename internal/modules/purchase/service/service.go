package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"
	notifService "anoa.com/coinexchange/internal/modules/notification/service"
	purchaseRepo "anoa.com/coinexchange/internal/modules/purchase/repository"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"anoa.com/coinexchange/pkg/logger"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ]{6,20}$`)

type CreatePurchaseInput struct {
	Coins int64
	Name  string
	Phone string
}

type PurchaseService interface {
	Create(ctx context.Context, userID int64, in CreatePurchaseInput) (*entity.Purchase, error)
	// Fulfill credits the package to the buyer and marks the purchase fulfilled in one transaction.
	Fulfill(ctx context.Context, adminID int64, id uint64) (*entity.Purchase, error)
	Reject(ctx context.Context, adminID int64, id uint64) (*entity.Purchase, error)
	// ListPending returns one page of the pending queue and the queue length.
	ListPending(ctx context.Context, adminID int64, limit, offset int) ([]entity.Purchase, int64, error)
	ListMine(ctx context.Context, userID int64) ([]entity.Purchase, error)
	Packages() map[int64]int64
}

type purchaseService struct {
	repo          purchaseRepo.PurchaseRepository
	ledger        ledgerService.LedgerService
	notifications notifService.NotificationService
	tx            database.Transactor
	prices        *pricing.Table
	admins        authz.Admins
	sanitizer     *bluemonday.Policy
	now           func() time.Time
}

func NewPurchaseService(repo purchaseRepo.PurchaseRepository, ledger ledgerService.LedgerService, notifications notifService.NotificationService, tx database.Transactor, prices *pricing.Table, admins authz.Admins) PurchaseService {
	return &purchaseService{
		repo:          repo,
		ledger:        ledger,
		notifications: notifications,
		tx:            tx,
		prices:        prices,
		admins:        admins,
		sanitizer:     bluemonday.StrictPolicy(),
		now:           time.Now,
	}
}

func (s *purchaseService) Create(ctx context.Context, userID int64, in CreatePurchaseInput) (*entity.Purchase, error) {
	price, ok := s.prices.PackagePrice(in.Coins)
	if !ok {
		return nil, apperror.ErrInvalidPackage
	}

	name := strings.TrimSpace(s.sanitizer.Sanitize(in.Name))
	phone := strings.TrimSpace(s.sanitizer.Sanitize(in.Phone))
	if name == "" || !phonePattern.MatchString(phone) {
		return nil, apperror.ErrBadRequest
	}

	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, apperror.ErrUserInactive
	}

	purchase := &entity.Purchase{
		UserID:     userID,
		Coins:      in.Coins,
		PriceCents: price,
		Name:       name,
		Phone:      phone,
		Status:     entity.PurchasePending,
	}
	if err := s.repo.Create(ctx, purchase); err != nil {
		return nil, err
	}

	logger.Log.Info("purchase requested",
		zap.Uint64("purchase_id", purchase.ID),
		zap.Int64("user_id", userID),
		zap.Int64("coins", in.Coins),
	)

	if s.notifications != nil {
		s.notifications.NotifyAdmins(ctx, entity.Notification{
			Type:       entity.NotificationPurchasePending,
			Message:    fmt.Sprintf("User %d ordered %d Coin (%s, %s).", userID, in.Coins, name, phone),
			EntityType: "purchase",
			EntityID:   fmt.Sprint(purchase.ID),
		})
	}
	return purchase, nil
}

func (s *purchaseService) Fulfill(ctx context.Context, adminID int64, id uint64) (*entity.Purchase, error) {
	return s.resolve(ctx, adminID, id, entity.PurchaseFulfilled)
}

func (s *purchaseService) Reject(ctx context.Context, adminID int64, id uint64) (*entity.Purchase, error) {
	return s.resolve(ctx, adminID, id, entity.PurchaseRejected)
}

func (s *purchaseService) resolve(ctx context.Context, adminID int64, id uint64, status entity.PurchaseStatus) (*entity.Purchase, error) {
	if err := s.admins.Require(adminID); err != nil {
		return nil, err
	}

	var purchase *entity.Purchase
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		purchase, err = s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.repo.Resolve(ctx, id, status, adminID, now); err != nil {
			return err
		}

		if status == entity.PurchaseFulfilled {
			if _, err := s.ledger.Credit(ctx, purchase.UserID, purchase.Coins, entity.ReasonPurchase, ledgerService.Reference("purchase", purchase.ID)); err != nil {
				return err
			}
		}

		purchase.Status = status
		purchase.ReviewerID = &adminID
		purchase.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("purchase resolved",
		zap.Uint64("purchase_id", id),
		zap.String("status", string(status)),
		zap.Int64("admin_id", adminID),
	)

	if s.notifications != nil {
		message := fmt.Sprintf("Your order of %d Coin was fulfilled.", purchase.Coins)
		if status == entity.PurchaseRejected {
			message = fmt.Sprintf("Your order of %d Coin was rejected.", purchase.Coins)
		}
		s.notifications.Notify(ctx, &entity.Notification{
			UserID:     purchase.UserID,
			Type:       entity.NotificationPurchaseResolved,
			Message:    message,
			EntityType: "purchase",
			EntityID:   fmt.Sprint(purchase.ID),
		})
	}
	return purchase, nil
}

func (s *purchaseService) ListPending(ctx context.Context, adminID int64, limit, offset int) ([]entity.Purchase, int64, error) {
	if err := s.admins.Require(adminID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	purchases, err := s.repo.ListByStatus(ctx, entity.PurchasePending, limit, max(offset, 0))
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountPending(ctx)
	if err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

func (s *purchaseService) ListMine(ctx context.Context, userID int64) ([]entity.Purchase, error) {
	return s.repo.ListByUser(ctx, userID, 20)
}

func (s *purchaseService) Packages() map[int64]int64 {
	return s.prices.Packages
}
