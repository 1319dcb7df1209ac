package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	ledgerRepo "anoa.com/coinexchange/internal/modules/ledger/repository"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"anoa.com/coinexchange/pkg/logger"
	"anoa.com/coinexchange/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	// ActivityTouchInterval bounds how often last_active_at is rewritten for a user.
	ActivityTouchInterval = 5 * time.Minute
)

// LedgerService is the only writer of user balances. Every mutation appends a
// LedgerEntry in the same transaction as the balance update. Calls join a transaction
// already bound to ctx.
type LedgerService interface {
	// EnsureUser creates the account on first interaction and grants the welcome balance.
	EnsureUser(ctx context.Context, userID int64) (*entity.User, error)
	Credit(ctx context.Context, userID, amount int64, reason entity.LedgerReason, reference string) (*entity.LedgerEntry, error)
	Debit(ctx context.Context, userID, amount int64, reason entity.LedgerReason, reference string) (*entity.LedgerEntry, error)
	// Adjust is admin-only and is not bounded by the non-negative balance rule.
	Adjust(ctx context.Context, adminID, userID, delta int64, reference string) (*entity.LedgerEntry, error)
	Balance(ctx context.Context, userID int64) (int64, error)
	History(ctx context.Context, userID int64, limit int) ([]entity.LedgerEntry, error)
	GetUser(ctx context.Context, userID int64) (*entity.User, error)
	Deactivate(ctx context.Context, adminID, userID int64) error
}

type ledgerService struct {
	repo           ledgerRepo.LedgerRepository
	tx             database.Transactor
	admins         authz.Admins
	defaultBalance int64
	now            func() time.Time
}

func NewLedgerService(repo ledgerRepo.LedgerRepository, tx database.Transactor, admins authz.Admins, defaultBalance int64) LedgerService {
	return &ledgerService{
		repo:           repo,
		tx:             tx,
		admins:         admins,
		defaultBalance: defaultBalance,
		now:            time.Now,
	}
}

func (s *ledgerService) EnsureUser(ctx context.Context, userID int64) (*entity.User, error) {
	if userID <= 0 {
		return nil, apperror.ErrUserNotFound
	}

	now := s.now()
	user, err := s.repo.FindUser(ctx, userID)
	switch {
	case err == nil && now.Sub(user.LastActiveAt) < ActivityTouchInterval:
		return user, nil
	case err != nil && !errors.Is(err, apperror.ErrUserNotFound):
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err := s.repo.CreateUserIfMissing(ctx, &entity.User{
			ID:           userID,
			Active:       true,
			LastActiveAt: now,
		})
		if err != nil {
			return err
		}

		if created {
			logger.Log.Info("user account created", zap.Int64("user_id", userID))
			if s.defaultBalance > 0 {
				if _, err := s.apply(ctx, userID, s.defaultBalance, entity.ReasonWelcome, "", nil, false); err != nil {
					return err
				}
			}
		} else if err := s.repo.Touch(ctx, userID, now, now.Add(-ActivityTouchInterval)); err != nil {
			return err
		}

		user, err = s.repo.FindUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *ledgerService) Credit(ctx context.Context, userID, amount int64, reason entity.LedgerReason, reference string) (*entity.LedgerEntry, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	return s.mutate(ctx, userID, amount, reason, reference, nil, false)
}

func (s *ledgerService) Debit(ctx context.Context, userID, amount int64, reason entity.LedgerReason, reference string) (*entity.LedgerEntry, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	return s.mutate(ctx, userID, -amount, reason, reference, nil, false)
}

func (s *ledgerService) Adjust(ctx context.Context, adminID, userID, delta int64, reference string) (*entity.LedgerEntry, error) {
	if err := s.admins.Require(adminID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, apperror.ErrInvalidAmount
	}
	return s.mutate(ctx, userID, delta, entity.ReasonAdminAdjustment, reference, &adminID, true)
}

func (s *ledgerService) mutate(ctx context.Context, userID, delta int64, reason entity.LedgerReason, reference string, adminID *int64, allowNegative bool) (*entity.LedgerEntry, error) {
	var entry *entity.LedgerEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.apply(ctx, userID, delta, reason, reference, adminID, allowNegative)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ledgerService) apply(ctx context.Context, userID, delta int64, reason entity.LedgerReason, reference string, adminID *int64, allowNegative bool) (*entity.LedgerEntry, error) {
	balance, err := s.repo.ApplyDelta(ctx, userID, delta, allowNegative)
	if err != nil {
		return nil, err
	}

	entry := &entity.LedgerEntry{
		UserID:       userID,
		Delta:        delta,
		BalanceAfter: balance,
		Reason:       reason,
		Reference:    reference,
		AdminID:      adminID,
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}

	logger.Log.Info("ledger mutation",
		zap.Uint64("seq", entry.Seq),
		zap.Int64("user_id", userID),
		zap.Int64("delta", delta),
		zap.Int64("balance_after", balance),
		zap.String("reason", string(reason)),
		zap.String("reference", reference),
	)
	metrics.LedgerMutations.WithLabelValues(string(reason)).Inc()

	return entry, nil
}

func (s *ledgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}

func (s *ledgerService) History(ctx context.Context, userID int64, limit int) ([]entity.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.repo.History(ctx, userID, limit)
}

func (s *ledgerService) GetUser(ctx context.Context, userID int64) (*entity.User, error) {
	return s.repo.FindUser(ctx, userID)
}

func (s *ledgerService) Deactivate(ctx context.Context, adminID, userID int64) error {
	if err := s.admins.Require(adminID); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, userID, false); err != nil {
		return err
	}

	logger.Log.Info("user deactivated", zap.Int64("user_id", userID), zap.Int64("admin_id", adminID))
	return nil
}

// Reference formats an entity id for LedgerEntry.Reference.
func Reference(kind string, id uint64) string {
	return kind + ":" + strconv.FormatUint(id, 10)
}
