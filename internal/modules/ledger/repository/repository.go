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

type LedgerRepository interface {
	// CreateUserIfMissing inserts the user and reports whether it was created.
	CreateUserIfMissing(ctx context.Context, user *entity.User) (bool, error)
	FindUser(ctx context.Context, userID int64) (*entity.User, error)
	// ApplyDelta moves the balance by delta. Unless allowNegative is set the update only
	// matches when the resulting balance stays non-negative.
	ApplyDelta(ctx context.Context, userID, delta int64, allowNegative bool) (int64, error)
	AppendEntry(ctx context.Context, entry *entity.LedgerEntry) error
	History(ctx context.Context, userID int64, limit int) ([]entity.LedgerEntry, error)
	SetActive(ctx context.Context, userID int64, active bool) error
	// Touch records activity unless last_active_at is already at or after staleBefore.
	Touch(ctx context.Context, userID int64, at, staleBefore time.Time) error
	CountUsers(ctx context.Context) (int64, error)
	TotalBalance(ctx context.Context) (int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CreateUserIfMissing(ctx context.Context, user *entity.User) (bool, error) {
	res := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(user)
	if res.Error != nil {
		return false, apperror.Storage(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ledgerRepository) FindUser(ctx context.Context, userID int64) (*entity.User, error) {
	var user entity.User
	err := database.Conn(ctx, r.db).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Storage(err)
	}
	return &user, nil
}

func (r *ledgerRepository) ApplyDelta(ctx context.Context, userID, delta int64, allowNegative bool) (int64, error) {
	conn := database.Conn(ctx, r.db)

	query := conn.Model(&entity.User{}).Where("id = ?", userID)
	if !allowNegative {
		query = query.Where("balance + ? >= 0", delta)
	}

	res := query.Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return 0, apperror.Storage(res.Error)
	}

	if res.RowsAffected == 0 {
		if _, err := r.FindUser(ctx, userID); err != nil {
			return 0, err
		}
		return 0, apperror.ErrInsufficientFunds
	}

	var balance int64
	if err := conn.Model(&entity.User{}).Where("id = ?", userID).Pluck("balance", &balance).Error; err != nil {
		return 0, apperror.Storage(err)
	}
	return balance, nil
}

func (r *ledgerRepository) AppendEntry(ctx context.Context, entry *entity.LedgerEntry) error {
	return apperror.Storage(database.Conn(ctx, r.db).Create(entry).Error)
}

func (r *ledgerRepository) History(ctx context.Context, userID int64, limit int) ([]entity.LedgerEntry, error) {
	var entries []entity.LedgerEntry
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("seq desc").
		Limit(limit).
		Find(&entries).Error
	return entries, apperror.Storage(err)
}

func (r *ledgerRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	res := database.Conn(ctx, r.db).Model(&entity.User{}).Where("id = ?", userID).Update("active", active)
	if res.Error != nil {
		return apperror.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ErrUserNotFound
	}
	return nil
}

func (r *ledgerRepository) Touch(ctx context.Context, userID int64, at, staleBefore time.Time) error {
	return apperror.Storage(database.Conn(ctx, r.db).
		Model(&entity.User{}).
		Where("id = ? AND last_active_at < ?", userID, staleBefore).
		Update("last_active_at", at).Error)
}

func (r *ledgerRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.User{}).Count(&count).Error
	return count, apperror.Storage(err)
}

func (r *ledgerRepository) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	err := database.Conn(ctx, r.db).Model(&entity.User{}).Select("COALESCE(SUM(balance), 0)").Scan(&total).Error
	return total, apperror.Storage(err)
}
