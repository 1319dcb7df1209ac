package bootstrap

import (
	"context"
	"fmt"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(entity.All()...)
}

// UserEnsurer is satisfied by the ledger service.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, userID int64) (*entity.User, error)
}

// SeedAdmins makes sure every configured admin has an account so notifications
// addressed to admins have a recipient from the first request on.
func SeedAdmins(ctx context.Context, users UserEnsurer, admins authz.Admins) error {
	for _, id := range admins.IDs() {
		if _, err := users.EnsureUser(ctx, id); err != nil {
			return fmt.Errorf("seed admin %d: %w", id, err)
		}
	}
	logger.Log.Info("admin accounts ready", zap.Int("count", len(admins)))
	return nil
}
