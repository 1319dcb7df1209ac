package testutil

import (
	"testing"

	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/database"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database. A single connection keeps the
// memory database alive and serializes transactions the way row locks would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), database.Config())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entity.All()...))
	return db
}

// SeedUser inserts an active user with the given balance, bypassing the ledger.
func SeedUser(t *testing.T, db *gorm.DB, id, balance int64) *entity.User {
	t.Helper()

	user := &entity.User{ID: id, Balance: balance, Active: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func SeedProfile(t *testing.T, db *gorm.DB, userID int64, slot entity.ProfileSlot, handle string, verified bool) {
	t.Helper()

	require.NoError(t, db.Create(&entity.Profile{
		UserID:   userID,
		Slot:     slot,
		Handle:   handle,
		Verified: verified,
	}).Error)
}
