package bootstrap

import (
	"context"
	"testing"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/internal/modules/ledger/repository"
	"anoa.com/coinexchange/internal/modules/ledger/service"
	"anoa.com/coinexchange/internal/testutil"
	"anoa.com/coinexchange/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdminsIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	admins := authz.NewAdmins(1, 2)
	ledger := service.NewLedgerService(repository.NewLedgerRepository(db), database.NewTransactor(db), admins, 10)
	ctx := context.Background()

	require.NoError(t, SeedAdmins(ctx, ledger, admins))
	require.NoError(t, SeedAdmins(ctx, ledger, admins))

	var users int64
	require.NoError(t, db.Model(&entity.User{}).Count(&users).Error)
	assert.Equal(t, int64(2), users)

	var entries int64
	require.NoError(t, db.Model(&entity.LedgerEntry{}).Count(&entries).Error)
	assert.Equal(t, int64(2), entries)
}
