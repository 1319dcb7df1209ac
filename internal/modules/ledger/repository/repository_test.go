package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepo(t *testing.T) (LedgerRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), database.Config())
	require.NoError(t, err)

	return NewLedgerRepository(db), mock
}

var conditionalDebit = regexp.QuoteMeta(`UPDATE "users" SET "balance"=balance + $1 WHERE id = $2 AND balance + $3 >= 0`)

func TestApplyDeltaUsesConditionalUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(conditionalDebit).
		WithArgs(int64(-5), int64(7), int64(-5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT "balance" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(3))

	balance, err := repo.ApplyDelta(context.Background(), 7, -5, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDeltaInsufficientFunds(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(conditionalDebit).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "active"}).AddRow(7, 2, true))

	_, err := repo.ApplyDelta(context.Background(), 7, -5, false)
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDeltaUnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(conditionalDebit).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "active"}))

	_, err := repo.ApplyDelta(context.Background(), 7, -5, false)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestApplyDeltaStorageFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(conditionalDebit).WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	_, err := repo.ApplyDelta(context.Background(), 7, -5, false)
	assert.ErrorIs(t, err, apperror.ErrStorageUnavailable)
	assert.False(t, apperror.IsDomain(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
