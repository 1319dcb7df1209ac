package service

import (
	"context"
	"strings"
	"testing"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	verificationRepo "anoa.com/coinexchange/internal/modules/verification/repository"
	"anoa.com/coinexchange/internal/testutil"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const adminID int64 = 1

func newService(t *testing.T) (VerificationService, *storage.MemoryStorage, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	store := storage.NewMemoryStorage()
	svc := NewVerificationService(verificationRepo.NewEvidenceRepository(db), store, authz.NewAdmins(adminID))
	return svc, store, db
}

func seedCompletion(t *testing.T, db *gorm.DB, performerID int64) *entity.Completion {
	t.Helper()
	c := &entity.Completion{
		PerformerID: performerID,
		RequestID:   1,
		ActionKind:  entity.ActionFollow,
		State:       entity.StatePending,
		Payable:     true,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to entity.VerificationState
		ok       bool
	}{
		{entity.StatePending, entity.StateApproved, true},
		{entity.StatePending, entity.StateRejected, true},
		{entity.StatePending, entity.StatePending, false},
		{entity.StatePending, entity.StateNotRequired, false},
		{entity.StateApproved, entity.StateRejected, false},
		{entity.StateRejected, entity.StateApproved, false},
		{entity.StateNotRequired, entity.StateApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := Transition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
			}
		})
	}

	assert.Equal(t, entity.StatePending, InitialState(true))
	assert.Equal(t, entity.StateNotRequired, InitialState(false))
}

func TestApproveRequiresScreenshot(t *testing.T) {
	svc, store, db := newService(t)
	ctx := context.Background()
	completion := seedCompletion(t, db, 20)

	evidence, err := svc.Open(ctx, completion.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, evidence.ID)
	assert.Equal(t, entity.StatePending, evidence.State)

	_, err = svc.Resolve(ctx, adminID, evidence.ID, true)
	assert.ErrorIs(t, err, apperror.ErrEvidenceRequired)

	_, err = svc.Attach(ctx, 21, evidence.ID, strings.NewReader("png"), "shot.png")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	attached, err := svc.Attach(ctx, 20, evidence.ID, strings.NewReader("png"), "shot.png")
	require.NoError(t, err)
	assert.NotEmpty(t, attached.StorageRef)
	assert.Equal(t, 1, store.Len())

	_, err = svc.Resolve(ctx, 20, evidence.ID, true)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	approved, err := svc.Resolve(ctx, adminID, evidence.ID, true)
	require.NoError(t, err)
	assert.Equal(t, entity.StateApproved, approved.State)
	require.NotNil(t, approved.ReviewerID)
	assert.Equal(t, adminID, *approved.ReviewerID)

	_, err = svc.Resolve(ctx, adminID, evidence.ID, false)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = svc.Attach(ctx, 20, evidence.ID, strings.NewReader("png"), "again.png")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestReattachReplacesObject(t *testing.T) {
	svc, store, db := newService(t)
	ctx := context.Background()
	completion := seedCompletion(t, db, 20)

	evidence, err := svc.Open(ctx, completion.ID, "")
	require.NoError(t, err)

	first, err := svc.Attach(ctx, 20, evidence.ID, strings.NewReader("a"), "a.png")
	require.NoError(t, err)
	second, err := svc.Attach(ctx, 20, evidence.ID, strings.NewReader("b"), "b.png")
	require.NoError(t, err)

	assert.NotEqual(t, first.StorageRef, second.StorageRef)
	assert.Equal(t, 1, store.Len())

	got, err := svc.Get(ctx, evidence.ID)
	require.NoError(t, err)
	assert.Equal(t, second.StorageRef, got.StorageRef)
}

func TestRejectAndPendingQueue(t *testing.T) {
	svc, _, db := newService(t)
	ctx := context.Background()
	first := seedCompletion(t, db, 20)
	second := seedCompletion(t, db, 21)

	e1, err := svc.Open(ctx, first.ID, "mem://1/a.png")
	require.NoError(t, err)
	_, err = svc.Open(ctx, second.ID, "")
	require.NoError(t, err)

	count, err := svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = svc.ListPending(ctx, 20, 0, 0)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	rejected, err := svc.Resolve(ctx, adminID, e1.ID, false)
	require.NoError(t, err)
	assert.Equal(t, entity.StateRejected, rejected.State)

	pending, err := svc.ListPending(ctx, adminID, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].CompletionID)

	_, err = svc.Resolve(ctx, adminID, uuid.New(), false)
	assert.ErrorIs(t, err, apperror.ErrEvidenceNotFound)
}
