package profile

import (
	"context"
	"testing"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	ledgerRepo "anoa.com/coinexchange/internal/modules/ledger/repository"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"
	notifRepo "anoa.com/coinexchange/internal/modules/notification/repository"
	notifService "anoa.com/coinexchange/internal/modules/notification/service"
	profileRepo "anoa.com/coinexchange/internal/modules/profile/repository"
	"anoa.com/coinexchange/internal/testutil"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 1

func newService(t *testing.T) (ProfileService, notifService.NotificationService) {
	t.Helper()
	db := testutil.NewDB(t)
	admins := authz.NewAdmins(adminID)
	ledger := ledgerService.NewLedgerService(ledgerRepo.NewLedgerRepository(db), database.NewTransactor(db), admins, 10)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil, admins)

	testutil.SeedUser(t, db, 50, 0)
	return NewProfileService(profileRepo.NewProfileRepository(db), ledger, notifications, admins), notifications
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"@mario.rossi", "mario.rossi", false},
		{"  under_score_1 ", "under_score_1", false},
		{"", "", true},
		{"@", "", true},
		{"has space", "", true},
		{"emoji😀", "", true},
		{"a234567890123456789012345678901", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeHandle(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrInvalidHandle)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterAndStatus(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RegisterPrimary(ctx, 50, "@first")
	require.NoError(t, err)
	_, err = svc.RegisterPrimary(ctx, 50, "second")
	require.NoError(t, err)
	_, err = svc.RegisterSecondary(ctx, 50, entity.SlotSecondary2, "alt_two")
	require.NoError(t, err)

	_, err = svc.RegisterSecondary(ctx, 50, entity.SlotPrimary, "nope")
	assert.ErrorIs(t, err, apperror.ErrInvalidSlot)
	_, err = svc.RegisterPrimary(ctx, 50, "bad handle!")
	assert.ErrorIs(t, err, apperror.ErrInvalidHandle)
	_, err = svc.RegisterPrimary(ctx, 404, "ghost")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	status, err := svc.Status(ctx, 50)
	require.NoError(t, err)
	require.NotNil(t, status.Primary)
	assert.Equal(t, "second", status.Primary.Handle)
	require.Len(t, status.Secondary, 1)
	assert.Equal(t, entity.SlotSecondary2, status.Secondary[0].Slot)
	assert.False(t, status.Secondary[0].Verified)
}

func TestRegisterNextFillsSlotsInOrder(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	want := []entity.ProfileSlot{entity.SlotPrimary, entity.SlotSecondary1, entity.SlotSecondary2}
	for i, handle := range []string{"one", "two", "three"} {
		p, err := svc.RegisterNext(ctx, 50, handle)
		require.NoError(t, err)
		assert.Equal(t, want[i], p.Slot)
	}

	_, err := svc.RegisterNext(ctx, 50, "four")
	assert.ErrorIs(t, err, apperror.ErrProfileSlotsFull)
}

func TestActingProfileRequiresVerifiedSecondary(t *testing.T) {
	svc, notifications := newService(t)
	ctx := context.Background()

	_, err := svc.ActingProfile(ctx, 50, entity.SlotPrimary)
	assert.ErrorIs(t, err, apperror.ErrProfileRequired)

	_, err = svc.RegisterSecondary(ctx, 50, entity.SlotSecondary1, "alt")
	require.NoError(t, err)

	_, err = svc.ActingProfile(ctx, 50, entity.SlotSecondary1)
	assert.ErrorIs(t, err, apperror.ErrProfileNotVerified)

	assert.ErrorIs(t, svc.Verify(ctx, 50, 50, entity.SlotSecondary1, true), apperror.ErrUnauthorized)
	require.NoError(t, svc.Verify(ctx, adminID, 50, entity.SlotSecondary1, true))

	p, err := svc.ActingProfile(ctx, 50, entity.SlotSecondary1)
	require.NoError(t, err)
	assert.True(t, p.Verified)

	count, err := notifications.UnreadCount(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Re-registering the slot requires a fresh verification.
	_, err = svc.RegisterSecondary(ctx, 50, entity.SlotSecondary1, "alt_renamed")
	require.NoError(t, err)
	_, err = svc.ActingProfile(ctx, 50, entity.SlotSecondary1)
	assert.ErrorIs(t, err, apperror.ErrProfileNotVerified)

	assert.ErrorIs(t, svc.Verify(ctx, adminID, 50, entity.SlotSecondary2, true), apperror.ErrProfileRequired)
	_, err = svc.ActingProfile(ctx, 50, entity.ProfileSlot(3))
	assert.ErrorIs(t, err, apperror.ErrInvalidSlot)
}
