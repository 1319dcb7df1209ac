package service

import (
	"context"
	"sync"
	"testing"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	interactionRepo "anoa.com/coinexchange/internal/modules/interaction/repository"
	ledgerRepo "anoa.com/coinexchange/internal/modules/ledger/repository"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/internal/testutil"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminID int64 = 1
	postRef       = "https://www.instagram.com/p/Cabc123/"
)

type fixture struct {
	svc    InteractionService
	ledger ledgerService.LedgerService
	db     *gorm.DB
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	tx := database.NewTransactor(db)
	admins := authz.NewAdmins(adminID)
	ledger := ledgerService.NewLedgerService(ledgerRepo.NewLedgerRepository(db), tx, admins, 10)
	svc := NewInteractionService(interactionRepo.NewRequestRepository(db), ledger, tx, pricing.Default(), admins, nil)
	return fixture{svc: svc, ledger: ledger, db: db}
}

func balanceOf(t *testing.T, f fixture, userID int64) int64 {
	t.Helper()
	balance, err := f.ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func TestValidPostRef(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"https://www.instagram.com/p/Cabc123/", true},
		{"https://instagram.com/reel/Xy_z-9", true},
		{"http://instagr.am/tv/abc/?igsh=1", true},
		{"https://www.instagram.com/someuser/", false},
		{"https://example.com/p/abc/", false},
		{"instagram.com/p/abc", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPostRef(tt.ref))
		})
	}
}

func TestOpenRequestDebitsOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedUser(t, f.db, 10, 50)

	req, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "follow", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, entity.ActionFollow, req.ActionKind)
	assert.Equal(t, int64(5), req.CostPerAction)
	assert.Equal(t, entity.RequestOpen, req.Status)
	assert.True(t, req.Funded)
	assert.Equal(t, int64(30), balanceOf(t, f, 10))

	history, err := f.ledger.History(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.ReasonRequestFunding, history[0].Reason)
	assert.Equal(t, int64(-20), history[0].Delta)
}

func TestOpenRequestRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedUser(t, f.db, 10, 50)

	_, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: "https://example.com/x", ActionKind: "like", Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidPostReference)

	_, err = f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "retweet", Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidActionKind)

	_, err = f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "like", Quantity: 0})
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	_, err = f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "story_share", Quantity: 6})
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)

	assert.Equal(t, int64(50), balanceOf(t, f, 10))

	var count int64
	require.NoError(t, f.db.Model(&entity.InteractionRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCampaignRequiresAdminAndIsUnfunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedUser(t, f.db, adminID, 0)
	testutil.SeedUser(t, f.db, 10, 50)

	cost := int64(3)
	_, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "like", Quantity: 5, Campaign: true})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "like", Quantity: 5, CostOverride: &cost})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	req, err := f.svc.OpenRequest(ctx, adminID, OpenRequestInput{PostRef: postRef, ActionKind: "like", Quantity: 100, CostOverride: &cost, Campaign: true})
	require.NoError(t, err)
	assert.True(t, req.Campaign)
	assert.False(t, req.Funded)
	assert.Equal(t, int64(3), req.CostPerAction)
	assert.Equal(t, int64(0), balanceOf(t, f, adminID))
}

func TestCloseRequestRefundsRemainder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedUser(t, f.db, 10, 50)
	testutil.SeedUser(t, f.db, 20, 0)

	req, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "follow", Quantity: 4})
	require.NoError(t, err)

	_, err = f.svc.TakeUnit(ctx, req.ID)
	require.NoError(t, err)

	_, err = f.svc.CloseRequest(ctx, 20, req.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	closed, err := f.svc.CloseRequest(ctx, 10, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestClosed, closed.Status)
	assert.Equal(t, entity.CloseCancelled, closed.CloseReason)
	assert.Equal(t, int64(45), balanceOf(t, f, 10))

	_, err = f.svc.CloseRequest(ctx, 10, req.ID)
	assert.ErrorIs(t, err, apperror.ErrRequestClosed)
	assert.Equal(t, int64(45), balanceOf(t, f, 10))

	_, err = f.svc.CloseRequest(ctx, 10, 999)
	assert.ErrorIs(t, err, apperror.ErrRequestNotFound)
}

// A unit taken between the owner's read and the close must not be refunded.
func TestCloseRequestRefundsOnlyUnitsLeftAtClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedUser(t, f.db, 10, 50)

	req, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "follow", Quantity: 4})
	require.NoError(t, err)
	_, err = f.svc.TakeUnit(ctx, req.ID)
	require.NoError(t, err)

	var interleaved bool
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:take_unit_before_close", func(tx *gorm.DB) {
		values, ok := tx.Statement.Dest.(map[string]any)
		if !ok || values["close_reason"] != entity.CloseCancelled || interleaved {
			return
		}
		interleaved = true
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE interaction_requests SET completed_count = completed_count + 1 WHERE id = ?", req.ID).Error)
	}))

	closed, err := f.svc.CloseRequest(ctx, 10, req.ID)
	require.NoError(t, err)
	require.True(t, interleaved)

	assert.Equal(t, int64(2), closed.CompletedCount)
	assert.Equal(t, int64(40), balanceOf(t, f, 10))
}

func TestFindOpenRequestsExcludesOwnAndCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedUser(t, f.db, 10, 100)
	testutil.SeedUser(t, f.db, 20, 100)

	own, err := f.svc.OpenRequest(ctx, 20, OpenRequestInput{PostRef: postRef, ActionKind: "like", Quantity: 2})
	require.NoError(t, err)
	done, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "like", Quantity: 2})
	require.NoError(t, err)
	other, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "follow", Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&entity.Completion{
		PerformerID: 20,
		RequestID:   done.ID,
		ActionKind:  entity.ActionLike,
		State:       entity.StateNotRequired,
		Payable:     true,
	}).Error)

	requests, err := f.svc.FindOpenRequests(ctx, 20, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, other.ID, requests[0].ID)

	like := entity.ActionLike
	requests, err = f.svc.FindOpenRequests(ctx, 30, &like, 0, 0)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, own.ID, requests[0].ID)
	assert.Equal(t, done.ID, requests[1].ID)

	requests, err = f.svc.SearchOpenRequests(ctx, 20, "anything", nil, 10)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

func TestTakeUnitClosesOnLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedUser(t, f.db, 10, 100)

	req, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "like", Quantity: 2})
	require.NoError(t, err)

	closed, err := f.svc.TakeUnit(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, closed)

	closed, err = f.svc.TakeUnit(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, closed)

	_, err = f.svc.TakeUnit(ctx, req.ID)
	assert.ErrorIs(t, err, apperror.ErrRequestClosed)

	got, err := f.svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestClosed, got.Status)
	assert.Equal(t, entity.CloseFulfilled, got.CloseReason)
	assert.Equal(t, int64(2), got.CompletedCount)
	assert.NotNil(t, got.ClosedAt)
}

func TestTakeUnitNeverExceedsQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedUser(t, f.db, 10, 100)

	req, err := f.svc.OpenRequest(ctx, 10, OpenRequestInput{PostRef: postRef, ActionKind: "like", Quantity: 5})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		taken   int
		closers int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			closed, err := f.svc.TakeUnit(ctx, req.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				taken++
				if closed {
					closers++
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, taken)
	assert.Equal(t, 1, closers)

	got, err := f.svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.CompletedCount)
}
