package service

import (
	"context"
	"fmt"

	"anoa.com/coinexchange/internal/entity"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"
	"anoa.com/coinexchange/pkg/logger"
	"anoa.com/coinexchange/pkg/metrics"
	"go.uber.org/zap"
)

type payout struct {
	amount int64
	closed bool
}

// pay takes one unit of the request, credits the performer's share and records ranking
// points. It must run inside a transaction: any failure rolls every step back.
func (s *exchangeService) pay(ctx context.Context, completion *entity.Completion, req *entity.InteractionRequest, state entity.VerificationState) (payout, error) {
	closed, err := s.interactions.TakeUnit(ctx, req.ID)
	if err != nil {
		return payout{}, err
	}

	amount := s.prices.Earning(req.CostPerAction, completion.ProfileSlot)
	if amount > 0 {
		if _, err := s.ledger.Credit(ctx, completion.PerformerID, amount, entity.ReasonCompletionPayout, ledgerService.Reference("completion", completion.ID)); err != nil {
			return payout{}, err
		}
	}

	now := s.now()
	if err := s.leaderboard.RecordPoints(ctx, completion.PerformerID, completion.ActionKind, completion.ID, now); err != nil {
		return payout{}, err
	}

	if err := s.completions.MarkPaid(ctx, completion.ID, state, amount, now); err != nil {
		return payout{}, err
	}

	completion.State = state
	completion.AmountCredited = amount
	completion.PaidAt = &now
	return payout{amount: amount, closed: closed}, nil
}

// afterPayout runs the side effects of a committed payout.
func (s *exchangeService) afterPayout(ctx context.Context, completion *entity.Completion, req *entity.InteractionRequest, p payout) {
	metrics.CoinsCredited.Add(float64(p.amount))

	logger.Log.Info("completion paid",
		zap.Uint64("completion_id", completion.ID),
		zap.Uint64("request_id", req.ID),
		zap.Int64("performer_id", completion.PerformerID),
		zap.Int64("amount", p.amount),
		zap.Bool("request_closed", p.closed),
	)

	if p.closed {
		s.interactions.Reindex(ctx, req.ID)
	}

	if s.notifications == nil {
		return
	}

	notifType := entity.NotificationCompletionPaid
	if completion.State == entity.StateApproved {
		notifType = entity.NotificationEvidenceApproved
	}
	s.notifications.Notify(ctx, &entity.Notification{
		UserID:     completion.PerformerID,
		Type:       notifType,
		Message:    fmt.Sprintf("You earned %d Coin for a %s.", p.amount, completion.ActionKind),
		EntityType: "completion",
		EntityID:   fmt.Sprint(completion.ID),
	})

	if p.closed {
		s.notifications.Notify(ctx, &entity.Notification{
			UserID:     req.OwnerID,
			Type:       entity.NotificationRequestFulfilled,
			Message:    fmt.Sprintf("Your %s request for %s is complete.", req.ActionKind, req.PostRef),
			EntityType: "interaction_request",
			EntityID:   fmt.Sprint(req.ID),
		})
	}
}
