package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"anoa.com/coinexchange/internal/entity"
	interactionRepo "anoa.com/coinexchange/internal/modules/interaction/repository"
	interactionService "anoa.com/coinexchange/internal/modules/interaction/service"
	leaderboardService "anoa.com/coinexchange/internal/modules/leaderboard/service"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"
	notifService "anoa.com/coinexchange/internal/modules/notification/service"
	profileService "anoa.com/coinexchange/internal/modules/profile/service"
	verificationService "anoa.com/coinexchange/internal/modules/verification/service"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"anoa.com/coinexchange/pkg/logger"
	"anoa.com/coinexchange/pkg/metrics"
	"anoa.com/coinexchange/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const claimScope = "claim"

type Outcome string

const (
	OutcomePaid           Outcome = "paid"
	OutcomeAwaitingReview Outcome = "awaiting_review"
	OutcomeRejected       Outcome = "rejected"
)

type ClaimInput struct {
	RequestID   uint64
	Slot        entity.ProfileSlot
	CommentText string
	// Screenshot is optional. When present it is stored before the claim is recorded.
	Screenshot     io.Reader
	ScreenshotName string
}

type ClaimResult struct {
	Outcome       Outcome
	Completion    *entity.Completion
	Evidence      *entity.Evidence
	Credited      int64
	RequestClosed bool
}

type ExchangeService interface {
	// ClaimCompletion validates a performer's claim on a request. Low-cost actions are
	// paid at once; evidence-requiring actions wait for admin review.
	ClaimCompletion(ctx context.Context, performerID int64, in ClaimInput) (*ClaimResult, error)
	// ResolveEvidence approves or rejects pending evidence. Approval pays out in the same
	// transaction, and leaves the evidence pending when the request has no quantity left.
	ResolveEvidence(ctx context.Context, adminID int64, evidenceID uuid.UUID, approve bool) (*ClaimResult, error)
	AttachEvidence(ctx context.Context, performerID int64, evidenceID uuid.UUID, r io.Reader, fileName string) (*entity.Evidence, error)
	AdjustBalance(ctx context.Context, adminID, userID, delta int64, note string) (*entity.LedgerEntry, error)
	MyCompletions(ctx context.Context, performerID int64, limit int) ([]entity.Completion, error)
}

type exchangeService struct {
	ledger        ledgerService.LedgerService
	profiles      profileService.ProfileService
	interactions  interactionService.InteractionService
	completions   interactionRepo.CompletionRepository
	verification  verificationService.VerificationService
	leaderboard   leaderboardService.LeaderboardService
	notifications notifService.NotificationService
	tx            database.Transactor
	prices        *pricing.Table
	redisClient   *redis.Client
	cooldown      time.Duration
	sanitizer     *bluemonday.Policy
	now           func() time.Time
}

func NewExchangeService(
	ledger ledgerService.LedgerService,
	profiles profileService.ProfileService,
	interactions interactionService.InteractionService,
	completions interactionRepo.CompletionRepository,
	verification verificationService.VerificationService,
	leaderboard leaderboardService.LeaderboardService,
	notifications notifService.NotificationService,
	tx database.Transactor,
	prices *pricing.Table,
	redisClient *redis.Client,
	cooldown time.Duration,
) ExchangeService {
	return &exchangeService{
		ledger:        ledger,
		profiles:      profiles,
		interactions:  interactions,
		completions:   completions,
		verification:  verification,
		leaderboard:   leaderboard,
		notifications: notifications,
		tx:            tx,
		prices:        prices,
		redisClient:   redisClient,
		cooldown:      cooldown,
		sanitizer:     bluemonday.StrictPolicy(),
		now:           time.Now,
	}
}

func (s *exchangeService) ClaimCompletion(ctx context.Context, performerID int64, in ClaimInput) (*ClaimResult, error) {
	req, comment, err := s.validateClaim(ctx, performerID, in)
	if err != nil {
		metrics.ClaimsTotal.WithLabelValues(kindLabel(req), apperror.Code(err)).Inc()
		return nil, err
	}

	release, err := s.checkCooldown(ctx, performerID)
	if err != nil {
		return nil, err
	}

	var result *ClaimResult
	if s.prices.RequiresEvidence(req.CostPerAction) {
		result, err = s.claimWithEvidence(ctx, performerID, req, in, comment)
	} else {
		result, err = s.claimAndPay(ctx, performerID, req, in.Slot, comment)
	}
	if err != nil {
		release()
		metrics.ClaimsTotal.WithLabelValues(string(req.ActionKind), apperror.Code(err)).Inc()
		return nil, err
	}

	metrics.ClaimsTotal.WithLabelValues(string(req.ActionKind), string(result.Outcome)).Inc()
	return result, nil
}

// validateClaim runs every check that does not mutate state. The request is returned
// even on failure when it was found.
func (s *exchangeService) validateClaim(ctx context.Context, performerID int64, in ClaimInput) (*entity.InteractionRequest, string, error) {
	performer, err := s.ledger.GetUser(ctx, performerID)
	if err != nil {
		return nil, "", err
	}
	if !performer.Active {
		return nil, "", apperror.ErrUserInactive
	}

	req, err := s.interactions.GetRequest(ctx, in.RequestID)
	if err != nil {
		return nil, "", err
	}
	if !req.IsOpen() {
		return req, "", apperror.ErrRequestClosed
	}
	if req.OwnerID == performerID {
		return req, "", apperror.ErrSelfDealing
	}

	exists, err := s.completions.Exists(ctx, performerID, req.ID)
	if err != nil {
		return req, "", err
	}
	if exists {
		return req, "", apperror.ErrDuplicateClaim
	}

	if _, err := s.profiles.ActingProfile(ctx, performerID, in.Slot); err != nil {
		return req, "", err
	}

	var comment string
	if req.ActionKind == entity.ActionComment {
		comment = strings.TrimSpace(s.sanitizer.Sanitize(in.CommentText))
		if len(strings.Fields(comment)) < s.prices.CommentMinWords {
			return req, "", apperror.ErrCommentTooShort
		}
	}
	return req, comment, nil
}

func kindLabel(req *entity.InteractionRequest) string {
	if req == nil {
		return "unknown"
	}
	return string(req.ActionKind)
}

func (s *exchangeService) checkCooldown(ctx context.Context, performerID int64) (func(), error) {
	release := func() {
		_ = ratelimiter.ClearRateLimit(context.WithoutCancel(ctx), s.redisClient, performerID, claimScope)
	}

	allowed, err := ratelimiter.CheckAndSetRateLimit(ctx, s.redisClient, performerID, claimScope, s.cooldown)
	if err != nil {
		logger.Log.Warn("claim cooldown unavailable", zap.Int64("performer_id", performerID), zap.Error(err))
		return func() {}, nil
	}
	if !allowed {
		ttl, _ := ratelimiter.GetRateLimitTTL(ctx, s.redisClient, performerID, claimScope)
		return nil, &ratelimiter.RateLimitError{
			Message:    fmt.Sprintf("please wait %.0f seconds before the next claim", ttl.Seconds()),
			RetryAfter: ttl,
		}
	}
	return release, nil
}

func (s *exchangeService) claimWithEvidence(ctx context.Context, performerID int64, req *entity.InteractionRequest, in ClaimInput, comment string) (*ClaimResult, error) {
	var ref string
	if in.Screenshot != nil {
		var err error
		ref, err = s.verification.Upload(ctx, in.Screenshot, in.ScreenshotName)
		if err != nil {
			return nil, err
		}
	}

	completion := &entity.Completion{
		PerformerID: performerID,
		RequestID:   req.ID,
		ProfileSlot: in.Slot,
		ActionKind:  req.ActionKind,
		CommentText: comment,
		State:       verificationService.InitialState(true),
		Payable:     true,
	}

	var evidence *entity.Evidence
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.completions.Create(ctx, completion); err != nil {
			return err
		}
		var err error
		evidence, err = s.verification.Open(ctx, completion.ID, ref)
		return err
	})
	if err != nil {
		s.verification.Discard(ctx, ref)
		return nil, err
	}

	logger.Log.Info("claim awaiting review",
		zap.Uint64("completion_id", completion.ID),
		zap.Uint64("request_id", req.ID),
		zap.Int64("performer_id", performerID),
		zap.String("evidence_id", evidence.ID.String()),
	)

	if s.notifications != nil {
		s.notifications.NotifyAdmins(ctx, entity.Notification{
			Type:       entity.NotificationEvidencePending,
			Message:    fmt.Sprintf("New %s screenshot from user %d waits for review.", req.ActionKind, performerID),
			EntityType: "evidence",
			EntityID:   evidence.ID.String(),
		})
	}

	return &ClaimResult{
		Outcome:    OutcomeAwaitingReview,
		Completion: completion,
		Evidence:   evidence,
	}, nil
}

func (s *exchangeService) claimAndPay(ctx context.Context, performerID int64, req *entity.InteractionRequest, slot entity.ProfileSlot, comment string) (*ClaimResult, error) {
	completion := &entity.Completion{
		PerformerID: performerID,
		RequestID:   req.ID,
		ProfileSlot: slot,
		ActionKind:  req.ActionKind,
		CommentText: comment,
		State:       verificationService.InitialState(false),
		Payable:     true,
	}

	var p payout
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.completions.Create(ctx, completion); err != nil {
			return err
		}
		var err error
		p, err = s.pay(ctx, completion, req, entity.StateNotRequired)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterPayout(ctx, completion, req, p)
	return &ClaimResult{
		Outcome:       OutcomePaid,
		Completion:    completion,
		Credited:      p.amount,
		RequestClosed: p.closed,
	}, nil
}

func (s *exchangeService) ResolveEvidence(ctx context.Context, adminID int64, evidenceID uuid.UUID, approve bool) (*ClaimResult, error) {
	var (
		evidence   *entity.Evidence
		completion *entity.Completion
		req        *entity.InteractionRequest
		p          payout
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		evidence, err = s.verification.Resolve(ctx, adminID, evidenceID, approve)
		if err != nil {
			return err
		}

		completion, err = s.completions.FindByID(ctx, evidence.CompletionID)
		if err != nil {
			return err
		}

		if !approve {
			return s.completions.MarkRejected(ctx, completion.ID)
		}

		req, err = s.interactions.GetRequest(ctx, completion.RequestID)
		if err != nil {
			return err
		}
		p, err = s.pay(ctx, completion, req, entity.StateApproved)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !approve {
		metrics.EvidenceResolutions.WithLabelValues(string(entity.StateRejected)).Inc()
		completion.State = entity.StateRejected
		completion.Payable = false

		logger.Log.Info("evidence rejected",
			zap.String("evidence_id", evidenceID.String()),
			zap.Uint64("completion_id", completion.ID),
			zap.Int64("admin_id", adminID),
		)
		if s.notifications != nil {
			s.notifications.Notify(ctx, &entity.Notification{
				UserID:     completion.PerformerID,
				Type:       entity.NotificationEvidenceRejected,
				Message:    fmt.Sprintf("Your %s screenshot was rejected. No coins were paid.", completion.ActionKind),
				EntityType: "evidence",
				EntityID:   evidenceID.String(),
			})
		}
		return &ClaimResult{Outcome: OutcomeRejected, Completion: completion, Evidence: evidence}, nil
	}

	metrics.EvidenceResolutions.WithLabelValues(string(entity.StateApproved)).Inc()
	logger.Log.Info("evidence approved",
		zap.String("evidence_id", evidenceID.String()),
		zap.Uint64("completion_id", completion.ID),
		zap.Int64("admin_id", adminID),
	)
	s.afterPayout(ctx, completion, req, p)

	return &ClaimResult{
		Outcome:       OutcomePaid,
		Completion:    completion,
		Evidence:      evidence,
		Credited:      p.amount,
		RequestClosed: p.closed,
	}, nil
}

func (s *exchangeService) AttachEvidence(ctx context.Context, performerID int64, evidenceID uuid.UUID, r io.Reader, fileName string) (*entity.Evidence, error) {
	return s.verification.Attach(ctx, performerID, evidenceID, r, fileName)
}

func (s *exchangeService) AdjustBalance(ctx context.Context, adminID, userID, delta int64, note string) (*entity.LedgerEntry, error) {
	entry, err := s.ledger.Adjust(ctx, adminID, userID, delta, note)
	if err != nil {
		return nil, err
	}

	if s.notifications != nil {
		s.notifications.Notify(ctx, &entity.Notification{
			UserID:     userID,
			Type:       entity.NotificationBalanceAdjusted,
			Message:    fmt.Sprintf("An admin adjusted your balance by %+d. New balance: %d.", delta, entry.BalanceAfter),
			EntityType: "ledger_entry",
			EntityID:   fmt.Sprint(entry.Seq),
		})
	}
	return entry, nil
}

func (s *exchangeService) MyCompletions(ctx context.Context, performerID int64, limit int) ([]entity.Completion, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.completions.ListByPerformer(ctx, performerID, limit)
}
