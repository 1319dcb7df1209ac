package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	interactionRepo "anoa.com/coinexchange/internal/modules/interaction/repository"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"
	search "anoa.com/coinexchange/internal/modules/search/service"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/database"
	"anoa.com/coinexchange/pkg/logger"
	"go.uber.org/zap"
)

const (
	MaxQuantity      = 10000
	MaxCostOverride  = 1000
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

var postRefPattern = regexp.MustCompile(`^https?://(www\.)?(instagram\.com|instagr\.am)/(p|reel|tv)/[A-Za-z0-9_-]+/?(\?\S*)?$`)

func ValidPostRef(ref string) bool {
	return postRefPattern.MatchString(ref)
}

type OpenRequestInput struct {
	PostRef    string
	ActionKind string
	Quantity   int64
	// CostOverride and Campaign are admin-only. A campaign is not funded by its owner.
	CostOverride *int64
	Campaign     bool
}

type InteractionService interface {
	OpenRequest(ctx context.Context, ownerID int64, in OpenRequestInput) (*entity.InteractionRequest, error)
	// CloseRequest cancels an open request. Only the owner or an admin may close it; the
	// unused part of a funded request is refunded to the owner.
	CloseRequest(ctx context.Context, actorID int64, requestID uint64) (*entity.InteractionRequest, error)
	FindOpenRequests(ctx context.Context, viewerID int64, kind *entity.ActionKind, limit, offset int) ([]entity.InteractionRequest, error)
	SearchOpenRequests(ctx context.Context, viewerID int64, query string, kind *entity.ActionKind, limit int) ([]entity.InteractionRequest, error)
	GetRequest(ctx context.Context, id uint64) (*entity.InteractionRequest, error)
	// TakeUnit consumes one unit of the request inside the caller's transaction.
	TakeUnit(ctx context.Context, id uint64) (closed bool, err error)
	// Reindex refreshes the search document after a committed change.
	Reindex(ctx context.Context, id uint64)
}

type interactionService struct {
	repo   interactionRepo.RequestRepository
	ledger ledgerService.LedgerService
	tx     database.Transactor
	prices *pricing.Table
	admins authz.Admins
	meili  search.MeiliSearchService
	now    func() time.Time
}

func NewInteractionService(repo interactionRepo.RequestRepository, ledger ledgerService.LedgerService, tx database.Transactor, prices *pricing.Table, admins authz.Admins, meili search.MeiliSearchService) InteractionService {
	return &interactionService{
		repo:   repo,
		ledger: ledger,
		tx:     tx,
		prices: prices,
		admins: admins,
		meili:  meili,
		now:    time.Now,
	}
}

func (s *interactionService) OpenRequest(ctx context.Context, ownerID int64, in OpenRequestInput) (*entity.InteractionRequest, error) {
	postRef := strings.TrimSpace(in.PostRef)
	if !ValidPostRef(postRef) {
		return nil, apperror.ErrInvalidPostReference
	}

	kind, ok := entity.ParseActionKind(in.ActionKind)
	if !ok {
		return nil, apperror.ErrInvalidActionKind
	}

	if in.Quantity <= 0 || in.Quantity > MaxQuantity {
		return nil, apperror.ErrInvalidQuantity
	}

	cost := s.prices.Cost(kind)
	if in.CostOverride != nil || in.Campaign {
		if err := s.admins.Require(ownerID); err != nil {
			return nil, err
		}
	}
	if in.CostOverride != nil {
		if *in.CostOverride <= 0 || *in.CostOverride > MaxCostOverride {
			return nil, apperror.ErrInvalidAmount
		}
		cost = *in.CostOverride
	}

	owner, err := s.ledger.GetUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !owner.Active {
		return nil, apperror.ErrUserInactive
	}

	req := &entity.InteractionRequest{
		OwnerID:       ownerID,
		PostRef:       postRef,
		ActionKind:    kind,
		CostPerAction: cost,
		Quantity:      in.Quantity,
		Status:        entity.RequestOpen,
		Funded:        !in.Campaign,
		Campaign:      in.Campaign,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, req); err != nil {
			return err
		}
		if !req.Funded {
			return nil
		}
		_, err := s.ledger.Debit(ctx, ownerID, req.Quantity*req.CostPerAction, entity.ReasonRequestFunding, ledgerService.Reference("request", req.ID))
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("interaction request opened",
		zap.Uint64("request_id", req.ID),
		zap.Int64("owner_id", ownerID),
		zap.String("action_kind", string(kind)),
		zap.Int64("quantity", req.Quantity),
		zap.Int64("cost_per_action", cost),
		zap.Bool("campaign", req.Campaign),
	)
	s.index(req)
	return req, nil
}

func (s *interactionService) CloseRequest(ctx context.Context, actorID int64, requestID uint64) (*entity.InteractionRequest, error) {
	var closed *entity.InteractionRequest
	var refund int64

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		req, err := s.repo.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.OwnerID != actorID && !s.admins.IsAdmin(actorID) {
			return apperror.ErrUnauthorized
		}

		now := s.now()
		if err := s.repo.Close(ctx, requestID, entity.CloseCancelled, now); err != nil {
			return err
		}

		// Refund from the row as closed. No unit can be taken once status is closed.
		req, err = s.repo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}

		if req.Funded {
			refund = req.Remaining() * req.CostPerAction
			if refund > 0 {
				if _, err := s.ledger.Credit(ctx, req.OwnerID, refund, entity.ReasonRequestRefund, ledgerService.Reference("request", req.ID)); err != nil {
					return err
				}
			}
		}

		closed = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("interaction request cancelled",
		zap.Uint64("request_id", requestID),
		zap.Int64("actor_id", actorID),
		zap.Int64("refund", refund),
	)
	s.index(closed)
	return closed, nil
}

func (s *interactionService) FindOpenRequests(ctx context.Context, viewerID int64, kind *entity.ActionKind, limit, offset int) ([]entity.InteractionRequest, error) {
	return s.repo.FindOpen(ctx, interactionRepo.OpenFilter{
		ActionKind:         kind,
		ExcludeOwner:       &viewerID,
		ExcludeCompletedBy: &viewerID,
		Limit:              clampLimit(limit),
		Offset:             max(offset, 0),
	})
}

// SearchOpenRequests resolves full-text hits against the database so closed and own
// requests never leak through a stale index.
func (s *interactionService) SearchOpenRequests(ctx context.Context, viewerID int64, query string, kind *entity.ActionKind, limit int) ([]entity.InteractionRequest, error) {
	if s.meili == nil {
		return s.FindOpenRequests(ctx, viewerID, kind, limit, 0)
	}

	ids, err := s.meili.SearchRequests(query, kind, clampLimit(limit))
	if err != nil {
		logger.Log.Warn("search failed, falling back to listing", zap.Error(err))
		return s.FindOpenRequests(ctx, viewerID, kind, limit, 0)
	}

	results := make([]entity.InteractionRequest, 0, len(ids))
	for _, id := range ids {
		req, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if apperror.IsDomain(err) {
				continue
			}
			return nil, err
		}
		if req.IsOpen() && req.OwnerID != viewerID {
			results = append(results, *req)
		}
	}
	return results, nil
}

func (s *interactionService) GetRequest(ctx context.Context, id uint64) (*entity.InteractionRequest, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *interactionService) TakeUnit(ctx context.Context, id uint64) (bool, error) {
	return s.repo.IncrementCompleted(ctx, id, s.now())
}

func (s *interactionService) Reindex(ctx context.Context, id uint64) {
	if s.meili == nil {
		return
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logger.Log.Warn("reindex lookup failed", zap.Uint64("request_id", id), zap.Error(err))
		return
	}
	s.index(req)
}

func (s *interactionService) index(req *entity.InteractionRequest) {
	if s.meili == nil {
		return
	}
	if err := s.meili.IndexRequest(req); err != nil {
		logger.Log.Warn("failed to index request", zap.Uint64("request_id", req.ID), zap.Error(err))
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	return min(limit, MaxPageLimit)
}
