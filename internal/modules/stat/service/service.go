package service

import (
	"context"

	"anoa.com/coinexchange/internal/authz"
	interactionRepo "anoa.com/coinexchange/internal/modules/interaction/repository"
	ledgerRepo "anoa.com/coinexchange/internal/modules/ledger/repository"
	purchaseRepo "anoa.com/coinexchange/internal/modules/purchase/repository"
	verificationRepo "anoa.com/coinexchange/internal/modules/verification/repository"
)

type Overview struct {
	TotalUsers         int64 `json:"total_users"`
	OpenRequests       int64 `json:"open_requests"`
	Completions        int64 `json:"completions"`
	PendingEvidence    int64 `json:"pending_evidence"`
	CoinsInCirculation int64 `json:"coins_in_circulation"`
	PendingPurchases   int64 `json:"pending_purchases"`
}

type StatService interface {
	GetOverview(ctx context.Context, adminID int64) (*Overview, error)
	GetTotalUsers(ctx context.Context) (int64, error)
}

type statService struct {
	ledgerRepo   ledgerRepo.LedgerRepository
	requestRepo  interactionRepo.RequestRepository
	completions  interactionRepo.CompletionRepository
	evidenceRepo verificationRepo.EvidenceRepository
	purchaseRepo purchaseRepo.PurchaseRepository
	admins       authz.Admins
}

func NewStatService(
	ledgerRepo ledgerRepo.LedgerRepository,
	requestRepo interactionRepo.RequestRepository,
	completions interactionRepo.CompletionRepository,
	evidenceRepo verificationRepo.EvidenceRepository,
	purchaseRepo purchaseRepo.PurchaseRepository,
	admins authz.Admins,
) StatService {
	return &statService{
		ledgerRepo:   ledgerRepo,
		requestRepo:  requestRepo,
		completions:  completions,
		evidenceRepo: evidenceRepo,
		purchaseRepo: purchaseRepo,
		admins:       admins,
	}
}

func (s *statService) GetOverview(ctx context.Context, adminID int64) (*Overview, error) {
	if err := s.admins.Require(adminID); err != nil {
		return nil, err
	}

	var (
		o   Overview
		err error
	)
	if o.TotalUsers, err = s.ledgerRepo.CountUsers(ctx); err != nil {
		return nil, err
	}
	if o.OpenRequests, err = s.requestRepo.CountOpen(ctx); err != nil {
		return nil, err
	}
	if o.Completions, err = s.completions.Count(ctx); err != nil {
		return nil, err
	}
	if o.PendingEvidence, err = s.evidenceRepo.CountPending(ctx); err != nil {
		return nil, err
	}
	if o.CoinsInCirculation, err = s.ledgerRepo.TotalBalance(ctx); err != nil {
		return nil, err
	}
	if o.PendingPurchases, err = s.purchaseRepo.CountPending(ctx); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *statService) GetTotalUsers(ctx context.Context) (int64, error) {
	return s.ledgerRepo.CountUsers(ctx)
}
