package service

import (
	"context"
	"io"
	"time"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	verificationRepo "anoa.com/coinexchange/internal/modules/verification/repository"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/logger"
	"anoa.com/coinexchange/pkg/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transition validates a move between verification states. Only pending evidence can
// be resolved, and only to approved or rejected.
func Transition(from, to entity.VerificationState) error {
	if from != entity.StatePending {
		return apperror.ErrInvalidTransition
	}
	if to != entity.StateApproved && to != entity.StateRejected {
		return apperror.ErrInvalidTransition
	}
	return nil
}

// InitialState is the state a new completion starts in.
func InitialState(requiresEvidence bool) entity.VerificationState {
	if requiresEvidence {
		return entity.StatePending
	}
	return entity.StateNotRequired
}

type VerificationService interface {
	// Open creates the pending evidence record of a completion inside the caller's transaction.
	Open(ctx context.Context, completionID uint64, storageRef string) (*entity.Evidence, error)
	// Upload stores a screenshot and returns its reference. Nothing is persisted.
	Upload(ctx context.Context, r io.Reader, fileName string) (string, error)
	// Attach uploads a screenshot for the performer's own pending evidence.
	Attach(ctx context.Context, performerID int64, id uuid.UUID, r io.Reader, fileName string) (*entity.Evidence, error)
	// Resolve moves pending evidence to approved or rejected. Approval needs a stored
	// screenshot. Payout is the caller's responsibility, in the same transaction.
	Resolve(ctx context.Context, adminID int64, id uuid.UUID, approve bool) (*entity.Evidence, error)
	// Discard removes an uploaded object whose database write did not commit.
	Discard(ctx context.Context, ref string)
	Get(ctx context.Context, id uuid.UUID) (*entity.Evidence, error)
	ListPending(ctx context.Context, adminID int64, limit, offset int) ([]entity.Evidence, error)
	CountPending(ctx context.Context) (int64, error)
}

type verificationService struct {
	repo    verificationRepo.EvidenceRepository
	storage storage.EvidenceStorage
	admins  authz.Admins
	now     func() time.Time
}

func NewVerificationService(repo verificationRepo.EvidenceRepository, evidenceStorage storage.EvidenceStorage, admins authz.Admins) VerificationService {
	return &verificationService{
		repo:    repo,
		storage: evidenceStorage,
		admins:  admins,
		now:     time.Now,
	}
}

func (s *verificationService) Open(ctx context.Context, completionID uint64, storageRef string) (*entity.Evidence, error) {
	evidence := &entity.Evidence{
		CompletionID: completionID,
		StorageRef:   storageRef,
		State:        entity.StatePending,
	}
	if err := s.repo.Create(ctx, evidence); err != nil {
		return nil, err
	}
	return evidence, nil
}

func (s *verificationService) Upload(ctx context.Context, r io.Reader, fileName string) (string, error) {
	if s.storage == nil {
		return "", apperror.Storage(storage.ErrNotConfigured)
	}
	ref, err := s.storage.Store(ctx, r, fileName)
	if err != nil {
		logger.Log.Error("evidence upload failed", zap.String("file_name", fileName), zap.Error(err))
		return "", apperror.Storage(err)
	}
	return ref, nil
}

func (s *verificationService) Attach(ctx context.Context, performerID int64, id uuid.UUID, r io.Reader, fileName string) (*entity.Evidence, error) {
	evidence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if evidence.Completion == nil || evidence.Completion.PerformerID != performerID {
		return nil, apperror.ErrUnauthorized
	}
	if evidence.State != entity.StatePending {
		return nil, apperror.ErrInvalidTransition
	}

	ref, err := s.Upload(ctx, r, fileName)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetStorageRef(ctx, id, ref); err != nil {
		s.Discard(ctx, ref)
		return nil, err
	}

	if evidence.StorageRef != "" {
		s.Discard(ctx, evidence.StorageRef)
	}
	evidence.StorageRef = ref

	logger.Log.Info("evidence attached",
		zap.String("evidence_id", id.String()),
		zap.Int64("performer_id", performerID),
	)
	return evidence, nil
}

func (s *verificationService) Resolve(ctx context.Context, adminID int64, id uuid.UUID, approve bool) (*entity.Evidence, error) {
	if err := s.admins.Require(adminID); err != nil {
		return nil, err
	}

	evidence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target := entity.StateRejected
	if approve {
		target = entity.StateApproved
	}
	if err := Transition(evidence.State, target); err != nil {
		return nil, err
	}
	if approve && evidence.StorageRef == "" {
		return nil, apperror.ErrEvidenceRequired
	}

	now := s.now()
	if err := s.repo.Resolve(ctx, id, target, adminID, now); err != nil {
		return nil, err
	}

	evidence.State = target
	evidence.ReviewerID = &adminID
	evidence.ReviewedAt = &now
	return evidence, nil
}

func (s *verificationService) Discard(ctx context.Context, ref string) {
	if s.storage == nil || ref == "" {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), ref); err != nil {
		logger.Log.Warn("failed to delete evidence object", zap.String("ref", ref), zap.Error(err))
	}
}

func (s *verificationService) Get(ctx context.Context, id uuid.UUID) (*entity.Evidence, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *verificationService) ListPending(ctx context.Context, adminID int64, limit, offset int) ([]entity.Evidence, error) {
	if err := s.admins.Require(adminID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListPending(ctx, limit, max(offset, 0))
}

func (s *verificationService) CountPending(ctx context.Context) (int64, error) {
	return s.repo.CountPending(ctx)
}
