package profile

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	notifService "anoa.com/coinexchange/internal/modules/notification/service"
	profileDto "anoa.com/coinexchange/internal/modules/profile/dto"
	profileRepo "anoa.com/coinexchange/internal/modules/profile/repository"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/logger"
	"go.uber.org/zap"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

// NormalizeHandle strips a leading @ and validates the remaining characters.
func NormalizeHandle(handle string) (string, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if !handlePattern.MatchString(handle) {
		return "", apperror.ErrInvalidHandle
	}
	return handle, nil
}

// UserFinder is the part of the ledger the registry needs.
type UserFinder interface {
	GetUser(ctx context.Context, userID int64) (*entity.User, error)
}

type ProfileService interface {
	RegisterPrimary(ctx context.Context, userID int64, handle string) (*entity.Profile, error)
	RegisterSecondary(ctx context.Context, userID int64, slot entity.ProfileSlot, handle string) (*entity.Profile, error)
	// RegisterNext fills the primary slot first, then the first free secondary slot.
	RegisterNext(ctx context.Context, userID int64, handle string) (*entity.Profile, error)
	Status(ctx context.Context, userID int64) (*profileDto.ProfileStatusResponse, error)
	// ActingProfile returns the profile a claim is made with. A secondary profile must be verified.
	ActingProfile(ctx context.Context, userID int64, slot entity.ProfileSlot) (*entity.Profile, error)
	Verify(ctx context.Context, adminID, userID int64, slot entity.ProfileSlot, verified bool) error
}

type profileService struct {
	repo          profileRepo.ProfileRepository
	users         UserFinder
	notifications notifService.NotificationService
	admins        authz.Admins
}

func NewProfileService(repo profileRepo.ProfileRepository, users UserFinder, notifications notifService.NotificationService, admins authz.Admins) ProfileService {
	return &profileService{
		repo:          repo,
		users:         users,
		notifications: notifications,
		admins:        admins,
	}
}

func (s *profileService) RegisterPrimary(ctx context.Context, userID int64, handle string) (*entity.Profile, error) {
	return s.register(ctx, userID, entity.SlotPrimary, handle)
}

func (s *profileService) RegisterSecondary(ctx context.Context, userID int64, slot entity.ProfileSlot, handle string) (*entity.Profile, error) {
	if !slot.IsSecondary() {
		return nil, apperror.ErrInvalidSlot
	}
	return s.register(ctx, userID, slot, handle)
}

func (s *profileService) RegisterNext(ctx context.Context, userID int64, handle string) (*entity.Profile, error) {
	profiles, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	taken := make(map[entity.ProfileSlot]bool, len(profiles))
	for _, p := range profiles {
		taken[p.Slot] = true
	}

	for _, slot := range []entity.ProfileSlot{entity.SlotPrimary, entity.SlotSecondary1, entity.SlotSecondary2} {
		if !taken[slot] {
			return s.register(ctx, userID, slot, handle)
		}
	}
	return nil, apperror.ErrProfileSlotsFull
}

func (s *profileService) register(ctx context.Context, userID int64, slot entity.ProfileSlot, handle string) (*entity.Profile, error) {
	normalized, err := NormalizeHandle(handle)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	profile := &entity.Profile{UserID: userID, Slot: slot, Handle: normalized}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	logger.Log.Info("profile registered",
		zap.Int64("user_id", userID),
		zap.Int("slot", int(slot)),
		zap.String("handle", normalized),
	)
	return profile, nil
}

func (s *profileService) Status(ctx context.Context, userID int64) (*profileDto.ProfileStatusResponse, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	profiles, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileDto.ToProfileStatusResponse(userID, profiles), nil
}

func (s *profileService) ActingProfile(ctx context.Context, userID int64, slot entity.ProfileSlot) (*entity.Profile, error) {
	if !slot.Valid() {
		return nil, apperror.ErrInvalidSlot
	}

	profile, err := s.repo.Find(ctx, userID, slot)
	if err != nil {
		return nil, err
	}
	if slot.IsSecondary() && !profile.Verified {
		return nil, apperror.ErrProfileNotVerified
	}
	return profile, nil
}

func (s *profileService) Verify(ctx context.Context, adminID, userID int64, slot entity.ProfileSlot, verified bool) error {
	if err := s.admins.Require(adminID); err != nil {
		return err
	}
	if !slot.Valid() {
		return apperror.ErrInvalidSlot
	}

	if err := s.repo.SetVerified(ctx, userID, slot, verified, adminID); err != nil {
		return err
	}

	logger.Log.Info("profile verification changed",
		zap.Int64("user_id", userID),
		zap.Int("slot", int(slot)),
		zap.Bool("verified", verified),
		zap.Int64("admin_id", adminID),
	)

	if s.notifications != nil {
		message := fmt.Sprintf("Your profile in slot %d was verified.", slot)
		if !verified {
			message = fmt.Sprintf("Verification of your profile in slot %d was revoked.", slot)
		}
		s.notifications.Notify(ctx, &entity.Notification{
			UserID:     userID,
			Type:       entity.NotificationProfileVerified,
			Message:    message,
			EntityType: "profile",
			EntityID:   fmt.Sprintf("%d:%d", userID, slot),
		})
	}
	return nil
}
