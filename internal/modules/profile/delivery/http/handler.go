package handler

import (
	"net/http"
	"strconv"

	"anoa.com/coinexchange/internal/entity"
	profileDto "anoa.com/coinexchange/internal/modules/profile/dto"
	profile "anoa.com/coinexchange/internal/modules/profile/service"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/response"
	"anoa.com/coinexchange/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService profile.ProfileService
}

func NewProfileHandler(profileService profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetCurrentProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status, err := h.profileService.Status(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *ProfileHandler) RegisterPrimary(c *gin.Context) {
	h.register(c, func(userID int64, handle string) (*entity.Profile, error) {
		return h.profileService.RegisterPrimary(c.Request.Context(), userID, handle)
	})
}

func (h *ProfileHandler) RegisterSecondary(c *gin.Context) {
	slot, err := parseSlot(c.Param("slot"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.register(c, func(userID int64, handle string) (*entity.Profile, error) {
		return h.profileService.RegisterSecondary(c.Request.Context(), userID, slot, handle)
	})
}

func (h *ProfileHandler) RegisterNext(c *gin.Context) {
	h.register(c, func(userID int64, handle string) (*entity.Profile, error) {
		return h.profileService.RegisterNext(c.Request.Context(), userID, handle)
	})
}

func (h *ProfileHandler) register(c *gin.Context, fn func(userID int64, handle string) (*entity.Profile, error)) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.RegisterProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	p, err := fn(userID, input.Handle)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, profileDto.ProfileSlotResponse{
		Slot:     p.Slot,
		Handle:   p.Handle,
		Verified: p.Verified,
	})
}

// VerifyProfile is admin-only.
func (h *ProfileHandler) VerifyProfile(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	slot, err := parseSlot(c.Param("slot"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.VerifyProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	if err := h.profileService.Verify(c.Request.Context(), adminID, userID, slot, *input.Verified); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "profile updated"})
}

func parseSlot(raw string) (entity.ProfileSlot, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ErrInvalidSlot
	}
	slot := entity.ProfileSlot(n)
	if !slot.Valid() {
		return 0, apperror.ErrInvalidSlot
	}
	return slot, nil
}
