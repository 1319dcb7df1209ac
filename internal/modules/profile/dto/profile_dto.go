package dto

import (
	"anoa.com/coinexchange/internal/entity"
)

type RegisterProfileInput struct {
	Handle string `json:"handle" binding:"required,max=31"`
}

type VerifyProfileInput struct {
	Verified *bool `json:"verified" binding:"required"`
}

type ProfileSlotResponse struct {
	Slot     entity.ProfileSlot `json:"slot"`
	Handle   string             `json:"handle"`
	Verified bool               `json:"verified"`
}

// ProfileStatusResponse is the profile snapshot of one user.
type ProfileStatusResponse struct {
	UserID    int64                 `json:"user_id"`
	Primary   *ProfileSlotResponse  `json:"primary"`
	Secondary []ProfileSlotResponse `json:"secondary"`
}

func ToProfileStatusResponse(userID int64, profiles []entity.Profile) *ProfileStatusResponse {
	res := &ProfileStatusResponse{UserID: userID, Secondary: []ProfileSlotResponse{}}
	for _, p := range profiles {
		slot := ProfileSlotResponse{Slot: p.Slot, Handle: p.Handle, Verified: p.Verified}
		if p.Slot == entity.SlotPrimary {
			res.Primary = &slot
			continue
		}
		res.Secondary = append(res.Secondary, slot)
	}
	return res
}
