package dto

import (
	"time"

	"anoa.com/coinexchange/internal/entity"
	exchangeService "anoa.com/coinexchange/internal/modules/exchange/service"
)

// ClaimRequest binds from JSON or from a multipart form carrying the screenshot.
type ClaimRequest struct {
	Slot        int    `form:"slot" json:"slot" binding:"min=0,max=2"`
	CommentText string `form:"comment_text" json:"comment_text" binding:"max=2200"`
}

type CompletionResponse struct {
	ID             uint64     `json:"id"`
	RequestID      uint64     `json:"request_id"`
	ActionKind     string     `json:"action_kind"`
	ProfileSlot    int        `json:"profile_slot"`
	State          string     `json:"state"`
	Payable        bool       `json:"payable"`
	AmountCredited int64      `json:"amount_credited"`
	CreatedAt      time.Time  `json:"created_at"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

type EvidenceResponse struct {
	ID            string     `json:"id"`
	CompletionID  uint64     `json:"completion_id"`
	State         string     `json:"state"`
	HasScreenshot bool       `json:"has_screenshot"`
	StorageRef    string     `json:"storage_ref,omitempty"`
	ReviewerID    *int64     `json:"reviewer_id,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ClaimResponse struct {
	Outcome       string             `json:"outcome"`
	Completion    CompletionResponse `json:"completion"`
	Evidence      *EvidenceResponse  `json:"evidence,omitempty"`
	Credited      int64              `json:"credited"`
	RequestClosed bool               `json:"request_closed"`
}

func ToCompletionResponse(c *entity.Completion) CompletionResponse {
	return CompletionResponse{
		ID:             c.ID,
		RequestID:      c.RequestID,
		ActionKind:     string(c.ActionKind),
		ProfileSlot:    int(c.ProfileSlot),
		State:          string(c.State),
		Payable:        c.Payable,
		AmountCredited: c.AmountCredited,
		CreatedAt:      c.CreatedAt,
		PaidAt:         c.PaidAt,
	}
}

func ToCompletionResponses(completions []entity.Completion) []CompletionResponse {
	res := make([]CompletionResponse, 0, len(completions))
	for i := range completions {
		res = append(res, ToCompletionResponse(&completions[i]))
	}
	return res
}

func ToEvidenceResponse(e *entity.Evidence) *EvidenceResponse {
	if e == nil {
		return nil
	}
	return &EvidenceResponse{
		ID:            e.ID.String(),
		CompletionID:  e.CompletionID,
		State:         string(e.State),
		HasScreenshot: e.StorageRef != "",
		StorageRef:    e.StorageRef,
		ReviewerID:    e.ReviewerID,
		ReviewedAt:    e.ReviewedAt,
		CreatedAt:     e.CreatedAt,
	}
}

func ToEvidenceResponses(evidence []entity.Evidence) []*EvidenceResponse {
	res := make([]*EvidenceResponse, 0, len(evidence))
	for i := range evidence {
		res = append(res, ToEvidenceResponse(&evidence[i]))
	}
	return res
}

func ToClaimResponse(r *exchangeService.ClaimResult) ClaimResponse {
	return ClaimResponse{
		Outcome:       string(r.Outcome),
		Completion:    ToCompletionResponse(r.Completion),
		Evidence:      ToEvidenceResponse(r.Evidence),
		Credited:      r.Credited,
		RequestClosed: r.RequestClosed,
	}
}
