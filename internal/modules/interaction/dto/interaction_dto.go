package dto

import (
	"time"

	"anoa.com/coinexchange/internal/entity"
)

type OpenRequestInput struct {
	PostRef    string `json:"post_ref" binding:"required,url,max=255"`
	ActionKind string `json:"action_kind" binding:"required"`
	Quantity   int64  `json:"quantity" binding:"required,min=1,max=10000"`
}

// CampaignInput is the admin variant: optional cost override and no funding.
type CampaignInput struct {
	OpenRequestInput
	CostPerAction *int64 `json:"cost_per_action" binding:"omitempty,min=1,max=1000"`
}

type RequestFilter struct {
	ActionKind string `form:"action_kind"`
	Query      string `form:"q"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

type RequestResponse struct {
	ID             uint64     `json:"id"`
	OwnerID        int64      `json:"owner_id"`
	PostRef        string     `json:"post_ref"`
	ActionKind     string     `json:"action_kind"`
	CostPerAction  int64      `json:"cost_per_action"`
	Quantity       int64      `json:"quantity"`
	CompletedCount int64      `json:"completed_count"`
	Remaining      int64      `json:"remaining"`
	Status         string     `json:"status"`
	CloseReason    string     `json:"close_reason,omitempty"`
	Campaign       bool       `json:"campaign"`
	CreatedAt      time.Time  `json:"created_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

func ToRequestResponse(r *entity.InteractionRequest) RequestResponse {
	return RequestResponse{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		PostRef:        r.PostRef,
		ActionKind:     string(r.ActionKind),
		CostPerAction:  r.CostPerAction,
		Quantity:       r.Quantity,
		CompletedCount: r.CompletedCount,
		Remaining:      r.Remaining(),
		Status:         string(r.Status),
		CloseReason:    r.CloseReason,
		Campaign:       r.Campaign,
		CreatedAt:      r.CreatedAt,
		ClosedAt:       r.ClosedAt,
	}
}

func ToRequestResponses(requests []entity.InteractionRequest) []RequestResponse {
	res := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		res = append(res, ToRequestResponse(&requests[i]))
	}
	return res
}
