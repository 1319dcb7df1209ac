package dto

import (
	"time"

	"anoa.com/coinexchange/internal/entity"
)

type CreateTicketRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type TicketResponse struct {
	ID        uint64     `json:"id"`
	UserID    int64      `json:"user_id"`
	Message   string     `json:"message"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func ToTicketResponse(t *entity.Ticket) TicketResponse {
	return TicketResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Message:   t.Message,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		ClosedAt:  t.ClosedAt,
	}
}

func ToTicketResponses(tickets []entity.Ticket) []TicketResponse {
	res := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		res = append(res, ToTicketResponse(&tickets[i]))
	}
	return res
}
