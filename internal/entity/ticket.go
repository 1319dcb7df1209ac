package entity

import "time"

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// Ticket is a support message from a user to the admins.
type Ticket struct {
	ID         uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64        `gorm:"not null;index" json:"user_id"`
	Message    string       `gorm:"type:text;not null" json:"message"`
	Status     TicketStatus `gorm:"size:12;not null;index" json:"status"`
	ReviewerID *int64       `json:"reviewer_id,omitempty"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
	ClosedAt   *time.Time   `json:"closed_at,omitempty"`
}
