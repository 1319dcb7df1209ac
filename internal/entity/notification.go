package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationCompletionPaid   = "completion_paid"
	NotificationEvidenceApproved = "evidence_approved"
	NotificationEvidenceRejected = "evidence_rejected"
	NotificationRequestFulfilled = "request_fulfilled"
	NotificationProfileVerified  = "profile_verified"
	NotificationPurchaseResolved = "purchase_resolved"
	NotificationBalanceAdjusted  = "balance_adjusted"
	NotificationEvidencePending  = "evidence_pending"
	NotificationPurchasePending  = "purchase_pending"
	NotificationPeriodClosed     = "period_closed"
	NotificationTicketOpened     = "ticket_opened"
	NotificationTicketClosed     = "ticket_closed"
	NotificationBroadcast        = "broadcast"
)

type Notification struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     int64     `gorm:"not null;index" json:"user_id"`
	Type       string    `gorm:"size:40;not null" json:"type"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	EntityType string    `gorm:"size:40" json:"entity_type,omitempty"`
	EntityID   string    `gorm:"size:64" json:"entity_id,omitempty"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
