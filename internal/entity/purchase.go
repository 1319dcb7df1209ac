package entity

import "time"

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseFulfilled PurchaseStatus = "fulfilled"
	PurchaseRejected  PurchaseStatus = "rejected"
)

// Purchase is an offline coin package order. Payment happens outside the system;
// an admin fulfils or rejects it.
type Purchase struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64          `gorm:"not null;index" json:"user_id"`
	Coins      int64          `gorm:"not null" json:"coins"`
	PriceCents int64          `gorm:"not null" json:"price_cents"`
	Name       string         `gorm:"size:120;not null" json:"name"`
	Phone      string         `gorm:"size:40;not null" json:"phone"`
	Status     PurchaseStatus `gorm:"size:12;not null;index" json:"status"`
	ReviewerID *int64         `json:"reviewer_id,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}
