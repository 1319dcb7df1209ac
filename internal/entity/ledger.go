package entity

import "time"

type LedgerReason string

const (
	ReasonWelcome          LedgerReason = "welcome"
	ReasonRequestFunding   LedgerReason = "request_funding"
	ReasonRequestRefund    LedgerReason = "request_refund"
	ReasonCompletionPayout LedgerReason = "completion_payout"
	ReasonAdminAdjustment  LedgerReason = "admin_adjustment"
	ReasonPurchase         LedgerReason = "purchase"
)

// LedgerEntry is an append-only audit row. Seq is the monotonically increasing
// sequence number of the mutation.
type LedgerEntry struct {
	Seq          uint64       `gorm:"primaryKey;autoIncrement" json:"seq"`
	UserID       int64        `gorm:"not null;index" json:"user_id"`
	Delta        int64        `gorm:"not null" json:"delta"`
	BalanceAfter int64        `gorm:"not null" json:"balance_after"`
	Reason       LedgerReason `gorm:"size:40;not null" json:"reason"`
	Reference    string       `gorm:"size:64" json:"reference,omitempty"`
	AdminID      *int64       `json:"admin_id,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}
