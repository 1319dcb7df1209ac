package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationState string

const (
	StateNotRequired VerificationState = "not_required"
	StatePending     VerificationState = "pending"
	StateApproved    VerificationState = "approved"
	StateRejected    VerificationState = "rejected"
)

func (s VerificationState) Terminal() bool {
	return s == StateNotRequired || s == StateApproved || s == StateRejected
}

// Completion records one performer's claim on one request. The unique index makes
// a second claim by the same performer impossible at the storage level.
type Completion struct {
	ID             uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	PerformerID    int64             `gorm:"not null;uniqueIndex:idx_completion_performer_request,priority:1" json:"performer_id"`
	RequestID      uint64            `gorm:"not null;uniqueIndex:idx_completion_performer_request,priority:2;index" json:"request_id"`
	ProfileSlot    ProfileSlot       `gorm:"not null" json:"profile_slot"`
	ActionKind     ActionKind        `gorm:"size:20;not null" json:"action_kind"`
	CommentText    string            `gorm:"type:text" json:"comment_text,omitempty"`
	State          VerificationState `gorm:"size:16;not null;index" json:"state"`
	Payable        bool              `gorm:"not null" json:"payable"`
	AmountCredited int64             `gorm:"not null;default:0" json:"amount_credited"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
}

// Evidence is the screenshot record attached to a completion of an evidence-requiring action.
type Evidence struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	CompletionID uint64            `gorm:"not null;uniqueIndex" json:"completion_id"`
	Completion   *Completion       `gorm:"foreignKey:CompletionID;constraint:OnDelete:CASCADE" json:"-"`
	StorageRef   string            `gorm:"type:text" json:"storage_ref,omitempty"`
	State        VerificationState `gorm:"size:16;not null;index" json:"state"`
	ReviewerID   *int64            `json:"reviewer_id,omitempty"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Evidence) TableName() string {
	return "evidence"
}

func (e *Evidence) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID, err = uuid.NewV7()
	}
	return
}
