package entity

import (
	"strings"
	"time"
)

type ActionKind string

const (
	ActionLike       ActionKind = "like"
	ActionFollow     ActionKind = "follow"
	ActionComment    ActionKind = "comment"
	ActionStoryShare ActionKind = "story_share"
	ActionReelView   ActionKind = "reel_view"
	ActionSave       ActionKind = "save"
	ActionDMSend     ActionKind = "dm_send"
)

// ActionKinds lists every supported kind in display order.
var ActionKinds = []ActionKind{
	ActionLike,
	ActionFollow,
	ActionComment,
	ActionStoryShare,
	ActionReelView,
	ActionSave,
	ActionDMSend,
}

func ParseActionKind(s string) (ActionKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for _, k := range ActionKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

type RequestStatus string

const (
	RequestOpen   RequestStatus = "open"
	RequestClosed RequestStatus = "closed"
)

const (
	CloseFulfilled = "fulfilled"
	CloseCancelled = "cancelled"
)

// InteractionRequest is a standing offer to pay for Quantity actions on PostRef.
type InteractionRequest struct {
	ID             uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID        int64         `gorm:"not null;index" json:"owner_id"`
	PostRef        string        `gorm:"size:255;not null" json:"post_ref"`
	ActionKind     ActionKind    `gorm:"size:20;not null;index:idx_requests_status_kind,priority:2" json:"action_kind"`
	CostPerAction  int64         `gorm:"not null" json:"cost_per_action"`
	Quantity       int64         `gorm:"not null" json:"quantity"`
	CompletedCount int64         `gorm:"not null;default:0" json:"completed_count"`
	Status         RequestStatus `gorm:"size:10;not null;index:idx_requests_status_kind,priority:1" json:"status"`
	CloseReason    string        `gorm:"size:20" json:"close_reason,omitempty"`
	Funded         bool          `gorm:"not null" json:"funded"`
	Campaign       bool          `gorm:"not null" json:"campaign"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	ClosedAt       *time.Time    `json:"closed_at,omitempty"`
}

func (r *InteractionRequest) IsOpen() bool {
	return r.Status == RequestOpen && r.CompletedCount < r.Quantity
}

func (r *InteractionRequest) Remaining() int64 {
	if r.CompletedCount >= r.Quantity {
		return 0
	}
	return r.Quantity - r.CompletedCount
}

func (InteractionRequest) TableName() string {
	return "interaction_requests"
}
