package entity

import (
	"time"
)

// User is keyed by the chat platform's numeric id. Balance only moves through the ledger.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Balance      int64     `gorm:"not null;default:0" json:"balance"`
	Active       bool      `gorm:"not null" json:"active"`
	Profiles     []Profile `gorm:"foreignKey:UserID" json:"profiles,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

type ProfileSlot int

const (
	SlotPrimary    ProfileSlot = 0
	SlotSecondary1 ProfileSlot = 1
	SlotSecondary2 ProfileSlot = 2
)

func (s ProfileSlot) IsSecondary() bool {
	return s == SlotSecondary1 || s == SlotSecondary2
}

func (s ProfileSlot) Valid() bool {
	return s == SlotPrimary || s.IsSecondary()
}

// Profile is one registered social handle. Slot 0 is the primary profile.
type Profile struct {
	UserID     int64       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Slot       ProfileSlot `gorm:"primaryKey;autoIncrement:false" json:"slot"`
	Handle     string      `gorm:"size:30;not null" json:"handle"`
	Verified   bool        `gorm:"not null" json:"verified"`
	VerifiedBy *int64      `json:"verified_by,omitempty"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
