package entity

import (
	"time"
)

// PointLog is one ranking accrual. Leaderboards are aggregated from these rows, so the
// ID doubles as the accrual order used for tie-breaking.
type PointLog struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64      `gorm:"not null;index:idx_point_period_user,priority:2" json:"user_id"`
	PeriodKey    string     `gorm:"size:20;not null;index:idx_point_period_user,priority:1" json:"period_key"`
	ActionKind   ActionKind `gorm:"size:20;not null" json:"action_kind"`
	Points       int64      `gorm:"not null" json:"points"`
	CompletionID uint64     `gorm:"index" json:"completion_id"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// RankingPeriod exists only once a period has been closed.
type RankingPeriod struct {
	Key      string    `gorm:"column:period_key;primaryKey;size:20" json:"key"`
	ClosedAt time.Time `gorm:"not null" json:"closed_at"`
}

// RankingSnapshot is the frozen leaderboard of a closed period.
type RankingSnapshot struct {
	PeriodKey     string `gorm:"primaryKey;size:20;autoIncrement:false" json:"period_key"`
	Position      int    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	UserID        int64  `gorm:"not null" json:"user_id"`
	Points        int64  `gorm:"not null" json:"points"`
	LastAccrualID uint64 `gorm:"not null" json:"-"`
}
