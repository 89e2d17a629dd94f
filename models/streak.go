package models

import "time"

// StreakState tracks consecutive-activity-day counters, one row per user.
// Mutated only by StreakService, at most once per calendar day.
type StreakState struct {
	ID               string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID           string     `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentStreak    int        `gorm:"default:0" json:"current_streak"`
	LongestStreak    int        `gorm:"default:0" json:"longest_streak"`
	LastActivityDate *time.Time `gorm:"type:date" json:"last_activity_date,omitempty"`
	Multiplier       float64    `gorm:"default:1.0" json:"multiplier"` // informational streak bonus tier

	Timestamps
}
