package models

import (
	"time"
)

// UserMirror mirrors display profiles from the auth/profile service.
// Synced by workers.PollProfiles; used to decorate leaderboard rows.
// Table name: user_mirrors
type UserMirror struct {
	ID             string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string    `gorm:"type:varchar(128);not null" json:"username"`
	Ward           string    `gorm:"type:varchar(64);index" json:"ward"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	LastSyncedAt   time.Time `gorm:"not null" json:"last_synced_at"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}
