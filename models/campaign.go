package models

import "time"

// Campaign is time-boxed multiplier config. Mutable config, never a fact:
// the resolved multiplier is copied into entry metadata at award time so
// ledger entries stay auditable if a campaign is later edited.
type Campaign struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	Slug       string    `gorm:"uniqueIndex;not null" json:"slug"`
	Multiplier float64   `gorm:"not null" json:"multiplier"` // > 1.0
	StartsAt   time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt     time.Time `gorm:"not null;index" json:"ends_at"`
	CarbonOnly bool      `gorm:"default:false" json:"carbon_only"` // restricts bonus to carbon-related kinds
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Active reports whether the campaign window contains the instant.
// Windows are half-open: [StartsAt, EndsAt).
func (c *Campaign) Active(at time.Time) bool {
	return !at.Before(c.StartsAt) && at.Before(c.EndsAt)
}
