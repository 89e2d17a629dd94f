package models

import (
	"time"
)

// BadgeType: static catalog (seeded at startup, read-only at runtime)
type BadgeType struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string           `gorm:"uniqueIndex;not null" json:"code"` // e.g. "FIRST_STEPS", "GREEN_GUARDIAN"
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	IconURL     string           `gorm:"type:text" json:"icon_url"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"serializer:json;type:jsonb" json:"threshold"`     // e.g. {"total_karma": 500}, {"total_recycling": 25}
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge: awarded instance. The composite unique index is what makes
// awarding exactly-once: the insert itself conflicts on duplicates, so
// concurrent eligibility checks cannot double-award.
type UserBadge struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"user_id"`
	BadgeTypeID string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"badge_type_id"`
	TokenRef    string    `gorm:"type:text" json:"token_ref"` // filled in asynchronously by the issuer worker
	AwardedAt   time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// TokenIssueJob queues a badge-token request for the external issuer.
// Issuance happens outside the award transaction: a karma award must never
// be rolled back because the issuer is down.
type TokenIssueJob struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	UserBadgeID string    `gorm:"index;not null" json:"user_badge_id"`
	BadgeCode   string    `gorm:"not null" json:"badge_code"`
	Attempts    int       `gorm:"default:0" json:"attempts"`
	LastError   string    `gorm:"type:text" json:"last_error"`
	Done        bool      `gorm:"default:false;index" json:"done"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Seed catalog. Thresholds reference UserStats counters and streak fields
// by key; see BadgeService.meetsThreshold.
var BadgeCatalog = []BadgeType{
	{
		Code:        "FIRST_STEPS",
		Name:        "First Steps",
		Description: "Earned your first karma",
		Rarity:      "common",
		Threshold:   map[string]int64{"total_karma": 1},
	},
	{
		Code:        "REPORTER_10",
		Name:        "Neighbourhood Watch",
		Description: "Reported 10 civic issues",
		Rarity:      "common",
		Threshold:   map[string]int64{"total_reports": 10},
	},
	{
		Code:        "RECYCLER_25",
		Name:        "Circular Citizen",
		Description: "Logged 25 recycling drop-offs",
		Rarity:      "rare",
		Threshold:   map[string]int64{"total_recycling": 25},
	},
	{
		Code:        "VOLUNTEER_10",
		Name:        "Helping Hands",
		Description: "Completed 10 volunteering sessions",
		Rarity:      "rare",
		Threshold:   map[string]int64{"total_volunteering": 10},
	},
	{
		Code:        "GREEN_GUARDIAN",
		Name:        "Green Guardian",
		Description: "Earned 5000 lifetime karma",
		Rarity:      "epic",
		Threshold:   map[string]int64{"total_karma": 5000},
	},
	{
		Code:        "STREAK_30",
		Name:        "Unbroken",
		Description: "30 consecutive days of civic activity",
		Rarity:      "epic",
		Threshold:   map[string]int64{"longest_streak": 30},
	},
	{
		Code:        "LEVEL_25",
		Name:        "Pillar of the Ward",
		Description: "Reached level 25",
		Rarity:      "legendary",
		Threshold:   map[string]int64{"level": 25},
	},
}
