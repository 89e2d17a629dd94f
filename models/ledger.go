package models

import (
	"time"

	"gorm.io/gorm"
)

// KarmaKind enumerates the transaction kinds recorded on the ledger.
type KarmaKind string

const (
	KindReport       KarmaKind = "report"
	KindRecycling    KarmaKind = "recycling"
	KindVolunteering KarmaKind = "volunteering"
	KindEcoPurchase  KarmaKind = "eco_purchase"
	KindTransport    KarmaKind = "transport"
	KindRedemption   KarmaKind = "redemption"
	KindAdjustment   KarmaKind = "adjustment"
)

// ActivityKinds are the earn-side kinds accepted from the civic workflows.
// Redemption and adjustment entries are created internally, never ingested.
var ActivityKinds = []KarmaKind{
	KindReport,
	KindRecycling,
	KindVolunteering,
	KindEcoPurchase,
	KindTransport,
}

func (k KarmaKind) IsActivity() bool {
	for _, a := range ActivityKinds {
		if k == a {
			return true
		}
	}
	return false
}

// CarbonRelated reports whether the kind counts toward carbon-restricted campaigns.
func (k KarmaKind) CarbonRelated() bool {
	switch k {
	case KindRecycling, KindEcoPurchase, KindTransport:
		return true
	}
	return false
}

// EntryMetadata is stored as jsonb on each entry. Always carries
// "base_amount" and "multiplier" for earn entries so the awarded total is
// re-derivable without consulting campaign config.
type EntryMetadata map[string]interface{}

// KarmaEntry is one immutable row of the karma ledger.
// Append-only: no UpdatedAt, no soft delete — corrections are made by
// appending a compensating KindAdjustment entry, never by editing.
type KarmaEntry struct {
	ID              string        `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string        `gorm:"index;not null" json:"user_id"`
	Amount          int64         `gorm:"not null" json:"amount"` // positive = earn, negative = spend
	Kind            KarmaKind     `gorm:"type:varchar(32);not null;index" json:"kind"`
	Description     string        `gorm:"type:text" json:"description"`
	Metadata        EntryMetadata `gorm:"serializer:json;type:jsonb" json:"metadata"`
	RelatedEntityID *string       `gorm:"index" json:"related_entity_id,omitempty"` // e.g. issue or project id
	CreatedAt       time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
}

// UserStats is the materialized per-user projection of the ledger
// (denormalized for performance). Balance is only ever mutated inside the
// same transaction as the ledger append it reflects, under a row lock, so
// it stays reconcilable against SUM(karma_entries.amount).
type UserStats struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`
	Ward   string `gorm:"type:varchar(64);index" json:"ward"`

	Balance     int64 `gorm:"default:0" json:"balance"`
	TotalEarned int64 `gorm:"default:0" json:"total_earned"`
	Level       int   `gorm:"default:1" json:"level"`

	// Activity counters feeding badge thresholds
	TotalReports      int64 `gorm:"default:0" json:"total_reports"`
	TotalRecycling    int64 `gorm:"default:0" json:"total_recycling"`
	TotalVolunteering int64 `gorm:"default:0" json:"total_volunteering"`
	TotalEcoPurchases int64 `gorm:"default:0" json:"total_eco_purchases"`
	TotalTransport    int64 `gorm:"default:0" json:"total_transport"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
