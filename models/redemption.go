package models

import "time"

// RedemptionStatus indicates where a redemption sits in its lifecycle.
// The karma spend and inventory decrement are fixed at creation; status
// transitions never touch the ledger.
type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusConfirmed RedemptionStatus = "confirmed"
	RedemptionStatusExpired   RedemptionStatus = "expired"
)

// Redemption records a karma spend at a partner shop. Created atomically
// with its debit KarmaEntry and the offer's inventory decrement.
type Redemption struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string           `gorm:"index;not null" json:"user_id"`
	PartnerID   string           `gorm:"index;not null" json:"partner_id"`
	OfferID     string           `gorm:"index;not null" json:"offer_id"`
	KarmaSpent  int64            `gorm:"not null" json:"karma_spent"`
	Code        string           `gorm:"uniqueIndex;not null" json:"code"`
	Status      RedemptionStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ExpiresAt   time.Time        `gorm:"not null;index" json:"expires_at"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}
