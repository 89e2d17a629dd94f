package models

// Partner is a shop that accepts karma redemptions.
type Partner struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	Name   string `gorm:"not null" json:"name"`
	Slug   string `gorm:"uniqueIndex;not null" json:"slug"`
	Ward   string `gorm:"type:varchar(64);index" json:"ward"`
	Active bool   `gorm:"default:true" json:"active"`

	Timestamps
}

// PartnerOffer is one redemption tier: a karma-amount band and a stock
// counter. QuantityAvailable nil means unlimited; a finite counter is only
// ever decremented inside the redemption transaction, guarded so it can
// never go negative.
type PartnerOffer struct {
	ID                string `gorm:"primaryKey;type:uuid" json:"id"`
	PartnerID         string `gorm:"index;not null" json:"partner_id"`
	Title             string `gorm:"not null" json:"title"`
	MinKarma          int64  `gorm:"not null" json:"min_karma"`
	MaxKarma          int64  `gorm:"not null" json:"max_karma"`
	QuantityAvailable *int64 `json:"quantity_available,omitempty"`
	Active            bool   `gorm:"default:true" json:"active"`

	Timestamps
}

// Matches reports whether the spent amount falls inside this tier's band.
func (o *PartnerOffer) Matches(karmaAmount int64) bool {
	return karmaAmount >= o.MinKarma && karmaAmount <= o.MaxKarma
}
