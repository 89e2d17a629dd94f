package services

import "errors"

// Domain errors. Handlers map these to 4xx responses; anything else is a
// storage failure and surfaces as 500.
var (
	// Validation — rejected before any write
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrUnknownKind   = errors.New("unknown activity kind")

	// Redemption business rules — abort the transaction cleanly
	ErrPartnerNotFound     = errors.New("partner not found")
	ErrPartnerInactive     = errors.New("partner is not active")
	ErrNoMatchingOffer     = errors.New("no offer tier matches this karma amount")
	ErrInsufficientBalance = errors.New("insufficient karma balance")
	ErrOutOfStock          = errors.New("offer is out of stock")

	// Redemption lifecycle
	ErrRedemptionNotFound   = errors.New("redemption not found")
	ErrRedemptionNotPending = errors.New("redemption is not pending")
	ErrRedemptionExpired    = errors.New("redemption has expired")
)

// DomainError reports whether err is a business-rule failure rather than a
// storage or infrastructure fault.
func DomainError(err error) bool {
	for _, e := range []error{
		ErrInvalidAmount, ErrUnknownKind,
		ErrPartnerNotFound, ErrPartnerInactive, ErrNoMatchingOffer,
		ErrInsufficientBalance, ErrOutOfStock,
		ErrRedemptionNotFound, ErrRedemptionNotPending, ErrRedemptionExpired,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
