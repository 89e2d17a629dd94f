// services/redemption_service.go
package services

import (
	"strings"
	"time"

	"civic-karma-system/metrics"
	"civic-karma-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RedemptionService struct {
	DB    *gorm.DB
	Karma *KarmaService

	ExpiryWindow time.Duration // pending redemptions expire after this
	MaxRetries   int           // bounded retries on lock/serialization conflicts
	RetryBackoff time.Duration
}

func NewRedemptionService(db *gorm.DB, karma *KarmaService, expiryWindow time.Duration, maxRetries int, retryBackoff time.Duration) *RedemptionService {
	return &RedemptionService{
		DB:           db,
		Karma:        karma,
		ExpiryWindow: expiryWindow,
		MaxRetries:   maxRetries,
		RetryBackoff: retryBackoff,
	}
}

func generateRedemptionCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CK-" + strings.ToUpper(raw[:10])
}

// retryableTxError matches transient conflicts worth retrying; domain
// errors and plain storage failures are not.
func retryableTxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "lock timeout")
}

// Redeem spends karma at a partner shop as one all-or-nothing unit:
//
//	(a) lock the user's balance row, then the offer's inventory row —
//	    always in that order, everywhere, so redeemers cannot deadlock
//	(b) re-verify balance and stock under those locks (never a cache)
//	(c) append the debit ledger entry
//	(d) decrement finite stock with a guarded UPDATE that cannot go below zero
//	(e) insert the redemption with a fresh unique code
//
// Any failure rolls back every step. Transient lock conflicts are retried a
// bounded number of times with backoff before surfacing.
func (s *RedemptionService) Redeem(userID, partnerID string, karmaAmount int64) (*models.Redemption, error) {
	start := time.Now()
	result := "failed"
	defer func() {
		metrics.RecordRedeemDuration(result, time.Since(start).Seconds())
	}()

	if karmaAmount <= 0 {
		result = "invalid"
		return nil, ErrInvalidAmount
	}

	var redemption *models.Redemption
	var err error
	for attempt := 0; ; attempt++ {
		redemption, err = s.redeemOnce(userID, partnerID, karmaAmount)
		if err == nil {
			break
		}
		if DomainError(err) || !retryableTxError(err) || attempt >= s.MaxRetries {
			result = resultLabel(err)
			return nil, err
		}
		log.Printf("🔁 Redemption conflict for %s (attempt %d): %v", userID, attempt+1, err)
		time.Sleep(s.RetryBackoff * time.Duration(attempt+1))
	}

	result = "success"
	s.Karma.InvalidateStats(userID)
	log.Printf("🎟️ Redemption %s: user %s spent %d at partner %s", redemption.Code, userID, karmaAmount, partnerID)
	return redemption, nil
}

func resultLabel(err error) string {
	switch err {
	case ErrInsufficientBalance:
		return "insufficient_funds"
	case ErrOutOfStock:
		return "out_of_stock"
	case ErrPartnerNotFound, ErrPartnerInactive, ErrNoMatchingOffer:
		return "rejected"
	default:
		return "failed"
	}
}

func (s *RedemptionService) redeemOnce(userID, partnerID string, karmaAmount int64) (*models.Redemption, error) {
	var redemption *models.Redemption

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var partner models.Partner
		if err := tx.Where("id = ?", partnerID).First(&partner).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrPartnerNotFound
			}
			return err
		}
		if !partner.Active {
			return ErrPartnerInactive
		}

		// Lock order: balance row first, inventory row second.
		stats, err := ensureStatsLocked(tx, userID)
		if err != nil {
			return err
		}

		var offer models.PartnerOffer
		if err := forUpdate(tx).
			Where("partner_id = ? AND active = ? AND min_karma <= ? AND max_karma >= ?",
				partnerID, true, karmaAmount, karmaAmount).
			Order("min_karma ASC").
			First(&offer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNoMatchingOffer
			}
			return err
		}

		// Authoritative, lock-consistent checks
		if stats.Balance < karmaAmount {
			return ErrInsufficientBalance
		}
		if offer.QuantityAvailable != nil {
			if *offer.QuantityAvailable <= 0 {
				return ErrOutOfStock
			}
			// Guarded decrement: even if another writer slipped past the
			// lock (sqlite in tests), stock can never go negative.
			res := tx.Model(&models.PartnerOffer{}).
				Where("id = ? AND quantity_available > 0", offer.ID).
				UpdateColumn("quantity_available", gorm.Expr("quantity_available - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrOutOfStock
			}
		}

		code := generateRedemptionCode()
		entry := &models.KarmaEntry{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      -karmaAmount,
			Kind:        models.KindRedemption,
			Description: "Redeemed at " + partner.Name,
			Metadata: models.EntryMetadata{
				"partner_id":      partnerID,
				"offer_id":        offer.ID,
				"redemption_code": code,
			},
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		stats.Balance -= karmaAmount
		if err := tx.Save(stats).Error; err != nil {
			return err
		}

		redemption = &models.Redemption{
			ID:         uuid.NewString(),
			UserID:     userID,
			PartnerID:  partnerID,
			OfferID:    offer.ID,
			KarmaSpent: karmaAmount,
			Code:       code,
			Status:     models.RedemptionStatusPending,
			ExpiresAt:  time.Now().Add(s.ExpiryWindow),
		}
		return tx.Create(redemption).Error
	})
	if err != nil {
		return nil, err
	}
	return redemption, nil
}

// Confirm transitions a pending redemption to confirmed (partner scans the
// code at pickup). Spend and inventory effects stay fixed either way.
func (s *RedemptionService) Confirm(code string) (*models.Redemption, error) {
	var redemption models.Redemption
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("code = ?", code).First(&redemption).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrRedemptionNotFound
			}
			return err
		}
		if redemption.Status != models.RedemptionStatusPending {
			return ErrRedemptionNotPending
		}
		if time.Now().After(redemption.ExpiresAt) {
			redemption.Status = models.RedemptionStatusExpired
			if err := tx.Save(&redemption).Error; err != nil {
				return err
			}
			return ErrRedemptionExpired
		}

		now := time.Now()
		redemption.Status = models.RedemptionStatusConfirmed
		redemption.ConfirmedAt = &now
		return tx.Save(&redemption).Error
	})
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// ExpireOverdue marks pending redemptions past their window as expired.
// Run periodically by the maintenance scheduler.
func (s *RedemptionService) ExpireOverdue() (int64, error) {
	res := s.DB.Model(&models.Redemption{}).
		Where("status = ? AND expires_at <= ?", models.RedemptionStatusPending, time.Now()).
		Update("status", models.RedemptionStatusExpired)
	return res.RowsAffected, res.Error
}

// RedemptionsOf lists a user's redemptions, newest first.
func (s *RedemptionService) RedemptionsOf(userID string, limit int) ([]models.Redemption, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var redemptions []models.Redemption
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&redemptions).Error
	return redemptions, err
}
