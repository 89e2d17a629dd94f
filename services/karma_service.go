// services/karma_service.go
package services

import (
	"fmt"
	"math"
	"time"

	"civic-karma-system/metrics"
	"civic-karma-system/models"
	"civic-karma-system/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Level curve: karma needed to clear the *next* level grows as n^1.2.
// Levels derive from lifetime earned karma — spending never de-levels.
const baseKarmaPerLevel = 100

func karmaForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(baseKarmaPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

func levelFor(totalEarned int64) int {
	level := 1
	remaining := totalEarned
	for remaining >= karmaForNextLevel(level) {
		remaining -= karmaForNextLevel(level)
		level++
	}
	return level
}

type KarmaService struct {
	DB        *gorm.DB
	Campaigns *CampaignService
	Streaks   *StreakService
	Badges    *BadgeService

	statsCache *utils.TTLCache
}

func NewKarmaService(db *gorm.DB, campaigns *CampaignService, streaks *StreakService, badges *BadgeService, statsTTL time.Duration) *KarmaService {
	return &KarmaService{
		DB:         db,
		Campaigns:  campaigns,
		Streaks:    streaks,
		Badges:     badges,
		statsCache: utils.NewTTLCache(statsTTL),
	}
}

// AwardResult is returned to the calling workflow so it can surface both
// the karma earned and any badges that just unlocked.
type AwardResult struct {
	Entry     *models.KarmaEntry  `json:"entry"`
	Stats     *models.UserStats   `json:"stats"`
	Streak    *models.StreakState `json:"streak"`
	NewBadges []models.BadgeType  `json:"newly_earned_badges"`
}

// ensureStatsLocked conditionally creates the user's stats row, then takes
// the row lock that serializes every balance mutation for that user.
func ensureStatsLocked(tx *gorm.DB, userID string) (*models.UserStats, error) {
	seed := models.UserStats{ID: uuid.NewString(), UserID: userID, Level: 1}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var stats models.UserStats
	if err := forUpdate(tx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// AwardKarma appends an earn entry for a completed civic activity.
//
// The multiplier is resolved up front (campaigns are config, reads need no
// lock); the transaction then locks the user's stats row, appends the
// immutable entry with base amount and multiplier in its metadata, and
// updates the materialized balance, counters, level and streak as one unit.
// Badge checks run after commit — a badge or token failure never loses the
// award.
func (s *KarmaService) AwardKarma(userID string, kind models.KarmaKind, baseAmount int64, relatedEntityID *string, description string) (*AwardResult, error) {
	if baseAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !kind.IsActivity() {
		return nil, ErrUnknownKind
	}

	now := time.Now()
	multiplier, campaign, err := s.Campaigns.CurrentMultiplier(kind, now)
	if err != nil {
		return nil, err
	}
	amount := ApplyMultiplier(baseAmount, multiplier)

	meta := models.EntryMetadata{
		"base_amount": baseAmount,
		"multiplier":  multiplier,
	}
	if campaign != nil {
		meta["campaign_id"] = campaign.ID
		meta["campaign_slug"] = campaign.Slug
	}

	result := &AwardResult{}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		stats, err := ensureStatsLocked(tx, userID)
		if err != nil {
			return err
		}

		entry := &models.KarmaEntry{
			ID:              uuid.NewString(),
			UserID:          userID,
			Amount:          amount,
			Kind:            kind,
			Description:     description,
			Metadata:        meta,
			RelatedEntityID: relatedEntityID,
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		stats.Balance += amount
		stats.TotalEarned += amount
		switch kind {
		case models.KindReport:
			stats.TotalReports++
		case models.KindRecycling:
			stats.TotalRecycling++
		case models.KindVolunteering:
			stats.TotalVolunteering++
		case models.KindEcoPurchase:
			stats.TotalEcoPurchases++
		case models.KindTransport:
			stats.TotalTransport++
		}
		stats.Level = levelFor(stats.TotalEarned)
		if err := tx.Save(stats).Error; err != nil {
			return err
		}

		streak, err := s.Streaks.RecordActivity(tx, userID, now)
		if err != nil {
			return err
		}

		result.Entry = entry
		result.Stats = stats
		result.Streak = streak
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit: metrics, badge eligibility, cache invalidation.
	metrics.KarmaAwards.WithLabelValues(string(kind)).Inc()
	s.InvalidateStats(userID)

	newBadges, err := s.Badges.CheckAndAward(userID)
	if err != nil {
		// The award itself is committed; eligibility will be re-checked on
		// the next earn for this user.
		log.Printf("⚠️ Badge check failed for %s: %v", userID, err)
	}
	result.NewBadges = newBadges

	log.Printf("🌱 Karma awarded: %s +%d (%s, base=%d ×%.2f)",
		userID, amount, kind, baseAmount, multiplier)

	return result, nil
}

// AdjustKarma appends a signed compensating entry (admin path). The ledger
// is never edited: reversals and corrections are new facts. Adjustments
// affect the spendable balance only, not lifetime earnings or level.
func (s *KarmaService) AdjustKarma(userID string, delta int64, reason string) (*models.KarmaEntry, error) {
	if delta == 0 {
		return nil, ErrInvalidAmount
	}

	var entry *models.KarmaEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		stats, err := ensureStatsLocked(tx, userID)
		if err != nil {
			return err
		}

		entry = &models.KarmaEntry{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      delta,
			Kind:        models.KindAdjustment,
			Description: reason,
			Metadata:    models.EntryMetadata{"reason": reason},
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		stats.Balance += delta
		return tx.Save(stats).Error
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateStats(userID)
	log.Printf("🛠 Karma adjusted: %s %+d (%s)", userID, delta, reason)
	return entry, nil
}

// BalanceOf returns the authoritative balance: the sum of the user's ledger
// entries. The materialized UserStats.Balance must always reconcile to it.
func (s *KarmaService) BalanceOf(userID string) (int64, error) {
	var balance int64
	err := s.DB.Model(&models.KarmaEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&balance).Error
	return balance, err
}

// StatsView is the aggregate returned to collaborators.
type StatsView struct {
	UserID      string              `json:"user_id"`
	Balance     int64               `json:"balance"`
	TotalEarned int64               `json:"total_earned"`
	Level       int                 `json:"level"`
	Ward        string              `json:"ward"`
	Streak      *models.StreakState `json:"streak"`
	Badges      []BadgeView         `json:"badges"`

	// CachedFor tells callers how stale this view may be.
	CachedFor time.Duration `json:"cached_for_ms,omitempty"`
}

// GetStats serves the display aggregate through a short-TTL read-through
// cache. Every write path for the user invalidates it synchronously; it is
// never consulted for redemption balance checks.
func (s *KarmaService) GetStats(userID string) (*StatsView, error) {
	key := "stats:" + userID
	if cached, age, ok := s.statsCache.Get(key); ok {
		view := cached.(StatsView)
		view.CachedFor = age
		return &view, nil
	}

	var stats models.UserStats
	if err := s.DB.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			stats = models.UserStats{UserID: userID, Level: 1}
		} else {
			return nil, err
		}
	}

	streak, err := s.Streaks.GetStreak(userID)
	if err != nil {
		return nil, err
	}

	badges, err := s.Badges.BadgesOf(userID)
	if err != nil {
		return nil, err
	}

	view := StatsView{
		UserID:      userID,
		Balance:     stats.Balance,
		TotalEarned: stats.TotalEarned,
		Level:       stats.Level,
		Ward:        stats.Ward,
		Streak:      streak,
		Badges:      badges,
	}
	s.statsCache.Set(key, view)
	return &view, nil
}

// InvalidateStats drops the cached view; called on every write for the user.
func (s *KarmaService) InvalidateStats(userID string) {
	s.statsCache.Delete("stats:" + userID)
}

// GetUserHistory returns the user's ledger entries, newest first, paginated.
func (s *KarmaService) GetUserHistory(userID string, page, size int) (map[string]interface{}, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	var total int64
	if err := s.DB.Model(&models.KarmaEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []models.KarmaEntry
	if err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return map[string]interface{}{
		"entries":     entries,
		"page":        page,
		"size":        size,
		"total_items": total,
		"total_pages": totalPages,
	}, nil
}

// SetWard records which ward a user belongs to (mirrored from the profile
// service; leaderboard filters on it).
func (s *KarmaService) SetWard(userID, ward string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		stats, err := ensureStatsLocked(tx, userID)
		if err != nil {
			return err
		}
		if stats.Ward == ward {
			return nil
		}
		stats.Ward = ward
		if err := tx.Save(stats).Error; err != nil {
			return fmt.Errorf("failed to set ward: %w", err)
		}
		return nil
	})
}
