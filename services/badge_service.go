// services/badge_service.go
package services

import (
	"civic-karma-system/metrics"
	"civic-karma-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedCatalog inserts the badge catalog, skipping codes that already exist.
// Badges are configuration data; runtime code only ever reads them.
func (s *BadgeService) SeedCatalog() error {
	for _, b := range models.BadgeCatalog {
		b.ID = uuid.NewString()
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&b).Error; err != nil {
			return err
		}
	}
	return nil
}

// CheckAndAward evaluates every catalog badge against the user's current
// aggregate stats and awards each qualifying badge exactly once.
//
// The award is a conditional insert: the (user, badge) unique index rejects
// duplicates, so two concurrent checks for the same user cannot both win —
// no prior existence query is trusted. Token issuance is queued for the
// worker, never performed inline.
func (s *BadgeService) CheckAndAward(userID string) ([]models.BadgeType, error) {
	var stats models.UserStats
	if err := s.DB.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // nothing earned yet, nothing to evaluate
		}
		return nil, err
	}

	var streak models.StreakState
	if err := s.DB.Where("user_id = ?", userID).First(&streak).Error; err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var catalog []models.BadgeType
	if err := s.DB.Find(&catalog).Error; err != nil {
		return nil, err
	}

	var awarded []models.BadgeType
	for _, badge := range catalog {
		if !meetsThreshold(&stats, &streak, badge.Threshold) {
			continue
		}

		userBadge := models.UserBadge{
			ID:          uuid.NewString(),
			UserID:      userID,
			BadgeTypeID: badge.ID,
		}
		res := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_type_id"}},
			DoNothing: true,
		}).Create(&userBadge)
		if res.Error != nil {
			return awarded, res.Error
		}
		if res.RowsAffected == 0 {
			continue // already awarded
		}

		awarded = append(awarded, badge)
		metrics.BadgeAwards.WithLabelValues(badge.Rarity).Inc()
		log.Printf("🎖️ Badge awarded: %s → %s", badge.Name, userID)

		// Queue the token request; the issuer may be down independently of
		// the ledger and must not affect the award.
		job := models.TokenIssueJob{
			ID:          uuid.NewString(),
			UserID:      userID,
			UserBadgeID: userBadge.ID,
			BadgeCode:   badge.Code,
		}
		if err := s.DB.Create(&job).Error; err != nil {
			log.Printf("⚠️ Failed to queue token issuance for badge %s / %s: %v", badge.Code, userID, err)
		}
	}

	return awarded, nil
}

func meetsThreshold(stats *models.UserStats, streak *models.StreakState, req map[string]int64) bool {
	if len(req) == 0 {
		return false
	}
	for key, required := range req {
		switch key {
		case "total_karma":
			if stats.TotalEarned < required {
				return false
			}
		case "total_reports":
			if stats.TotalReports < required {
				return false
			}
		case "total_recycling":
			if stats.TotalRecycling < required {
				return false
			}
		case "total_volunteering":
			if stats.TotalVolunteering < required {
				return false
			}
		case "total_eco_purchases":
			if stats.TotalEcoPurchases < required {
				return false
			}
		case "total_transport":
			if stats.TotalTransport < required {
				return false
			}
		case "level":
			if int64(stats.Level) < required {
				return false
			}
		case "current_streak":
			if int64(streak.CurrentStreak) < required {
				return false
			}
		case "longest_streak":
			if int64(streak.LongestStreak) < required {
				return false
			}
		default:
			return false // unknown predicate key: never award on it
		}
	}
	return true
}

// BadgeView joins an awarded badge with its catalog entry.
type BadgeView struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	Rarity      string `json:"rarity"`
	TokenRef    string `json:"token_ref,omitempty"`
	AwardedAt   string `json:"awarded_at"`
}

// BadgesOf lists the user's earned badges with catalog details.
func (s *BadgeService) BadgesOf(userID string) ([]BadgeView, error) {
	var views []BadgeView
	err := s.DB.Raw(`
		SELECT ub.id, bt.code, bt.name, bt.description, bt.icon_url, bt.rarity,
		       ub.token_ref, ub.awarded_at
		FROM user_badges ub
		INNER JOIN badge_types bt ON bt.id = ub.badge_type_id
		WHERE ub.user_id = ?
		ORDER BY ub.awarded_at DESC
	`, userID).Scan(&views).Error
	return views, err
}

// Catalog returns every badge type in catalog order.
func (s *BadgeService) Catalog() ([]models.BadgeType, error) {
	var catalog []models.BadgeType
	err := s.DB.Order("created_at ASC").Find(&catalog).Error
	return catalog, err
}
