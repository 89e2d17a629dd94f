// services/streak_service.go
package services

import (
	"time"

	"civic-karma-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StreakService struct {
	DB *gorm.DB
}

func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{DB: db}
}

// streak bonus tiers (informational, surfaced in stats)
func streakMultiplier(current int) float64 {
	switch {
	case current >= 30:
		return 1.5
	case current >= 7:
		return 1.25
	default:
		return 1.0
	}
}

// Day truncates to a calendar date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordActivity applies the consecutive-day rules inside the caller's
// transaction:
//   - same day as last activity: no-op (idempotent)
//   - exactly one day after: increment
//   - more than one day after: reset to 1
//   - earlier than last activity (backfill/out-of-order): no-op
func (s *StreakService) RecordActivity(tx *gorm.DB, userID string, activityDate time.Time) (*models.StreakState, error) {
	day := Day(activityDate)

	// Conditional create, then lock the row for this user
	seed := models.StreakState{ID: uuid.NewString(), UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var state models.StreakState
	if err := forUpdate(tx).Where("user_id = ?", userID).First(&state).Error; err != nil {
		return nil, err
	}

	switch {
	case state.LastActivityDate == nil:
		state.CurrentStreak = 1
	case day.Equal(Day(*state.LastActivityDate)):
		return &state, nil // already counted today
	case day.Before(Day(*state.LastActivityDate)):
		return &state, nil // out-of-order date, leave the streak alone
	case day.Equal(Day(*state.LastActivityDate).AddDate(0, 0, 1)):
		state.CurrentStreak++
	default:
		state.CurrentStreak = 1 // gap: streak broken
	}

	if state.CurrentStreak > state.LongestStreak {
		state.LongestStreak = state.CurrentStreak
	}
	state.LastActivityDate = &day
	state.Multiplier = streakMultiplier(state.CurrentStreak)

	if err := tx.Save(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// GetStreak returns the user's streak state, zero-valued if none yet.
func (s *StreakService) GetStreak(userID string) (*models.StreakState, error) {
	var state models.StreakState
	err := s.DB.Where("user_id = ?", userID).First(&state).Error
	if err == gorm.ErrRecordNotFound {
		return &models.StreakState{UserID: userID, Multiplier: 1.0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}
