package services_test

import (
	"sync"
	"testing"
	"time"

	"civic-karma-system/models"
	"civic-karma-system/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// EXACTLY-ONCE AWARDING
// =============================================================================

func TestCheckAndAward_AwardsQualifyingBadgeOnce(t *testing.T) {
	// GIVEN: a seeded catalog and a user clearing the FIRST_STEPS threshold
	// WHEN: eligibility is checked twice in a row
	// THEN: the badge is awarded exactly once

	e := newTestEngine(t)
	require.NoError(t, e.badges.SeedCatalog())

	earn(t, e, "user-1", models.KindReport, 10)

	first, err := e.badges.CheckAndAward("user-1")
	require.NoError(t, err)
	// AwardKarma already ran a post-commit check, so the repeat call here
	// must find nothing new either way.
	second, err := e.badges.CheckAndAward("user-1")
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Empty(t, first)

	var count int64
	require.NoError(t, e.db.Model(&models.UserBadge{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckAndAward_ConcurrentChecksNeverDoubleAward(t *testing.T) {
	// The award is a conditional insert on (user, badge), not check-then-act.

	e := newTestEngine(t)
	require.NoError(t, e.db.Create(&models.BadgeType{
		ID:        newID(),
		Code:      "RECYCLER_25",
		Name:      "Circular Citizen",
		Rarity:    "rare",
		Threshold: map[string]int64{"total_recycling": 25},
	}).Error)

	for i := 0; i < 25; i++ {
		earn(t, e, "user-1", models.KindRecycling, 5)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.badges.CheckAndAward("user-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, e.db.Model(&models.UserBadge{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckAndAward_ThresholdNotMetNoAward(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.db.Create(&models.BadgeType{
		ID:        newID(),
		Code:      "VOLUNTEER_10",
		Name:      "Helping Hands",
		Rarity:    "rare",
		Threshold: map[string]int64{"total_volunteering": 10},
	}).Error)

	earn(t, e, "user-1", models.KindVolunteering, 10)

	awarded, err := e.badges.CheckAndAward("user-1")
	require.NoError(t, err)
	assert.Empty(t, awarded, "one session of ten required")
}

func TestCheckAndAward_StreakThreshold(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.db.Create(&models.BadgeType{
		ID:        newID(),
		Code:      "STREAK_3",
		Name:      "Warming Up",
		Rarity:    "common",
		Threshold: map[string]int64{"longest_streak": 3},
	}).Error)

	earn(t, e, "user-1", models.KindReport, 10)
	awarded, err := e.badges.CheckAndAward("user-1")
	require.NoError(t, err)
	assert.Empty(t, awarded)

	// three consecutive days, after a gap from today's earn
	base := services.Day(time.Now()).AddDate(0, 0, 2)
	for i := 0; i < 3; i++ {
		_, err := e.streaks.RecordActivity(e.db, "user-1", base.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	awarded, err = e.badges.CheckAndAward("user-1")
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, "STREAK_3", awarded[0].Code)
}

// =============================================================================
// TOKEN ISSUANCE DECOUPLING
// =============================================================================

func TestCheckAndAward_QueuesTokenJobWithoutBlockingAward(t *testing.T) {
	// Token issuance is async: the award lands immediately, the job waits
	// for the worker.

	e := newTestEngine(t)
	require.NoError(t, e.db.Create(&models.BadgeType{
		ID:        newID(),
		Code:      "FIRST_STEPS",
		Name:      "First Steps",
		Rarity:    "common",
		Threshold: map[string]int64{"total_karma": 1},
	}).Error)

	result, err := e.karma.AwardKarma("user-1", models.KindTransport, 10, nil, "")
	require.NoError(t, err)
	require.Len(t, result.NewBadges, 1)

	var jobs []models.TokenIssueJob
	require.NoError(t, e.db.Where("user_id = ?", "user-1").Find(&jobs).Error)
	require.Len(t, jobs, 1)
	assert.Equal(t, "FIRST_STEPS", jobs[0].BadgeCode)
	assert.False(t, jobs[0].Done)

	// the awarded badge exists with no token yet
	badges, err := e.badges.BadgesOf("user-1")
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Empty(t, badges[0].TokenRef)
}

func TestSeedCatalog_IsIdempotent(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.badges.SeedCatalog())
	require.NoError(t, e.badges.SeedCatalog())

	var count int64
	require.NoError(t, e.db.Model(&models.BadgeType{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.BadgeCatalog)), count)
}
