package services_test

import (
	"fmt"
	"testing"
	"time"

	"civic-karma-system/models"
	"civic-karma-system/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestDB opens an isolated in-memory database. A single connection is
// enforced so concurrent test goroutines serialize the same way Postgres
// row locks serialize them in production.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.KarmaEntry{},
		&models.UserStats{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.TokenIssueJob{},
		&models.StreakState{},
		&models.Campaign{},
		&models.Partner{},
		&models.PartnerOffer{},
		&models.Redemption{},
		&models.UserMirror{},
	))
	return db
}

type testEngine struct {
	db          *gorm.DB
	campaigns   *services.CampaignService
	streaks     *services.StreakService
	badges      *services.BadgeService
	karma       *services.KarmaService
	redemptions *services.RedemptionService
	leaderboard *services.LeaderboardService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	db := newTestDB(t)

	campaigns := services.NewCampaignService(db)
	streaks := services.NewStreakService(db)
	badges := services.NewBadgeService(db)
	karma := services.NewKarmaService(db, campaigns, streaks, badges, 100*time.Millisecond)
	redemptions := services.NewRedemptionService(db, karma, 72*time.Hour, 3, time.Millisecond)
	leaderboard := services.NewLeaderboardService(db, 50*time.Millisecond)

	return &testEngine{
		db:          db,
		campaigns:   campaigns,
		streaks:     streaks,
		badges:      badges,
		karma:       karma,
		redemptions: redemptions,
		leaderboard: leaderboard,
	}
}

// seedPartner creates an active partner with one offer tier.
func seedPartner(t *testing.T, db *gorm.DB, minKarma, maxKarma int64, stock *int64) *models.Partner {
	t.Helper()

	partner := &models.Partner{
		ID:     newID(),
		Name:   "Green Mart",
		Slug:   "green-mart-" + newID()[:8],
		Ward:   "ward-5",
		Active: true,
	}
	require.NoError(t, db.Create(partner).Error)

	offer := &models.PartnerOffer{
		ID:                newID(),
		PartnerID:         partner.ID,
		Title:             "Discount voucher",
		MinKarma:          minKarma,
		MaxKarma:          maxKarma,
		QuantityAvailable: stock,
		Active:            true,
	}
	require.NoError(t, db.Create(offer).Error)
	return partner
}

func int64Ptr(v int64) *int64 { return &v }

func userN(n int) string { return fmt.Sprintf("user-%d", n) }

func newID() string { return uuid.NewString() }

// earn gives a user karma through the real award path.
func earn(t *testing.T, e *testEngine, userID string, kind models.KarmaKind, base int64) {
	t.Helper()
	_, err := e.karma.AwardKarma(userID, kind, base, nil, "")
	require.NoError(t, err)
}
