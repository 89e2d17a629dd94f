package workers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civic-karma-system/models"
	"civic-karma-system/services"
	"civic-karma-system/workers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSyncTestDB(t *testing.T) *gorm.DB {
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
		&models.UserMirror{},
	))
	return db
}

func newSyncKarmaService(db *gorm.DB) *services.KarmaService {
	return services.NewKarmaService(db,
		services.NewCampaignService(db),
		services.NewStreakService(db),
		services.NewBadgeService(db),
		100*time.Millisecond)
}

func profileServer(t *testing.T, token string, profiles []models.UserMirror) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, token, r.Header.Get("X-Service-Token"))
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"profiles": profiles})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSyncChangedProfiles_PropagatesWardToStats(t *testing.T) {
	// GIVEN: a user with earned karma and a profile change carrying a ward
	// WHEN: the sync runs
	// THEN: the mirror row lands AND the ward reaches the stats row the
	// leaderboard filters on

	db := newSyncTestDB(t)
	karma := newSyncKarmaService(db)
	leaderboard := services.NewLeaderboardService(db, 50*time.Millisecond)

	_, err := karma.AwardKarma("user-a", models.KindReport, 100, nil, "")
	require.NoError(t, err)

	server := profileServer(t, "secret", []models.UserMirror{
		{ID: uuid.NewString(), ExternalUserID: "user-a", Username: "greta", Ward: "ward-5", IsActive: true},
	})

	client := workers.NewProfileSyncClient(db, karma, server.URL, "secret")
	synced, err := client.SyncChangedProfiles(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	var stats models.UserStats
	require.NoError(t, db.Where("user_id = ?", "user-a").First(&stats).Error)
	assert.Equal(t, "ward-5", stats.Ward)

	page, err := leaderboard.TopN(10, "ward-5")
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "user-a", page.Entries[0].UserID)
	assert.Equal(t, "greta", page.Entries[0].Username)
}

func TestSyncChangedProfiles_SeedsStatsBeforeFirstEarn(t *testing.T) {
	// A profile can arrive before the user ever earns; the ward must stick
	// to the stats row that the first award later mutates.

	db := newSyncTestDB(t)
	karma := newSyncKarmaService(db)

	server := profileServer(t, "secret", []models.UserMirror{
		{ID: uuid.NewString(), ExternalUserID: "user-b", Username: "otto", Ward: "ward-9", IsActive: true},
	})

	client := workers.NewProfileSyncClient(db, karma, server.URL, "secret")
	_, err := client.SyncChangedProfiles(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)

	var stats models.UserStats
	require.NoError(t, db.Where("user_id = ?", "user-b").First(&stats).Error)
	assert.Equal(t, "ward-9", stats.Ward)
	assert.Zero(t, stats.Balance)

	_, err = karma.AwardKarma("user-b", models.KindRecycling, 40, nil, "")
	require.NoError(t, err)

	require.NoError(t, db.Where("user_id = ?", "user-b").First(&stats).Error)
	assert.Equal(t, "ward-9", stats.Ward)
	assert.Equal(t, int64(40), stats.Balance)
}
