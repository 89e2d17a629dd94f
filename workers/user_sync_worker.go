package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"civic-karma-system/models"
	"civic-karma-system/services"
	"civic-karma-system/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileSyncClient mirrors display profiles (username, ward) from the
// auth/profile service so the leaderboard can be decorated locally.
type ProfileSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
	Karma      *services.KarmaService
}

func NewProfileSyncClient(db *gorm.DB, karma *services.KarmaService, baseURL, token string) *ProfileSyncClient {
	return &ProfileSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		Karma:      karma,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *ProfileSyncClient) GetChangedProfiles(ctx context.Context, since time.Time) ([]models.UserMirror, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/profiles", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call profile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Profiles []models.UserMirror `json:"profiles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	return response.Profiles, nil
}

// SyncChangedProfiles pulls profiles changed since the given instant and
// applies them: bulk-upserts the mirror rows and propagates each ward into
// the user's stats row, which is what the leaderboard ward filter reads.
func (c *ProfileSyncClient) SyncChangedProfiles(ctx context.Context, since time.Time) (int, error) {
	profiles, err := c.GetChangedProfiles(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for i := range profiles {
		profiles[i].LastSyncedAt = now
	}

	// Bulk upsert keyed on the external user id (one statement on Postgres)
	err = c.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "ward", "is_active", "last_synced_at", "updated_at",
		}),
	}).Create(&profiles).Error
	if err != nil {
		return 0, err
	}

	// SetWard seeds the stats row if the user has not earned yet, so the
	// ward is already in place for their first award.
	for _, p := range profiles {
		if err := c.Karma.SetWard(p.ExternalUserID, p.Ward); err != nil {
			log.Printf("⚠️ Failed to set ward %q for %s: %v", p.Ward, p.ExternalUserID, err)
		}
	}
	return len(profiles), nil
}

// PollProfiles keeps user_mirrors in sync until the context is cancelled.
func PollProfiles(ctx context.Context, client *ProfileSyncClient, pollInterval time.Duration) {
	log.Println("Starting profile mirror sync...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Profile mirror sync stopped.")
			return
		case <-ticker.C:
			syncStart := time.Now().UTC()

			synced, err := client.SyncChangedProfiles(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling profiles: %v", err)
				continue
			}
			if synced > 0 {
				log.Printf("📥 Synced %d profile change(s)", synced)
			}
			lastSyncTime = syncStart
		}
	}
}
