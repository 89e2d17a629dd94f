package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"civic-karma-system/models"
	"civic-karma-system/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TokenIssuerClient talks to the opaque badge/NFT token issuer. Issuance is
// fully asynchronous: jobs are queued by the badge service and worked off
// here, so an unreachable issuer never blocks or rolls back a karma award.
type TokenIssuerClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
	MaxTries   int
}

func NewTokenIssuerClient(db *gorm.DB, baseURL, token string, maxTries int) *TokenIssuerClient {
	return &TokenIssuerClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		MaxTries:   maxTries,
		HTTPClient: utils.HTTPClient,
	}
}

// IssueToken requests a token reference for an awarded badge.
func (c *TokenIssuerClient) IssueToken(ctx context.Context, userID, badgeCode string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"user_id":    userID,
		"badge_code": badgeCode,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/v1/tokens", c.BaseURL), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call token issuer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token issuer returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		TokenRef string `json:"token_ref"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode issuer response: %w", err)
	}
	if response.TokenRef == "" {
		return "", fmt.Errorf("issuer returned empty token_ref")
	}
	return response.TokenRef, nil
}

// processDueJobs works off queued token issuances once.
func (c *TokenIssuerClient) processDueJobs(ctx context.Context) {
	var jobs []models.TokenIssueJob
	if err := c.DB.
		Where("done = ? AND attempts < ?", false, c.MaxTries).
		Order("created_at ASC").
		Limit(50).
		Find(&jobs).Error; err != nil {
		log.Printf("❌ Error loading token issue jobs: %v", err)
		return
	}

	for _, job := range jobs {
		tokenRef, err := c.IssueToken(ctx, job.UserID, job.BadgeCode)
		job.Attempts++
		if err != nil {
			job.LastError = err.Error()
			log.Printf("⚠️ Token issuance failed for badge %s / %s (attempt %d): %v",
				job.BadgeCode, job.UserID, job.Attempts, err)
			if err := c.DB.Save(&job).Error; err != nil {
				log.Printf("❌ Failed to persist job state: %v", err)
			}
			continue
		}

		err = c.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.UserBadge{}).
				Where("id = ?", job.UserBadgeID).
				Update("token_ref", tokenRef).Error; err != nil {
				return err
			}
			job.Done = true
			job.LastError = ""
			return tx.Save(&job).Error
		})
		if err != nil {
			log.Printf("❌ Failed to record token %s for badge %s: %v", tokenRef, job.BadgeCode, err)
			continue
		}
		log.Printf("🪙 Token issued for badge %s → %s", job.BadgeCode, job.UserID)
	}
}

// PollTokenJobs drives the issuance queue until the context is cancelled.
func PollTokenJobs(ctx context.Context, client *TokenIssuerClient, pollInterval time.Duration) {
	log.Println("Starting token issuer worker...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Token issuer worker stopped.")
			return
		case <-ticker.C:
			client.processDueJobs(ctx)
		}
	}
}
