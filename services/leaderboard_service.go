// services/leaderboard_service.go
package services

import (
	"fmt"
	"time"

	"civic-karma-system/models"
	"civic-karma-system/utils"

	"gorm.io/gorm"
)

type LeaderboardService struct {
	DB    *gorm.DB
	cache *utils.TTLCache
}

func NewLeaderboardService(db *gorm.DB, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{
		DB:    db,
		cache: utils.NewTTLCache(ttl),
	}
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Ward     string `json:"ward"`
	Balance  int64  `json:"balance"`
	Level    int    `json:"level"`
}

// LeaderboardPage carries the snapshot plus its staleness bound so callers
// know the data may lag.
type LeaderboardPage struct {
	Entries    []LeaderboardEntry `json:"leaderboard"`
	Ward       string             `json:"ward,omitempty"`
	SnapshotAt time.Time          `json:"snapshot_at"`
	MaxStale   time.Duration      `json:"max_stale_ms"`
}

// TopN ranks users by balance descending; ties break on user id ascending
// so repeated queries return an identical order. Served from a short-TTL
// snapshot — this is deliberately a stale read, never the redemption path.
func (s *LeaderboardService) TopN(n int, ward string) (*LeaderboardPage, error) {
	if n < 1 || n > 500 {
		n = 50
	}
	key := fmt.Sprintf("top:%d:%s", n, ward)
	if cached, _, ok := s.cache.Get(key); ok {
		return cached.(*LeaderboardPage), nil
	}

	query := s.DB.Model(&models.UserStats{}).
		Select(`user_stats.user_id, user_stats.balance, user_stats.level, user_stats.ward,
			COALESCE(user_mirrors.username, '') AS username`).
		Joins("LEFT JOIN user_mirrors ON user_mirrors.external_user_id = user_stats.user_id").
		Order("user_stats.balance DESC, user_stats.user_id ASC").
		Limit(n)
	if ward != "" {
		query = query.Where("user_stats.ward = ?", ward)
	}

	var rows []LeaderboardEntry
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}

	page := &LeaderboardPage{
		Entries:    rows,
		Ward:       ward,
		SnapshotAt: time.Now(),
		MaxStale:   s.cache.TTL(),
	}
	s.cache.Set(key, page)
	return page, nil
}

// RankOf returns a single user's rank (same ordering as TopN), uncached.
func (s *LeaderboardService) RankOf(userID string) (int, error) {
	var stats models.UserStats
	if err := s.DB.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}

	var ahead int64
	if err := s.DB.Model(&models.UserStats{}).
		Where("balance > ? OR (balance = ? AND user_id < ?)", stats.Balance, stats.Balance, userID).
		Count(&ahead).Error; err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// Refresh rebuilds the default snapshot ahead of demand; used by the
// maintenance scheduler to keep the common query warm.
func (s *LeaderboardService) Refresh() error {
	s.cache.Purge()
	_, err := s.TopN(50, "")
	return err
}
