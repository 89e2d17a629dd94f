// services/scheduler.go
package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs: expiring
// overdue pending redemptions and keeping the leaderboard snapshot warm.
func StartMaintenanceScheduler(redemptions *RedemptionService, leaderboard *LeaderboardService, leaderboardTTL time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: expire pending redemptions past their window
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			expired, err := redemptions.ExpireOverdue()
			if err != nil {
				log.Printf("[Scheduler] Redemption expiry error: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("⏰ Expired %d overdue redemption(s)", expired)
			}
		}),
	)

	// Refresh the leaderboard snapshot just before it goes stale
	_, _ = sched.NewJob(
		gocron.DurationJob(leaderboardTTL),
		gocron.NewTask(func() {
			if err := leaderboard.Refresh(); err != nil {
				log.Printf("[Scheduler] Leaderboard refresh error: %v", err)
			}
		}),
	)
}
