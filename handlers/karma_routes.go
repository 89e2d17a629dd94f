// handlers/karma_routes.go
package handlers

import (
	"strconv"

	"civic-karma-system/middleware"
	"civic-karma-system/models"
	"civic-karma-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupKarmaRoutes(app *fiber.App, karmaService *services.KarmaService, badgeService *services.BadgeService, leaderboardService *services.LeaderboardService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// Activity-completion signal from the issue/recycling/transport
	// workflows. Awards karma and reports back any badges that unlocked.
	securedGroup.Post("/s/activity", func(c *fiber.Ctx) error {
		var req struct {
			UserID          string  `json:"user_id"` // defaults to the authenticated user
			Kind            string  `json:"kind" validate:"required"`
			BaseAmount      int64   `json:"base_amount" validate:"required,min=1"`
			RelatedEntityID *string `json:"related_entity_id"`
			Description     string  `json:"description"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		userID := req.UserID
		if userID == "" {
			userID = c.Locals("user_id").(string)
		}

		result, err := karmaService.AwardKarma(userID, models.KarmaKind(req.Kind), req.BaseAmount, req.RelatedEntityID, req.Description)
		if err != nil {
			if services.DomainError(err) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "karma award failed",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	securedGroup.Get("/s/user/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		stats, err := karmaService.GetStats(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get stats",
				"cause": err.Error(),
			})
		}

		rank, err := leaderboardService.RankOf(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get rank",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"user_id":      stats.UserID,
			"balance":      stats.Balance,
			"total_earned": stats.TotalEarned,
			"level":        stats.Level,
			"ward":         stats.Ward,
			"rank":         rank,
			"streak":       stats.Streak,
			"badges":       stats.Badges,
			"cached_for":   stats.CachedFor.Milliseconds(),
		})
	})

	securedGroup.Get("/s/user/karma/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		history, err := karmaService.GetUserHistory(userID, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get history",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})

	securedGroup.Get("/s/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		badges, err := badgeService.BadgesOf(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(badges)
	})

	securedGroup.Get("/s/badges/catalog", func(c *fiber.Ctx) error {
		catalog, err := badgeService.Catalog()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badge catalog",
				"cause": err.Error(),
			})
		}
		return c.JSON(catalog)
	})

	securedGroup.Get("/s/leaderboard", func(c *fiber.Ctx) error {
		n, _ := strconv.Atoi(c.Query("limit", "50"))
		ward := c.Query("ward")

		page, err := leaderboardService.TopN(n, ward)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(page)
	})
}
