// handlers/admin_routes.go
package handlers

import (
	"civic-karma-system/middleware"
	"civic-karma-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, karmaService *services.KarmaService, campaignService *services.CampaignService, partnerService *services.PartnerService) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	// Campaign config
	adminGroup.Post("/campaigns", campaignService.CreateCampaign)
	adminGroup.Get("/campaigns", campaignService.ListCampaigns)
	adminGroup.Delete("/campaigns/:id", campaignService.DeleteCampaign)

	// Partner catalog
	adminGroup.Post("/partners", partnerService.CreatePartner)
	adminGroup.Post("/partners/:id/offers", partnerService.CreateOffer)
	adminGroup.Patch("/partners/:id/active", partnerService.SetPartnerActive)

	// Manual correction: appends a signed compensating ledger entry.
	// The ledger itself is never edited.
	adminGroup.Post("/karma/adjust", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id" validate:"required"`
			Delta  int64  `json:"delta" validate:"required"`
			Reason string `json:"reason" validate:"max=255"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}

		entry, err := karmaService.AdjustKarma(req.UserID, req.Delta, req.Reason)
		if err != nil {
			if services.DomainError(err) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "adjustment failed",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})
}
