// handlers/redemption_routes.go
package handlers

import (
	"errors"
	"strconv"

	"civic-karma-system/middleware"
	"civic-karma-system/services"

	"github.com/gofiber/fiber/v2"
)

func redeemStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrPartnerNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInsufficientBalance), errors.Is(err, services.ErrOutOfStock):
		return fiber.StatusConflict
	case services.DomainError(err):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func SetupRedemptionRoutes(app *fiber.App, redemptionService *services.RedemptionService, partnerService *services.PartnerService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/s/partners", partnerService.ListPartners)

	securedGroup.Post("/s/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			PartnerID   string `json:"partner_id" validate:"required,uuid"`
			KarmaAmount int64  `json:"karma_amount" validate:"required,min=1"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		redemption, err := redemptionService.Redeem(userID, req.PartnerID, req.KarmaAmount)
		if err != nil {
			status := redeemStatus(err)
			if status == fiber.StatusInternalServerError {
				return c.Status(status).JSON(fiber.Map{
					"error": "redemption failed",
					"cause": err.Error(),
				})
			}
			// Distinct business-rule messages so the client can render them
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(redemption)
	})

	securedGroup.Get("/s/user/redemptions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		redemptions, err := redemptionService.RedemptionsOf(userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get redemptions",
				"cause": err.Error(),
			})
		}
		return c.JSON(redemptions)
	})

	// Partner-side: confirm a code presented at pickup
	securedGroup.Post("/s/redemptions/:code/confirm", func(c *fiber.Ctx) error {
		code := c.Params("code")

		redemption, err := redemptionService.Confirm(code)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrRedemptionNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrRedemptionNotPending), errors.Is(err, services.ErrRedemptionExpired):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "confirmation failed",
					"cause": err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{"message": "Redemption confirmed", "redemption": redemption})
	})
}
