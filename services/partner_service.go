// services/partner_service.go
package services

import (
	"errors"

	"civic-karma-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PartnerService struct {
	DB *gorm.DB
}

func NewPartnerService(db *gorm.DB) *PartnerService {
	return &PartnerService{DB: db}
}

// --- Admin Handlers ---

// CreatePartner registers a partner shop (Admin only)
func (s *PartnerService) CreatePartner(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name" validate:"required"`
		Ward string `json:"ward"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}

	partner := &models.Partner{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Slug:   slug.Make(req.Name),
		Ward:   req.Ward,
		Active: true,
	}
	if err := s.DB.Create(partner).Error; err != nil {
		log.Printf("DB Error creating partner: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create partner"})
	}
	return c.Status(fiber.StatusCreated).JSON(partner)
}

// CreateOffer adds a redemption tier to a partner (Admin only)
func (s *PartnerService) CreateOffer(c *fiber.Ctx) error {
	partnerID := c.Params("id")
	if _, err := uuid.Parse(partnerID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid partner ID"})
	}

	var req struct {
		Title             string `json:"title" validate:"required"`
		MinKarma          int64  `json:"min_karma" validate:"required,min=1"`
		MaxKarma          int64  `json:"max_karma" validate:"required,min=1"`
		QuantityAvailable *int64 `json:"quantity_available"` // null = unlimited
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" || req.MinKarma <= 0 || req.MaxKarma < req.MinKarma {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and a valid karma band are required"})
	}
	if req.QuantityAvailable != nil && *req.QuantityAvailable < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quantity_available cannot be negative"})
	}

	var partner models.Partner
	if err := s.DB.First(&partner, "id = ?", partnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Partner not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	offer := &models.PartnerOffer{
		ID:                uuid.NewString(),
		PartnerID:         partner.ID,
		Title:             req.Title,
		MinKarma:          req.MinKarma,
		MaxKarma:          req.MaxKarma,
		QuantityAvailable: req.QuantityAvailable,
		Active:            true,
	}
	if err := s.DB.Create(offer).Error; err != nil {
		log.Printf("DB Error creating offer: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create offer"})
	}
	return c.Status(fiber.StatusCreated).JSON(offer)
}

// SetPartnerActive toggles a partner on or off (Admin only)
func (s *PartnerService) SetPartnerActive(c *fiber.Ctx) error {
	partnerID := c.Params("id")
	if _, err := uuid.Parse(partnerID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid partner ID"})
	}

	var req struct {
		Active *bool `json:"active" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "active flag is required"})
	}

	res := s.DB.Model(&models.Partner{}).Where("id = ?", partnerID).Update("active", *req.Active)
	if res.Error != nil {
		log.Printf("DB Error updating partner: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update partner"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Partner not found"})
	}
	return c.JSON(fiber.Map{"message": "Partner updated", "active": *req.Active})
}

// --- User Handlers ---

// ListPartners returns active partners with their active offers, optionally
// filtered by ward.
func (s *PartnerService) ListPartners(c *fiber.Ctx) error {
	ward := c.Query("ward")

	query := s.DB.Where("active = ?", true)
	if ward != "" {
		query = query.Where("ward = ?", ward)
	}

	var partners []models.Partner
	if err := query.Order("name ASC").Find(&partners).Error; err != nil {
		log.Printf("DB Error fetching partners: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch partners"})
	}

	response := make([]fiber.Map, 0, len(partners))
	for _, p := range partners {
		var offers []models.PartnerOffer
		if err := s.DB.Where("partner_id = ? AND active = ?", p.ID, true).
			Order("min_karma ASC").
			Find(&offers).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch offers"})
		}
		response = append(response, fiber.Map{
			"id":     p.ID,
			"name":   p.Name,
			"slug":   p.Slug,
			"ward":   p.Ward,
			"offers": offers,
		})
	}
	return c.JSON(response)
}
