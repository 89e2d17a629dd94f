// services/campaign_service.go
package services

import (
	"time"

	"civic-karma-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CampaignService struct {
	DB *gorm.DB
}

func NewCampaignService(db *gorm.DB) *CampaignService {
	return &CampaignService{DB: db}
}

// CurrentMultiplier resolves the bonus multiplier for an activity at an
// instant. Always >= 1.0. When several campaign windows overlap, the
// highest multiplier wins; ties break on most recently created, then id,
// so repeated calls are deterministic.
func (s *CampaignService) CurrentMultiplier(kind models.KarmaKind, at time.Time) (float64, *models.Campaign, error) {
	var campaigns []models.Campaign
	if err := s.DB.
		Where("starts_at <= ? AND ends_at > ?", at, at).
		Find(&campaigns).Error; err != nil {
		return 1.0, nil, err
	}

	var pick *models.Campaign
	for i := range campaigns {
		c := &campaigns[i]
		if c.Multiplier <= 1.0 {
			continue
		}
		if c.CarbonOnly && !kind.CarbonRelated() {
			continue
		}
		if pick == nil || betterCampaign(c, pick) {
			pick = c
		}
	}

	if pick == nil {
		return 1.0, nil, nil
	}
	return pick.Multiplier, pick, nil
}

func betterCampaign(a, b *models.Campaign) bool {
	if a.Multiplier != b.Multiplier {
		return a.Multiplier > b.Multiplier
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// ApplyMultiplier computes the awarded amount from a base amount. Decimal
// math keeps 10 × 1.5 at exactly 15 and stays reproducible from the
// base_amount/multiplier pair stored in entry metadata.
func ApplyMultiplier(baseAmount int64, multiplier float64) int64 {
	return decimal.NewFromInt(baseAmount).
		Mul(decimal.NewFromFloat(multiplier)).
		Round(0).
		IntPart()
}

// --- Admin Handlers ---

// CreateCampaign creates a bonus campaign (Admin only)
func (s *CampaignService) CreateCampaign(c *fiber.Ctx) error {
	var req struct {
		Name       string    `json:"name" validate:"required"`
		Multiplier float64   `json:"multiplier" validate:"required,gt=1"`
		StartsAt   time.Time `json:"starts_at" validate:"required"`
		EndsAt     time.Time `json:"ends_at" validate:"required"`
		CarbonOnly bool      `json:"carbon_only"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.Multiplier <= 1.0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name and a multiplier > 1.0 are required"})
	}
	if !req.EndsAt.After(req.StartsAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ends_at must be after starts_at"})
	}

	campaign := &models.Campaign{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Slug:       slug.Make(req.Name),
		Multiplier: req.Multiplier,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		CarbonOnly: req.CarbonOnly,
	}

	if err := s.DB.Create(campaign).Error; err != nil {
		log.Printf("DB Error creating campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create campaign"})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// ListCampaigns returns all campaigns, newest first (Admin only)
func (s *CampaignService) ListCampaigns(c *fiber.Ctx) error {
	var campaigns []models.Campaign
	if err := s.DB.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		log.Printf("DB Error fetching campaigns: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch campaigns"})
	}
	return c.JSON(campaigns)
}

// DeleteCampaign removes a campaign from config. Past awards are unaffected:
// their multiplier lives in immutable entry metadata.
func (s *CampaignService) DeleteCampaign(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid campaign ID"})
	}

	res := s.DB.Delete(&models.Campaign{}, "id = ?", id)
	if res.Error != nil {
		log.Printf("DB Error deleting campaign: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete campaign"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
	}
	return c.JSON(fiber.Map{"message": "Campaign deleted"})
}
