package services_test

import (
	"testing"
	"time"

	"civic-karma-system/models"
	"civic-karma-system/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCampaign(t *testing.T, e *testEngine, c models.Campaign) models.Campaign {
	t.Helper()
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Slug == "" {
		c.Slug = "campaign-" + c.ID[:8]
	}
	require.NoError(t, e.db.Create(&c).Error)
	return c
}

func TestCurrentMultiplier_NoActiveCampaign(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()

	// window entirely in the past
	seedCampaign(t, e, models.Campaign{
		Name:       "Earth Week",
		Multiplier: 2.0,
		StartsAt:   now.Add(-48 * time.Hour),
		EndsAt:     now.Add(-24 * time.Hour),
	})

	m, campaign, err := e.campaigns.CurrentMultiplier(models.KindReport, now)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)
	assert.Nil(t, campaign)
}

func TestCurrentMultiplier_WindowBoundaries(t *testing.T) {
	// Windows are half-open: active at StartsAt, inactive at EndsAt.

	e := newTestEngine(t)
	start := time.Now().Add(-time.Hour)
	end := start.Add(2 * time.Hour)
	seedCampaign(t, e, models.Campaign{
		Name:       "Festival",
		Multiplier: 1.5,
		StartsAt:   start,
		EndsAt:     end,
	})

	m, _, err := e.campaigns.CurrentMultiplier(models.KindReport, start)
	require.NoError(t, err)
	assert.Equal(t, 1.5, m)

	m, _, err = e.campaigns.CurrentMultiplier(models.KindReport, end)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)
}

func TestCurrentMultiplier_CarbonRestriction(t *testing.T) {
	// GIVEN: a carbon-only campaign
	// THEN: it applies to recycling but not to issue reports

	e := newTestEngine(t)
	now := time.Now()
	seedCampaign(t, e, models.Campaign{
		Name:       "Low Carbon Month",
		Multiplier: 2.0,
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(time.Hour),
		CarbonOnly: true,
	})

	m, _, err := e.campaigns.CurrentMultiplier(models.KindRecycling, now)
	require.NoError(t, err)
	assert.Equal(t, 2.0, m)

	m, _, err = e.campaigns.CurrentMultiplier(models.KindReport, now)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)
}

func TestCurrentMultiplier_OverlapHighestWins(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()

	seedCampaign(t, e, models.Campaign{
		Name:       "Small Bonus",
		Multiplier: 1.25,
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(time.Hour),
	})
	big := seedCampaign(t, e, models.Campaign{
		Name:       "Big Bonus",
		Multiplier: 2.0,
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(time.Hour),
	})

	m, campaign, err := e.campaigns.CurrentMultiplier(models.KindReport, now)
	require.NoError(t, err)
	assert.Equal(t, 2.0, m)
	require.NotNil(t, campaign)
	assert.Equal(t, big.ID, campaign.ID)
}

func TestCurrentMultiplier_OverlapTieBreakIsDeterministic(t *testing.T) {
	// Equal multipliers: most recently created wins, repeatably.

	e := newTestEngine(t)
	now := time.Now()

	seedCampaign(t, e, models.Campaign{
		Name:       "Older",
		Multiplier: 1.5,
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(time.Hour),
		CreatedAt:  now.Add(-10 * time.Minute),
	})
	newer := seedCampaign(t, e, models.Campaign{
		Name:       "Newer",
		Multiplier: 1.5,
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(time.Hour),
		CreatedAt:  now.Add(-5 * time.Minute),
	})

	for i := 0; i < 5; i++ {
		_, campaign, err := e.campaigns.CurrentMultiplier(models.KindReport, now)
		require.NoError(t, err)
		require.NotNil(t, campaign)
		assert.Equal(t, newer.ID, campaign.ID)
	}
}

func TestApplyMultiplier_ExactDecimalMath(t *testing.T) {
	assert.Equal(t, int64(15), services.ApplyMultiplier(10, 1.5))
	assert.Equal(t, int64(10), services.ApplyMultiplier(10, 1.0))
	assert.Equal(t, int64(13), services.ApplyMultiplier(10, 1.25)) // rounds half up
	assert.Equal(t, int64(300), services.ApplyMultiplier(200, 1.5))
}
