package controllers

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ResumeFox/app/models"
	"github.com/ManuelReschke/ResumeFox/app/repository"
)

func TestAccountResponseCarriesUsageStats(t *testing.T) {
	t.Parallel()

	account := &models.User{
		ID:        7,
		Name:      "mira",
		Email:     "mira@example.com",
		Role:      models.ROLE_USER,
		Status:    models.STATUS_ACTIVE,
		CreatedAt: time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC),
	}
	settings := &models.UserSettings{UserID: 7, EmailOnPurchase: true}
	ledger := &models.CreditLedger{UserID: 7, Balance: 40, LifetimeUsed: 35, Tier: models.TierFree}
	stats := &repository.UserStats{OperationCount: 4, CreditsSpent: 35, PaymentCount: 1}

	resp := accountResponse(account, settings, ledger, stats)

	usage, ok := resp["usage"].(fiber.Map)
	require.True(t, ok)
	assert.EqualValues(t, 4, usage["operations"])
	assert.EqualValues(t, 35, usage["credits_spent"])
	assert.EqualValues(t, 1, usage["settled_payments"])

	creditsBlock, ok := resp["credits"].(fiber.Map)
	require.True(t, ok)
	assert.EqualValues(t, 40, creditsBlock["balance"])
	assert.Equal(t, models.TierFree, creditsBlock["tier"])

	assert.Equal(t, "https://www.gravatar.com/avatar/a31d59291f4b506510452e705ea6cf34?s=200&d=mp", resp["avatar_url"])
	assert.Nil(t, resp["last_login_at"])
}

func TestAccountResponseEmptyStats(t *testing.T) {
	t.Parallel()

	account := &models.User{ID: 8, Name: "new", Email: "new@example.com", Status: models.STATUS_ACTIVE}
	resp := accountResponse(account, &models.UserSettings{UserID: 8}, &models.CreditLedger{UserID: 8, Balance: 25, Tier: models.TierFree}, &repository.UserStats{})

	usage, ok := resp["usage"].(fiber.Map)
	require.True(t, ok)
	assert.EqualValues(t, 0, usage["operations"])
	assert.EqualValues(t, 0, usage["credits_spent"])
	assert.EqualValues(t, 0, usage["settled_payments"])
}
