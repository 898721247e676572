package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ResumeFox/app/models"
	"github.com/ManuelReschke/ResumeFox/app/repository"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/credits"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/database"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/utils"
)

// HandleGetUserAccount returns account information for the authenticated user (API key or session).
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
	}

	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
	}
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user settings"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ledger, err := credits.NewServiceFromDB(db).EnsureLedger(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load credit balance"})
	}

	stats, err := repo.GetStatsByUserID(userCtx.UserID)
	if err != nil {
		// Informational block; the profile is still served without it.
		log.Printf("usage stats lookup failed for user %d: %v", userCtx.UserID, err)
		stats = &repository.UserStats{}
	}

	return c.JSON(accountResponse(account, settings, ledger, stats))
}

// accountResponse assembles the profile payload from its loaded parts.
func accountResponse(account *models.User, settings *models.UserSettings, ledger *models.CreditLedger, stats *repository.UserStats) fiber.Map {
	return fiber.Map{
		"id":                   account.ID,
		"username":             account.Name,
		"email":                account.Email,
		"status":               account.Status,
		"is_admin":             account.Role == models.ROLE_ADMIN,
		"avatar_url":           utils.GetGravatarURL(account.Email, 200),
		"created_at":           account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":        formatTimePtr(account.LastLoginAt),
		"api_key_last_used_at": formatTimePtr(settings.APIKeyLastUsedAt),
		"credits": fiber.Map{
			"balance":               ledger.Balance,
			"lifetime_used":         ledger.LifetimeUsed,
			"tier":                  ledger.Tier,
			"starter_offer_claimed": ledger.StarterOfferClaimed,
		},
		"usage": fiber.Map{
			"operations":       stats.OperationCount,
			"credits_spent":    stats.CreditsSpent,
			"settled_payments": stats.PaymentCount,
		},
		"preferences": fiber.Map{
			"email_on_purchase":   settings.EmailOnPurchase,
			"email_on_low_credit": settings.EmailOnLowCredit,
		},
	}
}

type updatePreferencesRequest struct {
	EmailOnPurchase  *bool `json:"email_on_purchase"`
	EmailOnLowCredit *bool `json:"email_on_low_credit"`
}

// HandleUpdateUserPreferences updates mail notification preferences.
func HandleUpdateUserPreferences(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req updatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user settings"})
	}

	if req.EmailOnPurchase != nil {
		settings.EmailOnPurchase = *req.EmailOnPurchase
	}
	if req.EmailOnLowCredit != nil {
		settings.EmailOnLowCredit = *req.EmailOnLowCredit
	}
	if err := db.Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save preferences"})
	}

	return c.JSON(fiber.Map{
		"email_on_purchase":   settings.EmailOnPurchase,
		"email_on_low_credit": settings.EmailOnLowCredit,
	})
}

// HandleUserAPIKeyGenerate issues a fresh API key. The raw secret appears
// only in this response; just its hash is stored.
func HandleUserAPIKeyGenerate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user settings"})
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to generate API key"})
	}
	if err := db.Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save API key"})
	}

	return c.JSON(fiber.Map{
		"api_key":    rawKey,
		"prefix":     settings.APIKeyPrefix,
		"created_at": formatTimePtr(settings.APIKeyCreatedAt),
	})
}

// HandleUserAPIKeyRevoke revokes the active API key.
func HandleUserAPIKeyRevoke(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user settings"})
	}
	if !settings.HasActiveAPIKey() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No active API key"})
	}

	settings.RevokeAPIKey()
	if err := db.Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to revoke API key"})
	}

	return c.JSON(fiber.Map{"ok": true})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
