package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ResumeFox/internal/pkg/cache"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/credits"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/database"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/usercontext"
)

const usageReportCacheTTL = 30 * time.Second

// HandleGetCredits serves the balance and usage report. The report is
// cached briefly; admission and settlement never read this path, so a stale
// number can not cause an overspend.
func HandleGetCredits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	cacheKey := fmt.Sprintf("credits:report:%d", userCtx.UserID)
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		c.Set("Content-Type", "application/json")
		return c.SendString(cached)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svc := credits.NewServiceFromDB(database.GetDB())
	report, err := svc.Report(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, credits.ErrLedgerNotFound) {
			// First gated/paid touch creates the ledger; report it as empty.
			ledger, err := svc.EnsureLedger(ctx, userCtx.UserID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Ledger unavailable"})
			}
			report = &credits.UsageReport{
				Balance:        ledger.Balance,
				Tier:           ledger.Tier,
				Usage:          []credits.UsageBucket{},
				RecentPayments: []credits.RecentPayment{},
			}
		} else {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load usage report"})
		}
	}

	if raw, err := json.Marshal(report); err == nil {
		if err := cache.Set(cacheKey, string(raw), usageReportCacheTTL); err != nil {
			log.Printf("usage report cache write failed for user %d: %v", userCtx.UserID, err)
		}
	}

	return c.JSON(report)
}
