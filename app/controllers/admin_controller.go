package controllers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ResumeFox/app/models"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/database"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/statistics"
)

// HandleAdminStats serves operational totals: Redis counters, queue depth
// and persisted settlement numbers.
func HandleAdminStats(c *fiber.Ctx) error {
	totals, err := counter.Snapshot()
	if err != nil {
		log.Printf("counter snapshot failed: %v", err)
		totals = &counter.Totals{}
	}

	ctx := context.Background()
	queue := jobqueue.GetManager().GetQueue()
	queueSize, _ := queue.GetQueueSize(ctx)
	processingSize, _ := queue.GetProcessingSize(ctx)
	jobStats, _ := queue.GetJobStats(ctx)

	stats := statistics.GetStatistics()

	db := database.GetDB()
	var paymentCount, settledCount int64
	db.Model(&models.Payment{}).Count(&paymentCount)
	db.Model(&models.Payment{}).Where("credits_applied = ?", true).Count(&settledCount)

	var grantedTotal int64
	db.Model(&models.Payment{}).Where("credits_applied = ?", true).
		Select("COALESCE(SUM(credits_granted), 0)").Scan(&grantedTotal)

	return c.JSON(fiber.Map{
		"counters": totals,
		"queue": fiber.Map{
			"pending":    queueSize,
			"processing": processingSize,
			"stats":      jobStats,
		},
		"totals": fiber.Map{
			"users":            stats.TotalUsers,
			"operations":       stats.TotalOperations,
			"operations_today": stats.TodayOperations,
			"payments":         paymentCount,
			"settled":          settledCount,
			"credits_granted":  grantedTotal,
		},
	})
}

// HandleAdminUserLedger returns one user's ledger and recent payments for
// support lookups.
func HandleAdminUserLedger(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid user id"})
	}

	db := database.GetDB()
	var ledger models.CreditLedger
	if err := db.Where("user_id = ?", userID).First(&ledger).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No ledger for this user"})
	}

	var payments []models.Payment
	db.Where("user_id = ?", userID).Order("created_at DESC").Limit(20).Find(&payments)

	return c.JSON(fiber.Map{
		"ledger":   ledger,
		"payments": payments,
	})
}
