package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ResumeFox/internal/pkg/credits"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/database"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/env"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/gateway"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/usercontext"
)

type createOrderRequest struct {
	Plan string `json:"plan"`
}

// settlementService is the slice of the credits service the webhook
// handler needs.
type settlementService interface {
	Settle(ctx context.Context, event *credits.RazorpayWebhookEvent) (credits.SettleOutcome, error)
}

var newSettlementService = func() settlementService {
	return credits.NewServiceFromDB(database.GetDB())
}

// HandleListPlans returns the purchasable credit plans.
func HandleListPlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": credits.Plans()})
}

// HandleCreateOrder opens a gateway order for a credit plan. The returned
// order id is what the frontend hands to the Razorpay checkout; credits are
// granted only when the capture webhook arrives.
func HandleCreateOrder(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}

	plan, ok := credits.LookupPlan(req.Plan)
	if !ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unknown_plan", "message": "Unknown credit plan"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	svc := credits.NewServiceFromDB(database.GetDB())
	ledger, err := svc.EnsureLedger(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Ledger unavailable"})
	}
	if credits.IsStarterPlan(plan.ID) && ledger.StarterOfferClaimed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "starter_already_claimed", "message": "The starter offer can only be purchased once"})
	}

	order, err := gateway.NewClientFromEnv().CreateOrder(ctx, gateway.OrderInput{
		Amount:   plan.Price,
		Currency: credits.PlanCurrency,
		UserID:   userCtx.UserID,
		Plan:     plan.ID,
	})
	if err != nil {
		log.Printf("gateway order creation failed for user %d plan %s: %v", userCtx.UserID, plan.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_unavailable", "message": "Payment gateway did not accept the order"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id": order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"plan":     plan.ID,
		"credits":  plan.Credits,
		"key_id":   env.GetEnv("RAZORPAY_KEY_ID", ""),
	})
}

// HandleRazorpayWebhook settles asynchronous gateway notifications. The
// signature is verified over the raw request body before any parsing; a
// non-2xx status makes the gateway redeliver, so only transient persistence
// failures return 500.
func HandleRazorpayWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Razorpay-Signature"))
	secret := env.GetEnv("RAZORPAY_WEBHOOK_SECRET", "")

	if !credits.VerifyWebhookSignature(rawBody, signature, secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := credits.ParseRazorpayWebhookEvent(rawBody)
	if err != nil {
		// Authenticated but unparseable; redelivery would not help.
		log.Printf("webhook payload rejected: %v", err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}
	event.Signature = signature

	if !credits.IsHandledRazorpayEvent(event.Event) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	svc := newSettlementService()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	outcome, err := svc.Settle(ctx, event)
	if err != nil {
		switch {
		case errors.Is(err, credits.ErrDuplicateSettlement):
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		case errors.Is(err, credits.ErrUnknownPlan):
			log.Printf("webhook for payment %s names unknown plan %q", event.GatewayPaymentID, event.Plan)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
		case errors.Is(err, credits.ErrLedgerNotFound):
			log.Printf("webhook for payment %s has no ledger for user %d", event.GatewayPaymentID, event.UserID)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
		case errors.Is(err, credits.ErrStarterOfferClaimed):
			log.Printf("webhook for payment %s: starter offer already claimed by user %d", event.GatewayPaymentID, event.UserID)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
		default:
			log.Printf("settlement of payment %s failed: %v", event.GatewayPaymentID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "settlement_failed"})
		}
	}

	if err := counter.AddSettlement(string(outcome)); err != nil {
		log.Printf("settlement counter failed: %v", err)
	}

	if outcome == credits.SettleOutcomeSettled {
		if err := jobqueue.EnqueuePurchaseEmail(event.UserID, event.Plan, event.GatewayPaymentID); err != nil {
			log.Printf("purchase mail enqueue failed for payment %s: %v", event.GatewayPaymentID, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "outcome": outcome})
}
