package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ResumeFox/app/controllers"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Gateway notifications. The handler reads the raw body; no body
	// parsing middleware may run ahead of it. Deliberately outside the
	// /api rate limiter so redeliveries are never throttled.
	app.Post("/webhooks/razorpay", controllers.HandleRazorpayWebhook)
}
