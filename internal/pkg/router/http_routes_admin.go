package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ResumeFox/app/controllers"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)

	adminGroup.Get("/stats", controllers.HandleAdminStats)
	adminGroup.Get("/users/:id/ledger", controllers.HandleAdminUserLedger)
}
