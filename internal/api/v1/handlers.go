package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ManuelReschke/ResumeFox/app/controllers"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/credits"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/middleware"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping endpoint response body
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetPlans lists the purchasable credit plans (public).
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	return controllers.HandleListPlans(c)
}

// GetCredits serves the balance and usage report.
func (s *APIServer) GetCredits(c *fiber.Ctx) error {
	return controllers.HandleGetCredits(c)
}

// PostOrders opens a gateway order for a credit plan.
func (s *APIServer) PostOrders(c *fiber.Ctx) error {
	return controllers.HandleCreateOrder(c)
}

// GetUserProfile returns account information for the authenticated user (API key or session).
func (s *APIServer) GetUserProfile(c *fiber.Ctx) error {
	return controllers.HandleGetUserAccount(c)
}

// RegisterHandlers wires the v1 routes. Costed resume operations sit behind
// the credit gate; everything except ping and plans requires authentication.
func RegisterHandlers(router fiber.Router, si *APIServer) {
	router.Get("/ping", si.GetPing)
	router.Get("/plans", si.GetPlans)

	auth := router.Group("/auth")
	auth.Post("/register", controllers.HandleAuthRegister)
	auth.Get("/activate", controllers.HandleAuthActivate)
	auth.Post("/login", controllers.HandleAuthLogin)
	auth.Post("/logout", middleware.RequireAPISessionAuth, controllers.HandleAuthLogout)

	authed := router.Group("", middleware.SessionOrAPIKey())
	authed.Get("/credits", si.GetCredits)
	authed.Post("/orders", si.PostOrders)

	authed.Get("/user/profile", si.GetUserProfile)
	authed.Patch("/user/preferences", controllers.HandleUpdateUserPreferences)
	authed.Post("/user/api-key", controllers.HandleUserAPIKeyGenerate)
	authed.Delete("/user/api-key", controllers.HandleUserAPIKeyRevoke)

	resume := authed.Group("/resume")
	resume.Post("/analyze", middleware.RequireCredits(credits.OperationAnalysis), controllers.HandleResumeAnalyze)
	resume.Post("/optimize", middleware.RequireCredits(credits.OperationOptimizationGeneral), controllers.HandleResumeOptimize)
	resume.Post("/optimize/jd", middleware.RequireCredits(credits.OperationOptimizationJD), controllers.HandleResumeOptimizeJD)
	resume.Post("/export", middleware.RequireCredits(credits.OperationBuildExport), controllers.HandleResumeExport)
}
