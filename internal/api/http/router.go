package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Maintenance    *handlers.MaintenanceHandler
	Attachments    *handlers.AttachmentHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Get("/sla-categories", cfg.Maintenance.ListSLACategories)
	if cfg.Attachments != nil {
		protected.Post("/attachments", cfg.Attachments.Upload)
	}

	maintenance := protected.Group("/maintenance")
	maintenance.Post("/corrective", cfg.Maintenance.CreateCorrective)
	maintenance.Post("/preventive", cfg.Maintenance.CreatePreventive)
	maintenance.Get("/", cfg.Maintenance.List)
	maintenance.Get("/:id", cfg.Maintenance.Get)
	maintenance.Post("/:id/sla-category", cfg.Maintenance.SetSLACategory)
	maintenance.Post("/:id/approve", cfg.Maintenance.Approve)
	maintenance.Post("/:id/vendor", cfg.Maintenance.AssignVendor)
	maintenance.Post("/:id/accept", cfg.Maintenance.Accept)
	maintenance.Post("/:id/decline", cfg.Maintenance.Decline)
	maintenance.Post("/:id/updates", cfg.Maintenance.PostUpdate)
	maintenance.Post("/:id/close", cfg.Maintenance.Close)
	maintenance.Post("/:id/reject-completion", cfg.Maintenance.RejectCompletion)
}
