package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts the API surface on the app. Shared between the
// API binary and handler tests.
func RegisterRoutes(app *fiber.App, h *APIHandlers) {
	app.Get("/healthz", h.Liveness)
	app.Get("/readyz", h.HealthCheck)

	users := app.Group("/users")
	users.Post("/", h.CreateUser)
	users.Get("/:id", h.GetUser)

	targets := app.Group("/targets")
	targets.Post("/", h.CreateTarget)
	targets.Get("/", h.GetTargets)
	targets.Get("/:id", h.GetTarget)
	targets.Patch("/:id", h.UpdateTarget)
	targets.Delete("/:id", h.DeleteTarget)
	targets.Get("/:id/changes", h.GetTargetChanges)
}
