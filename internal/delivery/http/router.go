package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Territories; static paths before :id
		api.Post("/territories", handler.CreateTerritories)
		api.Post("/territories/conflicts", handler.CheckConflicts)
		api.Get("/territories", handler.ListTerritories)
		api.Get("/territories/near", handler.NearTerritories)
		api.Get("/territories/geojson", handler.TerritoriesGeoJSON)
		api.Get("/territories/:id", handler.GetTerritory)
		api.Post("/territories/:id/conquer", handler.ConquerTerritory)

		// Users
		api.Get("/users/:id", handler.GetUser)
		api.Get("/users/:id/territories", handler.GetUserTerritories)
		api.Put("/users/:id", handler.PutUser)

		api.Get("/leaderboard", handler.GetLeaderboard)
	}
}
