package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sermon-search-api/internal/repository"
	"github.com/sermon-search-api/pkg/schema/db"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db    *db.Client
	stats repository.StatsRepository
}

// NewHealthHandler creates a new health handler. Either dependency may be
// nil; the basic check still answers.
func NewHealthHandler(client *db.Client, stats repository.StatsRepository) *HealthHandler {
	return &HealthHandler{db: client, stats: stats}
}

// HealthResponse is the response for basic health check
type HealthResponse struct {
	Status      string         `json:"status"`
	Collections map[string]int `json:"collections,omitempty"`
}

// DatabaseHealthResponse is the response for database health check
type DatabaseHealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health handles GET /health. Collection counts are best effort; a failing
// index lookup does not make the service unhealthy.
func (h *HealthHandler) Health(c echo.Context) error {
	resp := HealthResponse{Status: "healthy"}

	if h.stats != nil {
		ctx := c.Request().Context()
		counts := make(map[string]int)
		for _, collection := range []repository.Collection{
			repository.CollectionSermons,
			repository.CollectionIllustrations,
			repository.CollectionWebsite,
		} {
			n, err := h.stats.CollectionCount(ctx, collection)
			if err != nil {
				c.Logger().Warnf("Collection count failed for %s: %v", collection, err)
				continue
			}
			counts[string(collection)] = n
		}
		if len(counts) > 0 {
			resp.Collections = counts
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// PostgresHealth handles GET /health/postgres
func (h *HealthHandler) PostgresHealth(c echo.Context) error {
	if h.db == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_configured",
			"error":  "PostgreSQL is not configured",
		})
	}

	if err := h.db.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, DatabaseHealthResponse{
		Status:   "connected",
		Database: "postgres",
	})
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/health/postgres", h.PostgresHealth)
}
