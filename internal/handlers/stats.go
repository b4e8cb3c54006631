package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sermon-search-api/internal/models"
	"github.com/sermon-search-api/internal/repository"
)

// StatsHandler serves corpus-level metadata: topic tags and index sizes.
type StatsHandler struct {
	stats repository.StatsRepository
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats repository.StatsRepository) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Topics handles GET /topics
func (h *StatsHandler) Topics(c echo.Context) error {
	ctx := c.Request().Context()

	topics, err := h.stats.DistinctTopics(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Topics lookup failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, models.TopicsResponse{Topics: topics})
}

// Stats handles GET /stats
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	var resp models.StatsResponse
	var err error

	if resp.SermonSegments, err = h.stats.CollectionCount(ctx, repository.CollectionSermons); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Stats lookup failed: "+err.Error())
	}
	if resp.Illustrations, err = h.stats.CollectionCount(ctx, repository.CollectionIllustrations); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Stats lookup failed: "+err.Error())
	}
	if resp.WebsitePages, err = h.stats.CollectionCount(ctx, repository.CollectionWebsite); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Stats lookup failed: "+err.Error())
	}
	if resp.UniqueSermons, err = h.stats.UniqueSourceCount(ctx, repository.CollectionSermons); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Stats lookup failed: "+err.Error())
	}

	topics, err := h.stats.DistinctTopics(ctx)
	if err != nil {
		c.Logger().Warnf("Distinct topics failed: %v", err)
	} else {
		resp.DistinctTopics = len(topics)
	}

	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers stats routes
func (h *StatsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/topics", h.Topics)
	g.GET("/stats", h.Stats)
}
