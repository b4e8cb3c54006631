package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sermon-search-api/internal/models"
	"github.com/sermon-search-api/internal/services"
)

// SearchHandler handles search endpoints
type SearchHandler struct {
	search *services.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search handles POST /search - combined search across all collections
func (h *SearchHandler) Search(c echo.Context) error {
	req, err := bindSearchRequest(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.search.Search(c.Request().Context(), req))
}

// SearchSermons handles POST /search/sermons
func (h *SearchHandler) SearchSermons(c echo.Context) error {
	req, err := bindSearchRequest(c)
	if err != nil {
		return err
	}
	req.Kind = models.SearchSermons
	return c.JSON(http.StatusOK, h.search.Search(c.Request().Context(), req))
}

// SearchIllustrations handles POST /search/illustrations
func (h *SearchHandler) SearchIllustrations(c echo.Context) error {
	req, err := bindSearchRequest(c)
	if err != nil {
		return err
	}
	req.Kind = models.SearchIllustrations
	return c.JSON(http.StatusOK, h.search.Search(c.Request().Context(), req))
}

// SearchWebsite handles POST /search/website
func (h *SearchHandler) SearchWebsite(c echo.Context) error {
	req, err := bindSearchRequest(c)
	if err != nil {
		return err
	}
	req.Kind = models.SearchWebsite
	return c.JSON(http.StatusOK, h.search.Search(c.Request().Context(), req))
}

func bindSearchRequest(c echo.Context) (models.SearchRequest, error) {
	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Query == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "Query is required")
	}
	if req.ResultCount < 0 || req.ResultCount > 50 {
		req.ResultCount = 0
	}
	if req.CandidatePoolSize < 0 || req.CandidatePoolSize > 100 {
		req.CandidatePoolSize = 0
	}
	return req, nil
}

// RegisterRoutes registers search routes
func (h *SearchHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/search", h.Search)
	g.POST("/search/sermons", h.SearchSermons)
	g.POST("/search/illustrations", h.SearchIllustrations)
	g.POST("/search/website", h.SearchWebsite)
}
