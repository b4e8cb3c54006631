package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sermon-search-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStats struct {
	counts  map[repository.Collection]int
	uniques int
	topics  []string
}

func (s stubStats) CollectionCount(_ context.Context, collection repository.Collection) (int, error) {
	n, ok := s.counts[collection]
	if !ok {
		return 0, errors.New("no such collection")
	}
	return n, nil
}

func (s stubStats) UniqueSourceCount(context.Context, repository.Collection) (int, error) {
	return s.uniques, nil
}

func (s stubStats) DistinctTopics(context.Context) ([]string, error) {
	return s.topics, nil
}

func doHealth(t *testing.T, h *HealthHandler) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Health(e.NewContext(req, rec)))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHealth(t *testing.T) {
	rec, resp := doHealth(t, NewHealthHandler(nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.Collections)
}

func TestHealthReportsCollectionCounts(t *testing.T) {
	stats := stubStats{counts: map[repository.Collection]int{
		repository.CollectionSermons:       120,
		repository.CollectionIllustrations: 35,
	}}

	rec, resp := doHealth(t, NewHealthHandler(nil, stats))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 120, resp.Collections["sermon_segments"])
	assert.Equal(t, 35, resp.Collections["illustrations"])

	// The failing website lookup is skipped, not fatal.
	_, ok := resp.Collections["website_pages"]
	assert.False(t, ok)
}

func TestPostgresHealthNotConfigured(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/postgres", nil)
	rec := httptest.NewRecorder()

	h := NewHealthHandler(nil, nil)
	require.NoError(t, h.PostgresHealth(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
