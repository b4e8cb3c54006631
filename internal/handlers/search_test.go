package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sermon-search-api/internal/models"
	"github.com/sermon-search-api/internal/repository"
	"github.com/sermon-search-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIndex struct{}

func (stubIndex) QuerySegments(_ context.Context, collection repository.Collection, _ []float64, _ int) ([]repository.SegmentMatch, error) {
	if collection != repository.CollectionSermons {
		return []repository.SegmentMatch{}, nil
	}
	return []repository.SegmentMatch{
		{
			Segment: models.Segment{
				Title: "The Cost",
				Text: "A passage about forgiveness and its cost. Paul goes on to remind the " +
					"church that endurance is produced through testing and refined by it.",
				SourceID: "abc123",
				Kind:     models.KindSermon,
			},
			Distance: 0.3,
		},
	}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(context.Context, string) ([]float64, error) {
	return []float64{0.1, 0.2}, nil
}

func newTestHandler() *SearchHandler {
	svc := services.NewSearchService(stubIndex{}, nil, stubEmbedder{}, nil, services.Config{})
	return NewSearchHandler(svc)
}

func doSearch(t *testing.T, handlerFn echo.HandlerFunc, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, handlerFn(e.NewContext(req, rec))
}

func TestSearch(t *testing.T) {
	rec, err := doSearch(t, newTestHandler().Search, `{"query": "forgiveness"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "forgiveness", resp.Query)
	require.Len(t, resp.Sermons, 1)
	assert.Equal(t, "The Cost", resp.Sermons[0].Title)
	assert.Empty(t, resp.Illustrations)
	assert.Empty(t, resp.Website)
}

func TestSearchMissingQuery(t *testing.T) {
	_, err := doSearch(t, newTestHandler().Search, `{}`)
	require.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSearchInvalidBody(t *testing.T) {
	_, err := doSearch(t, newTestHandler().Search, `{not json`)
	require.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSearchSermonsForcesKind(t *testing.T) {
	// The kind in the body is overridden by the endpoint.
	rec, err := doSearch(t, newTestHandler().SearchSermons, `{"query": "forgiveness", "type": "website"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Sermons, 1)
	assert.Empty(t, resp.Website)
}

func TestSearchClampsResultCount(t *testing.T) {
	// Out-of-range overrides fall back to the configured defaults instead of
	// erroring.
	rec, err := doSearch(t, newTestHandler().Search, `{"query": "forgiveness", "n_results": 500}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
