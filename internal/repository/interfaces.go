package repository

import (
	"context"

	"github.com/sermon-search-api/internal/models"
)

// Collection names the indexed corpora a query can run against.
type Collection string

const (
	CollectionSermons       Collection = "sermon_segments"
	CollectionIllustrations Collection = "illustrations"
	CollectionWebsite       Collection = "website_pages"
)

// SegmentMatch is a raw nearest-neighbor hit before any local scoring.
type SegmentMatch struct {
	Segment models.Segment
	// Distance is the provider's cosine distance (0 = identical).
	Distance float64
}

// SegmentIndex defines nearest-neighbor retrieval over indexed segments.
type SegmentIndex interface {
	// QuerySegments returns the topK nearest segments in a collection.
	QuerySegments(ctx context.Context, collection Collection, embedding []float64, topK int) ([]SegmentMatch, error)
}

// RerankScore pairs a candidate's position in the input slice with its
// cross-encoder relevance score.
type RerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Reranker defines the cross-encoder refinement pass. Implementations score
// (query, text) pairs jointly; callers fall back to their own ordering on
// error or timeout.
type Reranker interface {
	// Rerank scores texts against the query and returns scores sorted
	// descending, at most topK of them.
	Rerank(ctx context.Context, query string, texts []string, topK int) ([]RerankScore, error)
}

// StatsRepository exposes corpus-level metadata for the stats and topics
// endpoints.
type StatsRepository interface {
	CollectionCount(ctx context.Context, collection Collection) (int, error)
	UniqueSourceCount(ctx context.Context, collection Collection) (int, error)
	DistinctTopics(ctx context.Context) ([]string, error)
}
