package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/sermon-search-api/internal/models"
	"github.com/sermon-search-api/internal/repository"
	"github.com/sermon-search-api/pkg/schema/db"
)

var collectionKinds = map[repository.Collection]models.Kind{
	repository.CollectionSermons:       models.KindSermon,
	repository.CollectionIllustrations: models.KindIllustration,
	repository.CollectionWebsite:       models.KindWebsite,
}

// SegmentRepository implements repository.SegmentIndex over pgvector tables,
// one table per collection. A failed query triggers one reconnect-and-retry
// before giving up.
type SegmentRepository struct {
	client *db.Client
}

// NewSegmentRepository creates a pgvector-backed segment index.
func NewSegmentRepository(client *db.Client) *SegmentRepository {
	return &SegmentRepository{client: client}
}

var _ repository.SegmentIndex = (*SegmentRepository)(nil)
var _ repository.StatsRepository = (*SegmentRepository)(nil)

// QuerySegments performs cosine nearest-neighbor search in one collection.
func (r *SegmentRepository) QuerySegments(ctx context.Context, collection repository.Collection, embedding []float64, topK int) ([]repository.SegmentMatch, error) {
	matches, err := r.querySegments(ctx, collection, embedding, topK)
	if err == nil {
		return matches, nil
	}

	// Stale pool handles show up as query errors; refresh and retry once.
	if rerr := r.client.Reconnect(ctx); rerr != nil {
		return nil, fmt.Errorf("query %s: %w (reconnect also failed: %v)", collection, err, rerr)
	}
	matches, err = r.querySegments(ctx, collection, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("query %s after reconnect: %w", collection, err)
	}
	return matches, nil
}

func (r *SegmentRepository) querySegments(ctx context.Context, collection repository.Collection, embedding []float64, topK int) ([]repository.SegmentMatch, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}
	vec := pgvector.NewVector(float32Slice(embedding))

	rows, err := r.client.DB().QueryxContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(NULLIF(title, ''), 'Sermon') AS title,
		       COALESCE(source_id, '') AS source_id,
		       COALESCE(start_time, '') AS start_time,
		       COALESCE(url, '') AS url,
		       COALESCE(timestamped_url, '') AS timestamped_url,
		       COALESCE(topics, '') AS topics,
		       text,
		       embedding <=> $1::vector AS distance
		FROM %s
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, table), vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	kind := collectionKinds[collection]
	var matches []repository.SegmentMatch
	for rows.Next() {
		var (
			seg    models.Segment
			topics string
			dist   float64
		)
		if err := rows.Scan(&seg.Title, &seg.SourceID, &seg.StartOffset, &seg.URL,
			&seg.TimestampedURL, &topics, &seg.Text, &dist); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Topics = splitTopics(topics)
		seg.Kind = kind
		matches = append(matches, repository.SegmentMatch{Segment: seg, Distance: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}

	if matches == nil {
		matches = []repository.SegmentMatch{}
	}
	return matches, nil
}

// CollectionCount returns the number of indexed rows in a collection.
func (r *SegmentRepository) CollectionCount(ctx context.Context, collection repository.Collection) (int, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.client.DB().GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

// UniqueSourceCount returns the number of distinct recordings in a collection.
func (r *SegmentRepository) UniqueSourceCount(ctx context.Context, collection repository.Collection) (int, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.client.DB().GetContext(ctx, &count,
		fmt.Sprintf("SELECT COUNT(DISTINCT source_id) FROM %s WHERE source_id IS NOT NULL AND source_id <> ''", table)); err != nil {
		return 0, fmt.Errorf("count sources in %s: %w", collection, err)
	}
	return count, nil
}

// DistinctTopics collects the distinct topic tags stored on illustrations.
// Topics are stored comma-joined, so the split happens client-side.
func (r *SegmentRepository) DistinctTopics(ctx context.Context) ([]string, error) {
	var raw []string
	err := r.client.DB().SelectContext(ctx, &raw, `
		SELECT topics FROM illustrations
		WHERE topics IS NOT NULL AND topics <> ''
	`)
	if err != nil {
		return nil, fmt.Errorf("select topics: %w", err)
	}

	seen := make(map[string]struct{})
	var topics []string
	for _, row := range raw {
		for _, t := range splitTopics(row) {
			key := strings.ToLower(t)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			topics = append(topics, t)
		}
	}
	if topics == nil {
		topics = []string{}
	}
	return topics, nil
}

// tableName maps a collection to its table, rejecting anything unknown so
// collection values never reach SQL unchecked.
func tableName(collection repository.Collection) (string, error) {
	switch collection {
	case repository.CollectionSermons:
		return "sermon_segments", nil
	case repository.CollectionIllustrations:
		return "illustrations", nil
	case repository.CollectionWebsite:
		return "website_pages", nil
	}
	return "", fmt.Errorf("unknown collection %q", collection)
}

func splitTopics(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// float32Slice converts []float64 to []float32 for pgvector.
func float32Slice(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
