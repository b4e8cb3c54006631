package vertex

import (
	"context"
	"fmt"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/jmoiron/sqlx"
	"github.com/sermon-search-api/internal/models"
	"github.com/sermon-search-api/internal/repository"
	"github.com/sermon-search-api/pkg/schema/db"
	"google.golang.org/api/option"
)

var _ repository.SegmentIndex = (*SegmentRepository)(nil)

// Config holds Vertex AI Vector Search configuration.
type Config struct {
	ProjectID            string // GCP project ID
	Location             string // e.g., "us-central1"
	IndexEndpointID      string // Deployed index endpoint ID
	DeployedIndexID      string // The deployed index ID within the endpoint
	PublicEndpointDomain string // Public endpoint domain for queries
}

// SegmentRepository implements repository.SegmentIndex against a single
// Vertex AI Vector Search index. Collections are separated by a "collection"
// restrict namespace set at upsert time; segment metadata still lives in
// PostgreSQL and is joined in after the neighbor lookup.
type SegmentRepository struct {
	config      Config
	matchClient *aiplatform.MatchClient
	client      *db.Client
}

// NewSegmentRepository creates a Vertex AI backed segment index.
func NewSegmentRepository(ctx context.Context, config Config, client *db.Client) (*SegmentRepository, error) {
	var endpoint string
	if config.PublicEndpointDomain != "" {
		endpoint = fmt.Sprintf("%s:443", config.PublicEndpointDomain)
	} else {
		endpoint = fmt.Sprintf("%s-aiplatform.googleapis.com:443", config.Location)
	}

	matchClient, err := aiplatform.NewMatchClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create match client: %w", err)
	}

	return &SegmentRepository{
		config:      config,
		matchClient: matchClient,
		client:      client,
	}, nil
}

// Close closes the Vertex AI client.
func (r *SegmentRepository) Close() error {
	if r.matchClient != nil {
		return r.matchClient.Close()
	}
	return nil
}

// QuerySegments performs nearest-neighbor search restricted to one collection.
func (r *SegmentRepository) QuerySegments(ctx context.Context, collection repository.Collection, embedding []float64, topK int) ([]repository.SegmentMatch, error) {
	indexEndpoint := fmt.Sprintf(
		"projects/%s/locations/%s/indexEndpoints/%s",
		r.config.ProjectID,
		r.config.Location,
		r.config.IndexEndpointID,
	)

	featureVector := make([]float32, len(embedding))
	for i, v := range embedding {
		featureVector[i] = float32(v)
	}

	req := &aiplatformpb.FindNeighborsRequest{
		IndexEndpoint:   indexEndpoint,
		DeployedIndexId: r.config.DeployedIndexID,
		Queries: []*aiplatformpb.FindNeighborsRequest_Query{
			{
				Datapoint: &aiplatformpb.IndexDatapoint{
					FeatureVector: featureVector,
					Restricts: []*aiplatformpb.IndexDatapoint_Restriction{
						{
							Namespace: "collection",
							AllowList: []string{string(collection)},
						},
					},
				},
				NeighborCount: int32(topK),
			},
		},
	}

	resp, err := r.matchClient.FindNeighbors(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}

	if len(resp.NearestNeighbors) == 0 || len(resp.NearestNeighbors[0].Neighbors) == 0 {
		return []repository.SegmentMatch{}, nil
	}
	neighbors := resp.NearestNeighbors[0].Neighbors

	segmentIDs := make([]string, len(neighbors))
	distances := make(map[string]float64, len(neighbors))
	for i, neighbor := range neighbors {
		id := neighbor.Datapoint.DatapointId
		segmentIDs[i] = id
		distances[id] = float64(neighbor.Distance)
	}

	matches, err := r.lookupSegments(ctx, collection, segmentIDs, distances)
	if err != nil {
		return nil, fmt.Errorf("lookup segments: %w", err)
	}
	return matches, nil
}

// lookupSegments retrieves segment metadata from PostgreSQL by id, preserving
// the neighbor ordering from Vertex AI.
func (r *SegmentRepository) lookupSegments(ctx context.Context, collection repository.Collection, segmentIDs []string, distances map[string]float64) ([]repository.SegmentMatch, error) {
	if len(segmentIDs) == 0 {
		return []repository.SegmentMatch{}, nil
	}

	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}

	query, args, err := sqlx.In(fmt.Sprintf(`
		SELECT segment_id,
		       COALESCE(NULLIF(title, ''), 'Sermon') AS title,
		       COALESCE(source_id, '') AS source_id,
		       COALESCE(start_time, '') AS start_time,
		       COALESCE(url, '') AS url,
		       COALESCE(timestamped_url, '') AS timestamped_url,
		       COALESCE(topics, '') AS topics,
		       text
		FROM %s
		WHERE segment_id IN (?)
	`, table), segmentIDs)
	if err != nil {
		return nil, fmt.Errorf("build IN query: %w", err)
	}

	pool := r.client.DB()
	query = pool.Rebind(query)

	rows, err := pool.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	kind := collectionKinds[collection]
	byID := make(map[string]models.Segment, len(segmentIDs))
	for rows.Next() {
		var (
			id     string
			seg    models.Segment
			topics string
		)
		if err := rows.Scan(&id, &seg.Title, &seg.SourceID, &seg.StartOffset,
			&seg.URL, &seg.TimestampedURL, &topics, &seg.Text); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Topics = splitTopics(topics)
		seg.Kind = kind
		byID[id] = seg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}

	matches := make([]repository.SegmentMatch, 0, len(segmentIDs))
	for _, id := range segmentIDs {
		if seg, ok := byID[id]; ok {
			matches = append(matches, repository.SegmentMatch{
				Segment:  seg,
				Distance: distances[id],
			})
		}
	}
	return matches, nil
}

var collectionKinds = map[repository.Collection]models.Kind{
	repository.CollectionSermons:       models.KindSermon,
	repository.CollectionIllustrations: models.KindIllustration,
	repository.CollectionWebsite:       models.KindWebsite,
}

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
