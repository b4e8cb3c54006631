package services

import (
	"context"
	"fmt"

	"github.com/sermon-search-api/pkg/schema/config"
)

// EmbeddingsService handles text embedding operations using a pluggable
// backend. It is constructed once at startup and injected where needed.
type EmbeddingsService struct {
	embedder Embedder
}

// NewEmbeddingsService creates an embeddings service for the configured
// provider.
func NewEmbeddingsService(ctx context.Context, cfg *config.Config) (*EmbeddingsService, error) {
	var embedder Embedder
	switch cfg.EmbeddingProvider {
	case "vertex":
		var err error
		embedder, err = NewVertexEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create Vertex AI embedder: %w", err)
		}
	default:
		embedder = NewCustomEmbedder(cfg)
	}

	return &EmbeddingsService{embedder: embedder}, nil
}

// EmbedQuery embeds a query for retrieval
func (s *EmbeddingsService) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return s.embedder.Embed(ctx, query, TaskTypeQuery)
}

// EmbedSegment embeds a transcript segment as a document for retrieval
func (s *EmbeddingsService) EmbedSegment(ctx context.Context, text string) ([]float64, error) {
	return s.embedder.Embed(ctx, text, TaskTypeDocument)
}

// EmbedSegments embeds a batch of transcript segments
func (s *EmbeddingsService) EmbedSegments(ctx context.Context, texts []string) ([][]float64, error) {
	return s.embedder.EmbedBatch(ctx, texts, TaskTypeDocument)
}
