package services

import "context"

// TaskType tells the embedding model which side of retrieval a text sits on.
// Queries and stored passages embed differently under asymmetric models.
type TaskType string

const (
	TaskTypeQuery    TaskType = "RETRIEVAL_QUERY"
	TaskTypeDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// Embedder turns text into vectors. Implementations exist for Vertex AI and
// for a self-hosted HTTP embedding service.
type Embedder interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string, taskType TaskType) ([]float64, error)

	// EmbedBatch generates embeddings for multiple texts in one call
	EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float64, error)
}
