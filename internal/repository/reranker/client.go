// Package reranker is an HTTP client for the cross-encoder sidecar. The
// sidecar jointly encodes (query, text) pairs, which is meaningfully more
// accurate than comparing independent embeddings but also meaningfully
// slower: cold calls can take tens of seconds, so the client carries a long
// timeout and callers are expected to degrade to their own ordering on error.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sermon-search-api/internal/repository"
)

// DefaultTimeout bounds a rerank call end to end. Model cold starts push
// latency into tens of seconds.
const DefaultTimeout = 90 * time.Second

var _ repository.Reranker = (*Client)(nil)

// Client calls the cross-encoder rerank service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a reranker client. timeout <= 0 uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
	TopK  int      `json:"top_k"`
}

type rerankResponse struct {
	Results []repository.RerankScore `json:"results"`
}

// Rerank scores texts against the query. Results come back sorted by score
// descending, at most topK of them. The call is stateless; a failed or
// abandoned call has no effect beyond its own request.
func (c *Client) Rerank(ctx context.Context, query string, texts []string, topK int) ([]repository.RerankScore, error) {
	if len(texts) == 0 {
		return []repository.RerankScore{}, nil
	}

	reqBody := rerankRequest{
		Query: query,
		Texts: texts,
		TopK:  topK,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/rerank", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call rerank service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank service error: %s", string(body))
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := rr.Results
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(texts) {
			return nil, fmt.Errorf("rerank index %d out of range", s.Index)
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if topK > 0 && topK < len(scores) {
		scores = scores[:topK]
	}
	return scores, nil
}
