package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank(t *testing.T) {
	var got rerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"index": 1, "score": 0.4},
				{"index": 0, "score": 0.9},
				{"index": 2, "score": 0.1},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	scores, err := c.Rerank(context.Background(), "forgiveness", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)

	assert.Equal(t, "forgiveness", got.Query)
	assert.Equal(t, []string{"a", "b", "c"}, got.Texts)
	assert.Equal(t, 2, got.TopK)

	// Sorted by score descending and truncated to topK.
	require.Len(t, scores, 2)
	assert.Equal(t, 0, scores[0].Index)
	assert.Equal(t, 0.9, scores[0].Score)
	assert.Equal(t, 1, scores[1].Index)
}

func TestRerankEmptyTexts(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	scores, err := c.Rerank(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestRerankServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model still loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Rerank(context.Background(), "q", []string{"a"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model still loading")
}

func TestRerankIndexOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{{"index": 7, "score": 0.9}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Rerank(context.Background(), "q", []string{"a"}, 1)
	assert.Error(t, err)
}

func TestRerankContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Rerank(ctx, "q", []string{"a"}, 1)
	assert.Error(t, err)
}
