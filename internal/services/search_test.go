package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sermon-search-api/internal/models"
	"github.com/sermon-search-api/internal/pinned"
	"github.com/sermon-search-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	queryFn func(ctx context.Context, collection repository.Collection, embedding []float64, topK int) ([]repository.SegmentMatch, error)
}

func (f *fakeIndex) QuerySegments(ctx context.Context, collection repository.Collection, embedding []float64, topK int) ([]repository.SegmentMatch, error) {
	return f.queryFn(ctx, collection, embedding, topK)
}

type fakeEmbedder struct {
	embedFn func(ctx context.Context, query string) ([]float64, error)
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	if f.embedFn != nil {
		return f.embedFn(ctx, query)
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

type fakeReranker struct {
	rerankFn func(ctx context.Context, query string, texts []string, topK int) ([]repository.RerankScore, error)
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, texts []string, topK int) ([]repository.RerankScore, error) {
	return f.rerankFn(ctx, query, texts, topK)
}

const fillerText = " Paul goes on to remind the church that endurance is produced through " +
	"testing, and that the God who began a good work will carry it on to completion."

func teachingMatch(title, text string, distance float64) repository.SegmentMatch {
	return repository.SegmentMatch{
		Segment: models.Segment{
			Title:    title,
			Text:     text,
			SourceID: "src-" + title,
			Kind:     models.KindSermon,
		},
		Distance: distance,
	}
}

func sermonsOnly(matches []repository.SegmentMatch) *fakeIndex {
	return &fakeIndex{
		queryFn: func(_ context.Context, collection repository.Collection, _ []float64, _ int) ([]repository.SegmentMatch, error) {
			if collection != repository.CollectionSermons {
				return []repository.SegmentMatch{}, nil
			}
			return matches, nil
		},
	}
}

func TestSearchRanksByCombinedScore(t *testing.T) {
	matches := []repository.SegmentMatch{
		// Closer vector but no keyword overlap: 0.8*0.6 = 0.48.
		teachingMatch("Pressing On", "A passage about endurance through trials."+fillerText, 0.2),
		// Further vector but exact keyword hit: 0.6*0.6 + 1.0*0.4 = 0.76.
		teachingMatch("The Cost", "A passage about forgiveness and its cost."+fillerText, 0.4),
	}

	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, nil, Config{})
	resp := svc.Search(context.Background(), models.SearchRequest{
		Query: "forgiveness",
		Kind:  models.SearchSermons,
	})

	require.Len(t, resp.Sermons, 2)
	assert.Equal(t, "The Cost", resp.Sermons[0].Title)
	assert.Equal(t, "Pressing On", resp.Sermons[1].Title)

	assert.InDelta(t, 0.76, resp.Sermons[0].CombinedScore, 1e-9)
	assert.InDelta(t, 1.0, resp.Sermons[0].LexicalScore, 1e-9)
	assert.InDelta(t, 0.6, resp.Sermons[0].VectorScore, 1e-9)

	assert.Contains(t, resp.Keywords, "forgiveness")
	assert.Contains(t, resp.Keywords, "forgive")
	assert.False(t, resp.HasMore)
	assert.Empty(t, resp.Illustrations)
	assert.Empty(t, resp.Website)
}

func TestSearchRanksDenseMentionAboveAside(t *testing.T) {
	matches := []repository.SegmentMatch{
		// Passing mention in an unrelated context.
		teachingMatch("Budgeting God's Way",
			"When we talk about money, extend forgiveness of debts the way a bank "+
				"might, and plan your household budget with generosity in mind.", 0.3),
		// Dense teaching on the queried topic.
		teachingMatch("Seventy Times Seven",
			"Jesus tells Peter to forgive not seven times but seventy times seven. "+
				"To forgive someone is a decision, and when you forgive you release "+
				"the debt. Forgive as the Lord forgave you.", 0.3),
	}

	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, nil, Config{})
	resp := svc.Search(context.Background(), models.SearchRequest{
		Query: "How do I forgive someone?",
		Kind:  models.SearchSermons,
	})

	require.Len(t, resp.Sermons, 2)
	assert.Equal(t, "Seventy Times Seven", resp.Sermons[0].Title)
	assert.Greater(t, resp.Sermons[0].CombinedScore, resp.Sermons[1].CombinedScore)
}

func TestSearchFiltersNoise(t *testing.T) {
	matches := []repository.SegmentMatch{
		teachingMatch("Unknown Sermon", "A passage about forgiveness."+fillerText, 0.1),
		teachingMatch("Standalone", "Too short to be teaching.", 0.1),
		teachingMatch("The Cost", "A passage about forgiveness and its cost."+fillerText, 0.3),
	}

	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, nil, Config{})
	resp := svc.Search(context.Background(), models.SearchRequest{
		Query: "forgiveness",
		Kind:  models.SearchSermons,
	})

	require.Len(t, resp.Sermons, 1)
	assert.Equal(t, "The Cost", resp.Sermons[0].Title)
}

func TestSearchRejectsBelowThresholds(t *testing.T) {
	matches := []repository.SegmentMatch{
		// 0.1*0.6 = 0.06 combined, no keyword overlap.
		teachingMatch("Far Off", "A passage about something unrelated entirely."+fillerText, 0.9),
	}

	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, nil, Config{})
	resp := svc.Search(context.Background(), models.SearchRequest{
		Query: "forgiveness",
		Kind:  models.SearchSermons,
	})

	assert.Empty(t, resp.Sermons)
	assert.Equal(t, 0, resp.Count())
}

func TestSearchStrictProfile(t *testing.T) {
	// Mentions "believe" but nothing in the forgiveness family.
	matches := []repository.SegmentMatch{
		teachingMatch("One Topic", "You simply have to believe what God has said."+fillerText, 0.2),
	}

	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, nil, Config{})

	relaxed := svc.Search(context.Background(), models.SearchRequest{
		Query: "faith forgiveness",
		Kind:  models.SearchSermons,
	})
	require.Len(t, relaxed.Sermons, 1)

	strict := svc.Search(context.Background(), models.SearchRequest{
		Query:  "faith forgiveness",
		Kind:   models.SearchSermons,
		Strict: true,
	})
	assert.Empty(t, strict.Sermons)
}

func TestSearchRerankReorders(t *testing.T) {
	matches := []repository.SegmentMatch{
		teachingMatch("The Cost", "A passage about forgiveness and its cost."+fillerText, 0.2),
		teachingMatch("Pressing On", "Another passage about forgiveness in marriage."+fillerText, 0.4),
	}

	reranker := &fakeReranker{
		rerankFn: func(_ context.Context, _ string, texts []string, _ int) ([]repository.RerankScore, error) {
			require.Len(t, texts, 2)
			return []repository.RerankScore{
				{Index: 1, Score: 0.9},
				{Index: 0, Score: 0.2},
			}, nil
		},
	}

	svc := NewSearchService(sermonsOnly(matches), reranker, &fakeEmbedder{}, nil, Config{})
	resp := svc.Search(context.Background(), models.SearchRequest{
		Query: "forgiveness",
		Kind:  models.SearchSermons,
	})

	require.Len(t, resp.Sermons, 2)
	assert.Equal(t, "Pressing On", resp.Sermons[0].Title)
	require.NotNil(t, resp.Sermons[0].RerankScore)
	assert.Equal(t, 0.9, *resp.Sermons[0].RerankScore)
	require.NotNil(t, resp.Sermons[1].RerankScore)
	assert.Equal(t, 0.2, *resp.Sermons[1].RerankScore)
}

func TestSearchRerankTimeoutKeepsOrdering(t *testing.T) {
	matches := []repository.SegmentMatch{
		teachingMatch("The Cost", "A passage about forgiveness and its cost."+fillerText, 0.2),
		teachingMatch("Pressing On", "Another passage about forgiveness in marriage."+fillerText, 0.4),
	}

	reranker := &fakeReranker{
		rerankFn: func(_ context.Context, _ string, _ []string, _ int) ([]repository.RerankScore, error) {
			time.Sleep(500 * time.Millisecond)
			return nil, nil
		},
	}

	cfg := DefaultConfig()
	cfg.RerankTimeout = 20 * time.Millisecond
	svc := NewSearchService(sermonsOnly(matches), reranker, &fakeEmbedder{}, nil, cfg)

	resp := svc.Search(context.Background(), models.SearchRequest{
		Query: "forgiveness",
		Kind:  models.SearchSermons,
	})

	// The combined-score ordering stands and results still flow.
	require.Len(t, resp.Sermons, 2)
	assert.Equal(t, "The Cost", resp.Sermons[0].Title)
	assert.Nil(t, resp.Sermons[0].RerankScore)
}

func TestSearchRerankErrorKeepsOrdering(t *testing.T) {
	matches := []repository.SegmentMatch{
		teachingMatch("The Cost", "A passage about forgiveness and its cost."+fillerText, 0.2),
	}

	reranker := &fakeReranker{
		rerankFn: func(_ context.Context, _ string, _ []string, _ int) ([]repository.RerankScore, error) {
			return nil, errors.New("model loading")
		},
	}

	svc := NewSearchService(sermonsOnly(matches), reranker, &fakeEmbedder{}, nil, Config{})
	resp := svc.Search(context.Background(), models.SearchRequest{
		Query: "forgiveness",
		Kind:  models.SearchSermons,
	})

	require.Len(t, resp.Sermons, 1)
	assert.Nil(t, resp.Sermons[0].RerankScore)
}

func TestSearchPinnedStories(t *testing.T) {
	matches := []repository.SegmentMatch{
		// Same recording as a pinned clip; must be suppressed.
		{
			Segment: models.Segment{
				Title:    "How To Press On (03/26/2017)",
				Text:     "A generic retrieved chunk from the same recording as the pinned clip." + fillerText,
				SourceID: "sGIJP13TxPQ",
				Kind:     models.KindSermon,
			},
			Distance: 0.2,
		},
		teachingMatch("Different Recording", "A generic chunk from an unrelated recording."+fillerText, 0.3),
	}

	matcher := pinned.NewMatcher(pinned.DefaultRules())
	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, matcher, Config{})

	resp := svc.Search(context.Background(), models.SearchRequest{
		Query: "how did bob meet becky",
		Kind:  models.SearchSermons,
	})

	require.GreaterOrEqual(t, len(resp.Sermons), 3)
	assert.Equal(t, 2, resp.PinnedCount)
	assert.True(t, resp.Sermons[0].Pinned)
	assert.True(t, resp.Sermons[1].Pinned)
	assert.Equal(t, "How To Press On (03/26/2017)", resp.Sermons[0].Title)

	for _, c := range resp.Sermons[2:] {
		assert.NotEqual(t, "sGIJP13TxPQ", c.SourceID, "suppressed recording leaked through")
		assert.False(t, c.Pinned)
	}
}

func TestSearchPinnedSuppressionPersistsAcrossPages(t *testing.T) {
	matches := []repository.SegmentMatch{
		{
			Segment: models.Segment{
				Title:    "How To Press On (03/26/2017)",
				Text:     "A generic retrieved chunk from the pinned recording." + fillerText,
				SourceID: "sGIJP13TxPQ",
				Kind:     models.KindSermon,
			},
			Distance: 0.15,
		},
		{
			Segment: models.Segment{
				Title:    "How To Press On (03/26/2017)",
				Text:     "A second chunk from the pinned recording, later in the message." + fillerText,
				SourceID: "sGIJP13TxPQ",
				Kind:     models.KindSermon,
			},
			Distance: 0.18,
		},
	}
	for i := 1; i <= 6; i++ {
		matches = append(matches, teachingMatch(
			fmt.Sprintf("Sermon %d", i),
			fmt.Sprintf("Passage %d about pressing on in faith.", i)+fillerText,
			0.2+float64(i)*0.05,
		))
	}

	matcher := pinned.NewMatcher(pinned.DefaultRules())
	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, matcher, Config{})

	first := svc.Search(context.Background(), models.SearchRequest{
		Query: "how did bob meet becky",
		Kind:  models.SearchSermons,
	})
	require.Len(t, first.Sermons, 6)
	assert.Equal(t, 2, first.PinnedCount)
	// Two generic candidates remain past the window the clips shortened.
	assert.True(t, first.HasMore)

	second := svc.Search(context.Background(), models.SearchRequest{
		Query:   "more",
		Kind:    models.SearchSermons,
		History: []string{"how did bob meet becky", "more"},
		Shown:   len(first.Sermons),
	})
	require.Len(t, second.Sermons, 2)
	assert.False(t, second.HasMore)
	assert.Zero(t, second.PinnedCount)

	shown := make(map[string]bool)
	for _, c := range first.Sermons {
		shown[c.Text] = true
	}
	for _, c := range second.Sermons {
		assert.False(t, shown[c.Text], "pagination repeated %q", c.Title)
		assert.NotEqual(t, "sGIJP13TxPQ", c.SourceID, "suppressed recording resurfaced")
		assert.NotEqual(t, "BRd6nCCTLKI", c.SourceID, "suppressed recording resurfaced")
	}
}

func TestSearchPaginationDoesNotRepeat(t *testing.T) {
	var matches []repository.SegmentMatch
	for i := 0; i < 8; i++ {
		matches = append(matches, teachingMatch(
			fmt.Sprintf("Sermon %d", i),
			fmt.Sprintf("Passage %d about forgiveness and restoration.", i)+fillerText,
			0.2+float64(i)*0.05,
		))
	}

	matcher := pinned.NewMatcher(pinned.DefaultRules())
	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, matcher, Config{})

	first := svc.Search(context.Background(), models.SearchRequest{
		Query: "tell me about forgiveness",
		Kind:  models.SearchSermons,
	})
	require.Len(t, first.Sermons, 6)
	assert.True(t, first.HasMore)
	assert.False(t, first.Paginated)

	second := svc.Search(context.Background(), models.SearchRequest{
		Query:   "more",
		Kind:    models.SearchSermons,
		History: []string{"tell me about forgiveness", "more"},
		Shown:   len(first.Sermons),
	})
	require.Len(t, second.Sermons, 2)
	assert.True(t, second.Paginated)
	assert.Equal(t, "tell me about forgiveness", second.EffectiveQuery)
	assert.False(t, second.HasMore)
	assert.Zero(t, second.PinnedCount)

	shown := make(map[string]bool)
	for _, c := range first.Sermons {
		shown[c.Text] = true
	}
	for _, c := range second.Sermons {
		assert.False(t, shown[c.Text], "pagination repeated %q", c.Title)
	}
}

func TestSearchPaginationWithoutHistory(t *testing.T) {
	svc := NewSearchService(sermonsOnly(nil), nil, &fakeEmbedder{}, nil, Config{})

	resp := svc.Search(context.Background(), models.SearchRequest{Query: "show me more"})
	assert.True(t, resp.Paginated)
	assert.Equal(t, 0, resp.Count())
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := NewSearchService(sermonsOnly(nil), nil, &fakeEmbedder{}, nil, Config{})

	resp := svc.Search(context.Background(), models.SearchRequest{Query: "   "})
	assert.NotNil(t, resp.Sermons)
	assert.NotNil(t, resp.Illustrations)
	assert.NotNil(t, resp.Website)
	assert.Equal(t, 0, resp.Count())
}

func TestSearchEmbedFailureDegrades(t *testing.T) {
	embedder := &fakeEmbedder{
		embedFn: func(_ context.Context, _ string) ([]float64, error) {
			return nil, errors.New("provider unavailable")
		},
	}
	svc := NewSearchService(sermonsOnly(nil), nil, embedder, nil, Config{})

	resp := svc.Search(context.Background(), models.SearchRequest{Query: "forgiveness"})
	assert.Equal(t, 0, resp.Count())
}

func TestSearchIndexFailureDegrades(t *testing.T) {
	index := &fakeIndex{
		queryFn: func(_ context.Context, _ repository.Collection, _ []float64, _ int) ([]repository.SegmentMatch, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := NewSearchService(index, nil, &fakeEmbedder{}, nil, Config{})

	resp := svc.Search(context.Background(), models.SearchRequest{Query: "forgiveness"})
	assert.Equal(t, 0, resp.Count())
}

func TestSearchPartitionsByCollection(t *testing.T) {
	index := &fakeIndex{
		queryFn: func(_ context.Context, collection repository.Collection, _ []float64, _ int) ([]repository.SegmentMatch, error) {
			switch collection {
			case repository.CollectionSermons:
				return []repository.SegmentMatch{
					teachingMatch("The Cost", "A passage about forgiveness and its cost."+fillerText, 0.3),
				}, nil
			case repository.CollectionIllustrations:
				return []repository.SegmentMatch{
					{
						Segment: models.Segment{
							Title: "Who Cares? (12/10/2017)",
							Text:  "An illustration about forgiveness between two brothers." + fillerText,
							Kind:  models.KindIllustration,
						},
						Distance: 0.3,
					},
				}, nil
			case repository.CollectionWebsite:
				// Short page snippet; the teaching filter does not apply here.
				return []repository.SegmentMatch{
					{
						Segment: models.Segment{
							Title: "About Us",
							Text:  "Our teaching emphasizes forgiveness and grace.",
							Kind:  models.KindWebsite,
						},
						Distance: 0.3,
					},
				}, nil
			}
			return nil, nil
		},
	}

	svc := NewSearchService(index, nil, &fakeEmbedder{}, nil, Config{})
	resp := svc.Search(context.Background(), models.SearchRequest{Query: "forgiveness"})

	assert.Len(t, resp.Sermons, 1)
	assert.Len(t, resp.Illustrations, 1)
	assert.Len(t, resp.Website, 1)
	assert.Equal(t, models.KindWebsite, resp.Website[0].Kind)
}

func TestSearchResultCountOverride(t *testing.T) {
	var matches []repository.SegmentMatch
	for i := 0; i < 5; i++ {
		matches = append(matches, teachingMatch(
			fmt.Sprintf("Sermon %d", i),
			fmt.Sprintf("Passage %d about forgiveness and restoration.", i)+fillerText,
			0.2,
		))
	}

	svc := NewSearchService(sermonsOnly(matches), nil, &fakeEmbedder{}, nil, Config{})
	resp := svc.Search(context.Background(), models.SearchRequest{
		Query:       "forgiveness",
		Kind:        models.SearchSermons,
		ResultCount: 2,
	})

	assert.Len(t, resp.Sermons, 2)
	assert.True(t, resp.HasMore)
}
