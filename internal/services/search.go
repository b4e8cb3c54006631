package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/sermon-search-api/internal/models"
	"github.com/sermon-search-api/internal/pinned"
	"github.com/sermon-search-api/internal/ranking"
	"github.com/sermon-search-api/internal/repository"
)

// QueryEmbedder embeds a query for retrieval. Satisfied by
// pkg/schema/services.EmbeddingsService.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
}

// CollectionLimits holds the over-fetch pool size and the final result cap
// for one collection.
type CollectionLimits struct {
	Candidates int
	Results    int
}

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	Sermons       CollectionLimits
	Illustrations CollectionLimits
	Website       CollectionLimits
	RerankTimeout time.Duration
}

// DefaultConfig mirrors the production pool/cap choices: sermons over-fetch
// 20 and return 6, illustrations and website pages 10 and 3.
func DefaultConfig() Config {
	return Config{
		Sermons:       CollectionLimits{Candidates: 20, Results: 6},
		Illustrations: CollectionLimits{Candidates: 10, Results: 3},
		Website:       CollectionLimits{Candidates: 10, Results: 3},
		RerankTimeout: 90 * time.Second,
	}
}

// SearchService runs the retrieval pipeline: vector over-fetch, content
// filter, lexical + combined scoring, cross-encoder rerank, dedup, pinned
// stories, partitioned caps. Each request is stateless; any number may run
// concurrently.
type SearchService struct {
	index    repository.SegmentIndex
	reranker repository.Reranker // nil disables the rerank pass
	embedder QueryEmbedder
	matcher  *pinned.Matcher
	cfg      Config
}

// NewSearchService creates the orchestrator. reranker may be nil.
func NewSearchService(index repository.SegmentIndex, reranker repository.Reranker, embedder QueryEmbedder, matcher *pinned.Matcher, cfg Config) *SearchService {
	if cfg.Sermons.Candidates == 0 {
		cfg = DefaultConfig()
	}
	if cfg.RerankTimeout <= 0 {
		cfg.RerankTimeout = 90 * time.Second
	}
	return &SearchService{
		index:    index,
		reranker: reranker,
		embedder: embedder,
		matcher:  matcher,
		cfg:      cfg,
	}
}

// Search runs one retrieval request. It never returns an error: every
// provider failure degrades toward an empty partition, and the caller
// answers from general knowledge when no grounding is found.
func (s *SearchService) Search(ctx context.Context, req models.SearchRequest) *models.SearchResponse {
	resp := &models.SearchResponse{
		Query:         req.Query,
		Sermons:       []models.Candidate{},
		Illustrations: []models.Candidate{},
		Website:       []models.Candidate{},
	}

	paging := IsPaginationQuery(req.Query)
	effective := req.Query
	if paging {
		effective = EffectiveQuery(req.History)
		resp.Paginated = true
		resp.EffectiveQuery = effective
	}
	if strings.TrimSpace(effective) == "" {
		return resp
	}
	resp.Keywords = ranking.ExpandedKeywords(effective)

	kind := req.Kind
	if kind == "" {
		kind = models.SearchAll
	}
	profile := ranking.ProfileDefault
	if req.Strict {
		profile = ranking.ProfileStrict
	}
	offset := 0
	if paging && req.Shown > 0 {
		offset = req.Shown
	}

	embedding, err := s.embedder.EmbedQuery(ctx, effective)
	if err != nil {
		log.Printf("embed query failed, returning no grounding: %v", err)
		return resp
	}

	// Pinned clips are resolved from the effective query on every request so
	// the generic sermon list is suppressed identically on every page. Clips
	// themselves are injected on the primary response only; pagination
	// continues the generic list.
	var clips []models.Candidate
	var pinnedSources map[string]bool
	if s.matcher != nil && (kind == models.SearchAll || kind == models.SearchSermons) {
		clips, pinnedSources = s.matcher.Match(effective)
		if max := limits(req, s.cfg.Sermons).Results; len(clips) > max {
			clips = clips[:max]
		}
	}

	if kind == models.SearchAll || kind == models.SearchSermons {
		lim := limits(req, s.cfg.Sermons)
		sermonOffset := offset
		if paging {
			// The primary response spent len(clips) slots on curated clips,
			// so the generic list resumes that much earlier than the raw
			// shown count.
			sermonOffset -= len(clips)
			if sermonOffset < 0 {
				sermonOffset = 0
			}
		} else {
			lim.Results -= len(clips)
		}
		resp.Sermons, resp.HasMore = s.searchCollection(ctx, effective, embedding,
			repository.CollectionSermons, lim, profile, sermonOffset, true, pinnedSources)
		if !paging && len(clips) > 0 {
			resp.Sermons = append(clips, resp.Sermons...)
			resp.PinnedCount = len(clips)
		}
	}
	if kind == models.SearchAll || kind == models.SearchIllustrations {
		ill, more := s.searchCollection(ctx, effective, embedding,
			repository.CollectionIllustrations, limits(req, s.cfg.Illustrations), profile, offset, true, nil)
		resp.Illustrations = ill
		resp.HasMore = resp.HasMore || more
	}
	if kind == models.SearchAll || kind == models.SearchWebsite {
		web, more := s.searchCollection(ctx, effective, embedding,
			repository.CollectionWebsite, limits(req, s.cfg.Website), profile, offset, false, nil)
		resp.Website = web
		resp.HasMore = resp.HasMore || more
	}

	return resp
}

// searchCollection runs the per-collection pipeline and returns the capped
// window plus whether more results remain past it. Suppression runs before
// the window is cut so paginated requests slice the same list the primary
// request did. On index failure it returns an empty slice; the request as a
// whole still succeeds.
func (s *SearchService) searchCollection(ctx context.Context, query string, embedding []float64, collection repository.Collection, lim CollectionLimits, profile ranking.Profile, offset int, applyFilter bool, suppress map[string]bool) ([]models.Candidate, bool) {
	matches, err := s.index.QuerySegments(ctx, collection, embedding, lim.Candidates)
	if err != nil {
		log.Printf("index query failed for %s: %v", collection, err)
		return []models.Candidate{}, false
	}

	candidates := make([]models.Candidate, 0, len(matches))
	for _, m := range matches {
		if applyFilter && !ranking.KeepSegment(m.Segment.Title, m.Segment.Text) {
			continue
		}
		lex := ranking.LexicalScore(query, m.Segment.Text)
		vec := ranking.VectorScore(m.Distance)
		combined := ranking.CombinedScore(vec, lex)
		if !ranking.Accept(profile, combined, lex, query, m.Segment.Text) {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Segment:        m.Segment,
			VectorDistance: m.Distance,
			VectorScore:    vec,
			LexicalScore:   lex,
			CombinedScore:  combined,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CombinedScore > candidates[j].CombinedScore
	})

	candidates = s.rerank(ctx, query, candidates)

	// Dedup after scoring and sorting so the best instance of a duplicate
	// is the one kept, and before the final slice.
	candidates = ranking.Deduplicate(candidates)
	candidates = pinned.Suppress(candidates, suppress)

	total := len(candidates)
	if offset >= total {
		return []models.Candidate{}, false
	}
	end := offset + lim.Results
	if end > total {
		end = total
	}
	return candidates[offset:end], end < total
}

// rerank runs the cross-encoder pass over the candidate texts and reorders
// by its scores. On error or timeout the combined-score ordering stands. The
// call runs in its own goroutine so a timed-out request moves on while the
// abandoned call finishes on its own.
func (s *SearchService) rerank(ctx context.Context, query string, candidates []models.Candidate) []models.Candidate {
	if s.reranker == nil || len(candidates) == 0 {
		return candidates
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	type rerankOutcome struct {
		scores []repository.RerankScore
		err    error
	}
	ch := make(chan rerankOutcome, 1)
	go func() {
		scores, err := s.reranker.Rerank(context.WithoutCancel(ctx), query, texts, len(texts))
		ch <- rerankOutcome{scores: scores, err: err}
	}()

	timer := time.NewTimer(s.cfg.RerankTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			log.Printf("rerank failed, keeping combined ordering: %v", out.err)
			return candidates
		}
		return applyRerank(candidates, out.scores)
	case <-timer.C:
		log.Printf("rerank timed out after %s, keeping combined ordering", s.cfg.RerankTimeout)
		return candidates
	case <-ctx.Done():
		return candidates
	}
}

// applyRerank reorders candidates by rerank score. Candidates the reranker
// did not score keep their combined ordering after the scored ones.
func applyRerank(candidates []models.Candidate, scores []repository.RerankScore) []models.Candidate {
	out := make([]models.Candidate, 0, len(candidates))
	taken := make(map[int]bool, len(scores))
	for _, sc := range scores {
		if sc.Index < 0 || sc.Index >= len(candidates) || taken[sc.Index] {
			continue
		}
		taken[sc.Index] = true
		c := candidates[sc.Index]
		score := sc.Score
		c.RerankScore = &score
		out = append(out, c)
	}
	for i, c := range candidates {
		if !taken[i] {
			out = append(out, c)
		}
	}
	return out
}

func limits(req models.SearchRequest, defaults CollectionLimits) CollectionLimits {
	lim := defaults
	if req.ResultCount > 0 {
		lim.Results = req.ResultCount
	}
	if req.CandidatePoolSize > 0 {
		lim.Candidates = req.CandidatePoolSize
	}
	if lim.Candidates < lim.Results {
		lim.Candidates = lim.Results * 3
	}
	return lim
}
