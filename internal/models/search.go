package models

// Kind classifies a stored segment by the type of content it carries.
type Kind string

const (
	KindSermon       Kind = "sermon-teaching"
	KindIllustration Kind = "illustration"
	KindStory        Kind = "story"
	KindJoke         Kind = "joke"
	KindHypothetical Kind = "hypothetical"
	KindQuote        Kind = "quote"
	KindWebsite      Kind = "website-info"
)

// Segment is a retrievable unit of transcript content with its source metadata.
// Segments are written once by the offline indexer and are read-only at query time.
type Segment struct {
	Text           string   `json:"text" db:"text"`
	Title          string   `json:"title" db:"title"`
	SourceID       string   `json:"source_id" db:"source_id"`
	StartOffset    string   `json:"start_time,omitempty" db:"start_time"`
	URL            string   `json:"url,omitempty" db:"url"`
	TimestampedURL string   `json:"timestamped_url,omitempty" db:"timestamped_url"`
	Topics         []string `json:"topics,omitempty"`
	Kind           Kind     `json:"kind"`
}

// Candidate is a Segment scored against one query. Candidates live only for
// the duration of a single search request and are never persisted.
type Candidate struct {
	Segment

	// VectorDistance is the raw cosine distance from the index (0 = identical).
	VectorDistance float64 `json:"-"`
	// VectorScore is 1 - VectorDistance clamped to [0, 1].
	VectorScore float64 `json:"vector_score"`
	// LexicalScore is the keyword/variant overlap score in [0, 1].
	LexicalScore float64 `json:"lexical_score"`
	// CombinedScore blends the vector and lexical signals.
	CombinedScore float64 `json:"relevance_score"`
	// RerankScore is set when the cross-encoder pass succeeded.
	RerankScore *float64 `json:"rerank_score,omitempty"`
	// Pinned marks curated clips injected by the pinned-story rules.
	Pinned bool `json:"pinned,omitempty"`
}

// SearchKind selects which collections a search request covers.
type SearchKind string

const (
	SearchAll           SearchKind = "all"
	SearchSermons       SearchKind = "sermons"
	SearchIllustrations SearchKind = "illustrations"
	SearchWebsite       SearchKind = "website"
)

// SearchRequest is the request body for POST /search.
type SearchRequest struct {
	Query string     `json:"query" validate:"required"`
	Kind  SearchKind `json:"type,omitempty"`
	// ResultCount overrides the per-collection result cap when > 0.
	ResultCount int `json:"n_results,omitempty"`
	// CandidatePoolSize overrides the vector over-fetch size when > 0.
	CandidatePoolSize int `json:"n_candidates,omitempty"`
	// Strict enables the high-precision acceptance profile.
	Strict bool `json:"strict,omitempty"`
	// History holds prior user turns, oldest first. Used to re-derive the
	// effective query for pagination ("show more") requests.
	History []string `json:"history,omitempty"`
	// Shown is how many results the caller already surfaced for the
	// effective query. Pagination requests skip that many.
	Shown int `json:"shown,omitempty"`
}

// SearchResponse is the partitioned result set for one search request.
type SearchResponse struct {
	Query string `json:"query"`
	// EffectiveQuery differs from Query on pagination requests.
	EffectiveQuery string   `json:"effective_query,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`

	Sermons       []Candidate `json:"sermons"`
	Illustrations []Candidate `json:"illustrations"`
	Website       []Candidate `json:"website"`

	PinnedCount int  `json:"pinned_count"`
	HasMore     bool `json:"has_more"`
	Paginated   bool `json:"paginated,omitempty"`
}

// Count returns the total number of results across all partitions.
func (r *SearchResponse) Count() int {
	return len(r.Sermons) + len(r.Illustrations) + len(r.Website)
}

// StatsResponse reports per-collection index sizes.
type StatsResponse struct {
	SermonSegments int `json:"sermon_segments"`
	Illustrations  int `json:"illustrations"`
	WebsitePages   int `json:"website_pages"`
	UniqueSermons  int `json:"unique_sermons"`
	DistinctTopics int `json:"distinct_topics"`
}

// TopicsResponse lists the distinct topic tags stored on illustrations.
type TopicsResponse struct {
	Topics []string `json:"topics"`
}
