// Package pinned guarantees deterministic, curated answers for a small set of
// recurring personal-story questions where generic retrieval is unreliable
// because the answer is one specific narrative in one or two known recordings.
package pinned

import (
	"strings"

	"github.com/sermon-search-api/internal/models"
)

// Rule pairs trigger phrases with the curated clips they pin. Rules are
// evaluated in order; more than one rule may fire for a single query.
type Rule struct {
	Name     string
	Triggers []string
	Clips    []Clip
}

// Clip is a hand-curated segment with a fixed relevance weight that keeps it
// ahead of generically retrieved candidates.
type Clip struct {
	Segment models.Segment
	Weight  float64
}

// Matcher evaluates an ordered rule list against normalized queries.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher over the given rules. Use DefaultRules for
// the stock table.
func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{rules: rules}
}

// normalize lowercases the query and unifies curly quote characters so
// "bob's wife" matches however the client typed the apostrophe.
func normalize(query string) string {
	q := strings.ToLower(query)
	q = strings.ReplaceAll(q, "’", "'")
	q = strings.ReplaceAll(q, "‘", "'")
	return q
}

// Match returns the pinned candidates for a query plus the set of source ids
// they cover. Clips are returned in rule order, one per source id.
func (m *Matcher) Match(query string) ([]models.Candidate, map[string]bool) {
	q := normalize(query)
	var out []models.Candidate
	sources := make(map[string]bool)

	for _, rule := range m.rules {
		if !triggered(q, rule.Triggers) {
			continue
		}
		for _, clip := range rule.Clips {
			if sources[clip.Segment.SourceID] {
				continue
			}
			sources[clip.Segment.SourceID] = true
			weight := clip.Weight
			out = append(out, models.Candidate{
				Segment:       clip.Segment,
				CombinedScore: weight,
				RerankScore:   &weight,
				Pinned:        true,
			})
		}
	}
	return out, sources
}

func triggered(normalizedQuery string, triggers []string) bool {
	for _, t := range triggers {
		if strings.Contains(normalizedQuery, t) {
			return true
		}
	}
	return false
}

// Suppress drops generic candidates that share a source id with a pinned
// clip, so a recording is never cited twice for the same answer.
func Suppress(candidates []models.Candidate, pinnedSources map[string]bool) []models.Candidate {
	if len(pinnedSources) == 0 {
		return candidates
	}
	out := candidates[:0:0]
	for _, c := range candidates {
		if pinnedSources[c.SourceID] {
			continue
		}
		out = append(out, c)
	}
	return out
}
