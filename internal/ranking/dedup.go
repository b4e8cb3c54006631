package ranking

import (
	"strings"

	"github.com/sermon-search-api/internal/models"
)

// dedupPrefixLen is how much normalized text identifies a segment. Overlapping
// chunk windows share their opening text, so a prefix is enough.
const dedupPrefixLen = 200

// Deduplicate collapses candidates that are the same underlying content.
// Input must already be sorted best-first: the first occurrence of each key
// wins, so the highest-scored instance is the one retained. Illustrations key
// on (title, timestamp) since curated clips share opening phrases.
func Deduplicate(candidates []models.Candidate) []models.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		key := dedupKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func dedupKey(c models.Candidate) string {
	if c.Kind == models.KindIllustration || c.Kind == models.KindStory {
		return "ill|" + strings.ToLower(c.Title) + "|" + c.StartOffset
	}
	text := strings.ToLower(strings.Join(strings.Fields(c.Text), " "))
	if len(text) > dedupPrefixLen {
		// Drop any rune split by the byte cut so the key stays valid UTF-8.
		text = strings.ToValidUTF8(text[:dedupPrefixLen], "")
	}
	return "txt|" + text
}
