package ranking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sermon-search-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sermonCandidate(text string, score float64) models.Candidate {
	return models.Candidate{
		Segment: models.Segment{
			Text:  text,
			Title: "Be Faithful - 2 Timothy 1",
			Kind:  models.KindSermon,
		},
		CombinedScore: score,
	}
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	// Sorted best-first, as the pipeline guarantees. The second candidate is
	// the same content with different whitespace and casing.
	in := []models.Candidate{
		sermonCandidate("Guard the good deposit entrusted to you.", 0.9),
		sermonCandidate("guard  the good   deposit entrusted to you.", 0.7),
		sermonCandidate("A completely different passage about endurance.", 0.5),
	}

	out := Deduplicate(in)
	require.Len(t, out, 2)
	assert.Equal(t, 0.9, out[0].CombinedScore)
	assert.Equal(t, "A completely different passage about endurance.", out[1].Text)
}

func TestDeduplicateIllustrationsKeyOnTitleAndTimestamp(t *testing.T) {
	ill := func(title, offset string) models.Candidate {
		return models.Candidate{
			Segment: models.Segment{
				// Curated clips often share their opening narration.
				Text:        "Pastor Bob tells the story of the lost hiker.",
				Title:       title,
				StartOffset: offset,
				Kind:        models.KindIllustration,
			},
		}
	}

	in := []models.Candidate{
		ill("Who Cares? (12/10/2017)", "33:34"),
		ill("Who Cares? (12/10/2017)", "33:34"),
		ill("Who Cares? (12/10/2017)", "41:02"),
	}

	out := Deduplicate(in)
	assert.Len(t, out, 2)
}

func TestDeduplicatePrefixCutOnRuneBoundary(t *testing.T) {
	// 199 ASCII bytes followed by a two-byte rune straddling the prefix cut.
	long := strings.Repeat("a", 199) + "é and the rest of the overlapping chunk text."

	in := []models.Candidate{
		sermonCandidate(long, 0.9),
		sermonCandidate(long, 0.7),
	}

	out := Deduplicate(in)
	require.Len(t, out, 1)
	assert.True(t, utf8.ValidString(dedupKey(out[0])))
}

func TestDeduplicateIdempotent(t *testing.T) {
	in := []models.Candidate{
		sermonCandidate("First passage text.", 0.9),
		sermonCandidate("First passage text.", 0.8),
		sermonCandidate("Second passage text.", 0.7),
	}

	once := Deduplicate(in)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)
}

func TestDeduplicateEmpty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}
