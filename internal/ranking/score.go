package ranking

// Profile selects how aggressively candidates are rejected.
type Profile int

const (
	// ProfileDefault accepts a candidate when either score clears its
	// threshold, rescuing strong keyword matches with mediocre vector
	// similarity and vice versa.
	ProfileDefault Profile = iota
	// ProfileStrict additionally requires the text to mention at least two
	// distinct query topics. Used for high-precision topic queries where a
	// single passing mention is not a real answer.
	ProfileStrict
)

const (
	vectorWeight  = 0.6
	lexicalWeight = 0.4

	combinedThreshold = 0.15
	lexicalThreshold  = 0.2

	strictMinMentions = 2
)

// VectorScore converts a provider cosine distance (0..2) into a similarity
// in [0, 1]. Distances above 1 clamp to 0 rather than going negative.
func VectorScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// CombinedScore blends the vector and lexical signals. It is a monotonic
// relevance signal, not a probability.
func CombinedScore(vectorScore, lexicalScore float64) float64 {
	return vectorScore*vectorWeight + lexicalScore*lexicalWeight
}

// Accept decides whether a scored candidate survives thresholding under the
// given profile. query and text are needed for the strict mention count.
func Accept(profile Profile, combined, lexical float64, query, text string) bool {
	if combined <= combinedThreshold && lexical <= lexicalThreshold {
		return false
	}
	if profile == ProfileStrict && DistinctTopicMentions(query, text) < strictMinMentions {
		return false
	}
	return true
}
