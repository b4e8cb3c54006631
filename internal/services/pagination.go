package services

import "strings"

// paginationPhrases are the follow-up turns that mean "continue the previous
// result list" rather than a new topic.
var paginationPhrases = map[string]bool{
	"more":              true,
	"more links":        true,
	"more results":      true,
	"show more":         true,
	"show me more":      true,
	"give me more":      true,
	"more please":       true,
	"any more":          true,
	"are there more":    true,
	"more of those":     true,
}

// IsPaginationQuery reports whether the turn asks to continue the previous
// search instead of starting a new one.
func IsPaginationQuery(query string) bool {
	return paginationPhrases[normalizeTurn(query)]
}

// EffectiveQuery walks the conversation history backwards and returns the
// most recent turn that was not itself a pagination request. Returns "" when
// no such turn exists.
func EffectiveQuery(history []string) string {
	for i := len(history) - 1; i >= 0; i-- {
		if turn := strings.TrimSpace(history[i]); turn != "" && !IsPaginationQuery(turn) {
			return turn
		}
	}
	return ""
}

func normalizeTurn(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.Trim(q, ".!?")
	return strings.Join(strings.Fields(q), " ")
}
