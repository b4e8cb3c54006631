package ranking

import "strings"

// stopWords are generic/conversational fillers plus the assistant's own
// name-words, excluded before scoring so "what does the pastor teach about"
// contributes nothing.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "with": true,
	"this": true, "are": true, "but": true, "not": true, "you": true,
	"all": true, "was": true, "his": true, "her": true, "from": true,
	"they": true, "have": true, "has": true, "had": true, "can": true,
	"what": true, "does": true, "about": true, "how": true, "why": true,
	"when": true, "where": true, "says": true, "say": true, "tell": true,
	"teach": true, "your": true, "pastor": true, "bob": true, "kopeny": true,
}

// topicVariants maps a topic word to its morphological variants and close
// synonyms. A variant hit scores half of an exact hit.
var topicVariants = map[string][]string{
	"sovereignty": {"sovereign", "control", "authority", "god in charge"},
	"faith":       {"believe", "trust", "believing", "faithful", "belief"},
	"forgiveness": {"forgive", "forgiven", "forgiving", "pardon", "mercy"},
	"forgive":     {"forgiveness", "forgiving", "forgiven", "forgave"},
	"prayer":      {"pray", "praying", "prayed", "intercession"},
	"love":        {"loving", "loved", "agape", "charity", "compassion"},
	"healing":     {"heal", "healed", "restoration", "wholeness"},
	"salvation":   {"saved", "saving", "redemption", "born again"},
	"sin":         {"sins", "sinful", "transgression", "repent"},
	"grace":       {"gracious", "unmerited", "favor"},
	"worship":     {"praise", "glorify", "honor", "adoration"},
	"marriage":    {"married", "husband", "wife", "spouse"},
	"anxiety":     {"anxious", "worry", "worried", "fear", "stress"},
	"peace":       {"peaceful", "calm", "rest", "tranquility"},
	"joy":         {"joyful", "rejoice", "gladness", "happiness"},
	"hope":        {"hoping", "hopeful", "expectation"},
	"obedience":   {"obey", "obedient", "submit", "follow"},
	"suffering":   {"suffer", "pain", "trials", "hardship"},
	"temptation":  {"tempted", "tempting", "resist"},
	"humility":    {"humble", "meek", "meekness"},
	"anger":       {"angry", "wrath", "rage", "resentment"},
	"baptism":     {"baptize", "baptized", "baptizing", "immersion"},
	"spirit":      {"spiritual", "holy spirit", "ghost"},
	"communion":   {"lord's supper", "bread", "remembrance"},
	"tithing":     {"tithe", "giving", "stewardship", "offering"},
}

// variantGroups is an expanded lookup: every topic word and every variant
// resolves to the full group, so "forgiven" finds the "forgiveness" family
// too. Built once at init.
var variantGroups = buildVariantGroups()

func buildVariantGroups() map[string][]string {
	groups := make(map[string][]string, len(topicVariants)*4)
	for topic, variants := range topicVariants {
		family := append([]string{topic}, variants...)
		for _, word := range family {
			groups[word] = appendMissing(groups[word], family...)
		}
	}
	return groups
}

func appendMissing(dst []string, words ...string) []string {
	for _, w := range words {
		found := false
		for _, existing := range dst {
			if existing == w {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, w)
		}
	}
	return dst
}

// QueryTokens normalizes a query into its scoreable tokens: lowercased,
// punctuation stripped, stop-words and tokens of length <= 2 removed.
func QueryTokens(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(c rune) bool {
		return !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'))
	})

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) > 2 && !stopWords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// ExpandedKeywords returns the query tokens plus their variant families,
// deduplicated. Exposed for response diagnostics.
func ExpandedKeywords(query string) []string {
	tokens := QueryTokens(query)
	expanded := make([]string, 0, len(tokens)*3)
	expanded = appendMissing(expanded, tokens...)
	for _, tok := range tokens {
		expanded = appendMissing(expanded, variantGroups[tok]...)
	}
	return expanded
}

// LexicalScore measures literal topical overlap between a query and a
// candidate text. Each token scores 1 point for a direct substring match or
// 0.5 for a variant match; the result is points over token count, in [0, 1].
// An empty or all-stop-word query scores 0.
func LexicalScore(query, text string) float64 {
	tokens := QueryTokens(query)
	if len(tokens) == 0 {
		return 0
	}

	textLower := strings.ToLower(text)
	points := 0.0
	for _, tok := range tokens {
		if strings.Contains(textLower, tok) {
			points++
			continue
		}
		for _, variant := range variantGroups[tok] {
			if variant == tok {
				continue
			}
			if strings.Contains(textLower, variant) {
				points += 0.5
				break
			}
		}
	}
	return points / float64(len(tokens))
}

// DistinctTopicMentions counts how many distinct query tokens appear in the
// text, counting variant hits. Used by the strict acceptance profile.
func DistinctTopicMentions(query, text string) int {
	textLower := strings.ToLower(text)
	count := 0
	for _, tok := range QueryTokens(query) {
		if strings.Contains(textLower, tok) {
			count++
			continue
		}
		for _, variant := range variantGroups[tok] {
			if variant != tok && strings.Contains(textLower, variant) {
				count++
				break
			}
		}
	}
	return count
}
