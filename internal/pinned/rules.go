package pinned

import "github.com/sermon-search-api/internal/models"

// DefaultRules is the stock rule table: the story of how Pastor Bob met
// Becky, and his conversion testimony. Both answers live in specific
// recordings that vector search surfaces unreliably.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "becky_story",
			Triggers: []string{
				"becky", "wife", "how did bob meet", "how did pastor bob meet",
				"how they met", "bob and becky", "bob meet becky", "married",
				"engagement", "how bob met", "love story", "bob's wife",
				"pastor bob's wife", "when did bob get married", "bob get married",
				"who is bob married to", "who did bob marry", "becky kopeny",
			},
			Clips: []Clip{
				{
					Weight: 1.0,
					Segment: models.Segment{
						Text: "Pastor Bob shares the full story of how he met Becky - from meeting her briefly at church, to God putting her name in his mind at the intersection of Chapman and Kramer while driving to seminary, to the Lord revealing she had gotten engaged the night before, to God telling him to propose three weeks after their first date.",
						Title:          "How To Press On (03/26/2017)",
						SourceID:       "sGIJP13TxPQ",
						StartOffset:    "39:42",
						URL:            "https://www.youtube.com/watch?v=sGIJP13TxPQ",
						TimestampedURL: "https://www.youtube.com/watch?v=sGIJP13TxPQ&t=2382s",
						Kind:           models.KindSermon,
					},
				},
				{
					Weight: 0.95,
					Segment: models.Segment{
						Text: "Pastor Bob shares that when he first met Becky she was engaged to be married. They were just friends and he encouraged her spiritually. He shares about caring for someone and not knowing how they feel.",
						Title:          "Who Cares? (12/10/2017)",
						SourceID:       "BRd6nCCTLKI",
						StartOffset:    "33:34",
						URL:            "https://www.youtube.com/watch?v=BRd6nCCTLKI",
						TimestampedURL: "https://www.youtube.com/watch?v=BRd6nCCTLKI&t=2014s",
						Kind:           models.KindSermon,
					},
				},
			},
		},
		{
			Name: "testimony",
			Triggers: []string{
				"testimony", "how was bob saved", "when was bob saved",
				"how did bob get saved", "bob's testimony", "pastor bob saved",
				"bob come to christ", "bob receive christ",
				"when did bob become a christian", "how did bob become",
				"bob's salvation", "bob get saved", "pastor bob's testimony",
				"bob become a believer", "how bob got saved", "when bob got saved",
				"bob's faith journey", "how did pastor bob come to know",
				"jeff maples", "gene schaeffer", "jr high camp",
				"junior high camp", "8th grade",
			},
			Clips: []Clip{
				{
					Weight: 1.0,
					Segment: models.Segment{
						Text: "Pastor Bob shares his testimony of how he received Christ. Two men - Jeff Maples and Gene Schaeffer, who were in their 30s - shared Christ with him at a Jr. High church camp when he was 13. His friend Fred invited him. They shared for about five minutes and asked if he would receive Christ. He said yes. He thanks God for the unbroken chain of people who shared the gospel down to him.",
						Title:    "Be Faithful - 2 Timothy 1",
						SourceID: "72R6uNs2ka4",
						URL:      "https://www.youtube.com/watch?v=72R6uNs2ka4",
						TimestampedURL: "https://www.youtube.com/watch?v=72R6uNs2ka4",
						Kind:           models.KindSermon,
					},
				},
			},
		},
	}
}
