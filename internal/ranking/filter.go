package ranking

import "strings"

// minTeachingChars is the length below which a segment is assumed to be a
// caption fragment rather than teaching content.
const minTeachingChars = 100

// maxWorshipPhrases is the number of worship-phrase hits tolerated before a
// segment is treated as song lyrics.
const maxWorshipPhrases = 2

// maxAnnouncementPhrases is the number of logistics-phrase hits tolerated
// before a segment is treated as announcements.
const maxAnnouncementPhrases = 1

var placeholderTitles = map[string]bool{
	"":               true,
	"unknown":        true,
	"unknown sermon": true,
	"sermon":         true,
}

var worshipTitleMarkers = []string{
	"worship song",
	"hymn",
	"music video",
	"singing",
	"choir",
	"worship set",
}

var worshipPhrases = []string{
	"hallelujah",
	"glory glory",
	"praise him",
	"lift your hands",
	"clap your hands",
	"la la la",
	"sing with me",
}

var announcementPhrases = []string{
	"sign up",
	"register",
	"next week",
	"this sunday",
	"potluck",
	"parking lot",
	"nursery",
	"men's breakfast",
	"women's ministry",
	"vacation bible school",
	"youth group event",
}

// IsPlaceholderTitle reports whether a title carries no real source
// information ("Unknown Sermon" and friends).
func IsPlaceholderTitle(title string) bool {
	return placeholderTitles[strings.ToLower(strings.TrimSpace(title))]
}

// HasWorshipTitle reports whether the title marks the recording as music
// rather than teaching.
func HasWorshipTitle(title string) bool {
	t := strings.ToLower(title)
	for _, marker := range worshipTitleMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

// WorshipPhraseCount counts occurrences of song-lyric phrases in the text.
func WorshipPhraseCount(text string) int {
	t := strings.ToLower(text)
	count := 0
	for _, phrase := range worshipPhrases {
		count += strings.Count(t, phrase)
	}
	return count
}

// AnnouncementPhraseCount counts occurrences of logistics/announcement
// phrases in the text.
func AnnouncementPhraseCount(text string) int {
	t := strings.ToLower(text)
	count := 0
	for _, phrase := range announcementPhrases {
		count += strings.Count(t, phrase)
	}
	return count
}

// HasExcessiveRepetition reports whether the text repeats itself the way
// chanted or sung content does: more than 20 words with fewer than 40%
// distinct.
func HasExcessiveRepetition(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) <= 20 {
		return false
	}
	distinct := make(map[string]struct{}, len(words))
	for _, w := range words {
		distinct[w] = struct{}{}
	}
	return float64(len(distinct))/float64(len(words)) < 0.4
}

// KeepSegment decides whether a segment is substantive teaching content worth
// ranking.
func KeepSegment(title, text string) bool {
	if IsPlaceholderTitle(title) {
		return false
	}
	if HasWorshipTitle(title) {
		return false
	}
	if len(text) <= minTeachingChars {
		return false
	}
	if WorshipPhraseCount(text) > maxWorshipPhrases {
		return false
	}
	if HasExcessiveRepetition(text) {
		return false
	}
	if AnnouncementPhraseCount(text) > maxAnnouncementPhrases {
		return false
	}
	return true
}
