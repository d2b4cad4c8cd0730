package tutorials

import (
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/k3a/html2text"
	"google.golang.org/api/youtube/v3"
)

const (
	maxDescriptionRunes = 200
	minRelevance        = 2

	watchURL         = "https://www.youtube.com/watch?v="
	resultsURL       = "https://www.youtube.com/results?search_query="
	placeholderThumb = "https://i.ytimg.com/img/no_thumbnail.jpg"
)

var (
	positiveTerms = []string{
		"repair", "fix", "how to", "tutorial", "diy", "maintenance",
		"car", "auto", "vehicle", "engine", "dashboard", "warning",
		"brake", "oil", "fluid", "light", "replace", "install",
	}
	negativeTerms = []string{
		"music", "song", "game", "movie", "trailer", "review only",
		"unboxing", "shopping", "buy", "sale", "price", "commercial",
	}
	credibleChannelTerms = []string{
		"garage", "mechanic", "auto", "car", "repair", "fix",
		"official", "certified", "expert", "pro", "master",
	}

	isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)
)

// cleanText converts API text, which may carry HTML entities or markup, to
// plain text.
func cleanText(s string) string {
	return strings.TrimSpace(html2text.HTML2Text(s))
}

// truncate shortens s to the description limit, marking the cut.
func truncate(s string) string {
	if s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxDescriptionRunes {
		return s + "..."
	}
	r := []rune(s)
	return string(r[:maxDescriptionRunes]) + "..."
}

func fromSearchResult(item *youtube.SearchResult) (Tutorial, bool) {
	if item == nil || item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
		return Tutorial{}, false
	}
	sn := item.Snippet
	t := Tutorial{
		Title:       cleanText(sn.Title),
		URL:         watchURL + item.Id.VideoId,
		Channel:     cleanText(sn.ChannelTitle),
		Description: truncate(cleanText(sn.Description)),
		PublishedAt: sn.PublishedAt,
		VideoID:     item.Id.VideoId,
	}
	if sn.Thumbnails != nil && sn.Thumbnails.Medium != nil {
		t.Thumbnail = sn.Thumbnails.Medium.Url
	}
	return t, true
}

// Relevant reports whether a video looks like a car repair tutorial: no
// negative term anywhere and a positive score of at least two, where a
// title hit counts two and a description hit one.
func Relevant(t *Tutorial) bool {
	title := strings.ToLower(t.Title)
	desc := strings.ToLower(t.Description)

	for _, term := range negativeTerms {
		if strings.Contains(title, term) || strings.Contains(desc, term) {
			return false
		}
	}
	score := 0
	for _, term := range positiveTerms {
		if strings.Contains(title, term) {
			score += 2
		}
		if strings.Contains(desc, term) {
			score++
		}
	}
	return score >= minRelevance
}

// Score rates how well t fits keywords.
func Score(t *Tutorial, keywords []string) int {
	title := strings.ToLower(t.Title)
	desc := strings.ToLower(t.Description)

	score := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) {
			score += 10
		}
		if strings.Contains(desc, kw) {
			score += 3
		}
	}

	switch {
	case t.ViewCount > 50000:
		score += 5
	case t.ViewCount > 10000:
		score += 3
	case t.ViewCount > 1000:
		score++
	}
	switch {
	case t.LikeCount > 500:
		score += 3
	case t.LikeCount > 100:
		score += 2
	case t.LikeCount > 50:
		score++
	}
	switch d := t.DurationMinutes; {
	case d >= 5 && d <= 20:
		score += 3
	case d >= 3 && d <= 30:
		score++
	}

	channel := strings.ToLower(t.Channel)
	for _, term := range credibleChannelTerms {
		if strings.Contains(channel, term) {
			score += 2
			break
		}
	}
	return score
}

// Rank scores tutorials and sorts them best first, keeping search order
// among equal scores.
func Rank(tutorials []Tutorial, keywords []string) {
	for i := range tutorials {
		tutorials[i].RelevanceScore = Score(&tutorials[i], keywords)
	}
	slices.SortStableFunc(tutorials, func(a, b Tutorial) int {
		return b.RelevanceScore - a.RelevanceScore
	})
}

// ParseDuration converts an ISO 8601 video duration such as PT1H4M13S to
// whole minutes. Unparseable input yields 0.
func ParseDuration(d string) int {
	m := isoDuration.FindStringSubmatch(d)
	if m == nil {
		return 0
	}
	part := func(s string) int {
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}
	return part(m[1])*60 + part(m[2]) + part(m[3])/60
}

// Fallback returns three search-page links for keywords, used when the API
// cannot be reached.
func Fallback(keywords []string) []Tutorial {
	var kws []string
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	if len(kws) == 0 {
		kws = []string{"car repair"}
	}
	topic := strings.Join(kws[:min(2, len(kws))], " ")
	first := kws[0]

	search := func(terms string) string {
		return resultsURL + url.QueryEscape(terms)
	}
	return []Tutorial{
		{
			Title:          "How to Fix " + topic + " - Complete Repair Guide",
			URL:            search(topic + " car repair tutorial"),
			Thumbnail:      placeholderThumb,
			Channel:        "YouTube Search",
			Description:    "Search results for repairing " + topic + " in your vehicle...",
			RelevanceScore: 8,
			IsFallback:     true,
		},
		{
			Title:          topic + " Diagnosis and Repair Tutorial",
			URL:            search(topic + " diagnosis fix"),
			Thumbnail:      placeholderThumb,
			Channel:        "YouTube Search",
			Description:    "Step-by-step diagnosis and repair videos for " + topic + " issues...",
			RelevanceScore: 7,
			IsFallback:     true,
		},
		{
			Title:          "DIY " + first + " Repair",
			URL:            search(first + " DIY repair"),
			Thumbnail:      placeholderThumb,
			Channel:        "YouTube Search",
			Description:    "Videos on fixing " + first + " yourself...",
			RelevanceScore: 6,
			IsFallback:     true,
		},
	}
}
