package tutorials

import (
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
)

const testEndpoint = "https://youtube.test/"

var (
	searchPath = regexp.MustCompile(`/youtube/v3/search`)
	videosPath = regexp.MustCompile(`/youtube/v3/videos`)
)

func searchItem(id, title, desc, channel string) map[string]any {
	return map[string]any{
		"id": map[string]any{"kind": "youtube#video", "videoId": id},
		"snippet": map[string]any{
			"title":        title,
			"description":  desc,
			"channelTitle": channel,
			"publishedAt":  "2025-01-02T00:00:00Z",
			"thumbnails": map[string]any{
				"medium": map[string]any{"url": "https://i.ytimg.com/vi/" + id + "/mqdefault.jpg"},
			},
		},
	}
}

// newMockedSearcher wires a Searcher to a mock transport.
func newMockedSearcher(t *testing.T, mt *httpmock.MockTransport) *Searcher {
	t.Helper()
	s, err := New(t.Context(),
		&conf.TutorialSettings{Enabled: true, APIKey: "test-key", RequestsPerSecond: 1000, Burst: 10},
		option.WithHTTPClient(&http.Client{Transport: mt}),
		option.WithEndpoint(testEndpoint))
	require.NoError(t, err)
	require.True(t, s.Enabled())
	return s
}

func TestQueries(t *testing.T) {
	t.Parallel()

	got := Queries([]string{"engine knock", " ", "belt squeal", "oil leak", "brake pads"})
	assert.Equal(t, []string{
		"engine knock car repair tutorial how to fix",
		"belt squeal car repair tutorial how to fix",
		"oil leak car repair tutorial how to fix",
	}, got)
	assert.Empty(t, Queries(nil))
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"PT4M13S": 4,
		"PT1H2M":  62,
		"PT59S":   0,
		"PT125S":  2,
		"PT20M":   20,
		"P1D":     0,
		"bogus":   0,
		"":        0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseDuration(in), in)
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	assert.True(t, Relevant(&Tutorial{Title: "How to replace brake pads"}))
	assert.True(t, Relevant(&Tutorial{Title: "Episode 4", Description: "engine oil change"}))
	assert.False(t, Relevant(&Tutorial{Title: "Best car songs", Description: "music for the road"}))
	assert.False(t, Relevant(&Tutorial{Title: "Fix engine knock", Description: "big sale today"}))
	assert.False(t, Relevant(&Tutorial{Title: "Vlog 12", Description: "my trip"}))
}

func TestScoreAndRank(t *testing.T) {
	t.Parallel()

	list := []Tutorial{
		{VideoID: "a", Title: "Weekend vlog", Channel: "Joe"},
		{VideoID: "b", Title: "Engine knock diagnosis", Description: "engine knock explained",
			ViewCount: 60000, LikeCount: 600, DurationMinutes: 12, Channel: "Pro Garage"},
		{VideoID: "c", Title: "Engine knock basics", ViewCount: 2000, LikeCount: 60, DurationMinutes: 25},
		{VideoID: "d", Title: "Another vlog", Channel: "Ann"},
	}
	Rank(list, []string{"Engine Knock"})

	assert.Equal(t, 10+3+5+3+3+2, list[0].RelevanceScore)
	assert.Equal(t, "b", list[0].VideoID)
	assert.Equal(t, 10+1+1+1, list[1].RelevanceScore)
	assert.Equal(t, "c", list[1].VideoID)
	// equal scores keep their search order
	assert.Equal(t, []string{"a", "d"}, []string{list[2].VideoID, list[3].VideoID})
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Empty(t, truncate(""))
	assert.Equal(t, "short...", truncate("short"))
	long := strings.Repeat("é", 250)
	got := truncate(long)
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)
}

func TestFallback(t *testing.T) {
	t.Parallel()

	got := Fallback([]string{"engine knock", "belt squeal", "oil leak"})
	require.Len(t, got, 3)
	for _, tut := range got {
		assert.True(t, tut.IsFallback)
		assert.True(t, strings.HasPrefix(tut.URL, "https://www.youtube.com/results?search_query="))
	}
	assert.Equal(t, "https://www.youtube.com/results?search_query=engine+knock+belt+squeal+car+repair+tutorial", got[0].URL)
	assert.Equal(t, "How to Fix engine knock belt squeal - Complete Repair Guide", got[0].Title)
	assert.Equal(t, "https://www.youtube.com/results?search_query=engine+knock+DIY+repair", got[2].URL)
	assert.Equal(t, []int{8, 7, 6}, []int{got[0].RelevanceScore, got[1].RelevanceScore, got[2].RelevanceScore})

	assert.Len(t, Fallback(nil), 3)
}

func TestSearchDisabledUsesFallback(t *testing.T) {
	t.Parallel()

	s, err := New(t.Context(), &conf.TutorialSettings{Enabled: false})
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	got, err := s.Search(t.Context(), []string{"dashboard warning light fix"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].IsFallback)

	_, err = s.Search(t.Context(), []string{"", " "}, 0)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSearchRanksAndDeduplicates(t *testing.T) {
	t.Parallel()

	mt := httpmock.NewMockTransport()
	var searches, videos atomic.Int32
	var lastMax atomic.Value

	mt.RegisterRegexpResponder(http.MethodGet, searchPath, func(req *http.Request) (*http.Response, error) {
		searches.Add(1)
		q := req.URL.Query()
		lastMax.Store(q.Get("maxResults"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "moderate", q.Get("safeSearch"))

		var items []any
		switch {
		case strings.HasPrefix(q.Get("q"), "engine knock"):
			items = []any{
				searchItem("abc", "How to fix engine knock", "DIY engine repair &amp; more", "Pro Garage"),
				searchItem("mus", "Engine knock music video", "official song", "Band"),
			}
		default:
			items = []any{
				searchItem("def", "Belt squeal fix", "", "Joe"),
				searchItem("abc", "How to fix engine knock", "DIY engine repair &amp; more", "Pro Garage"),
			}
		}
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{"items": items})
	})
	mt.RegisterRegexpResponder(http.MethodGet, videosPath, func(req *http.Request) (*http.Response, error) {
		videos.Add(1)
		assert.Contains(t, req.URL.Query().Get("id"), "abc")
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"items": []any{map[string]any{
				"id":             "abc",
				"contentDetails": map[string]any{"duration": "PT12M5S"},
				"statistics":     map[string]any{"viewCount": "60000", "likeCount": "600"},
			}},
		})
	})

	s := newMockedSearcher(t, mt)
	keywords := []string{"engine knock", "belt squeal"}

	got, err := s.Search(t.Context(), keywords, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "abc", got[0].VideoID)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", got[0].URL)
	assert.Equal(t, "DIY engine repair & more...", got[0].Description)
	assert.Equal(t, 12, got[0].DurationMinutes)
	assert.Equal(t, uint64(60000), got[0].ViewCount)
	assert.Equal(t, 10+5+3+3+2, got[0].RelevanceScore)
	assert.Equal(t, "https://i.ytimg.com/vi/abc/mqdefault.jpg", got[0].Thumbnail)
	assert.Equal(t, "def", got[1].VideoID)
	assert.False(t, got[1].IsFallback)

	assert.Equal(t, int32(2), searches.Load())
	assert.Equal(t, int32(1), videos.Load())
	assert.Equal(t, "3", lastMax.Load())

	// repeated keywords are served from the cache
	_, err = s.Search(t.Context(), keywords, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), searches.Load())
	st := s.Stats()
	assert.Equal(t, int64(2), st.CacheHits)
	assert.Equal(t, int64(2), st.CacheMisses)

	got, err = s.Search(t.Context(), keywords, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearchFallsBackWhenAPIFails(t *testing.T) {
	t.Parallel()

	mt := httpmock.NewMockTransport()
	mt.RegisterRegexpResponder(http.MethodGet, searchPath,
		httpmock.NewStringResponder(http.StatusForbidden, `{"error":{"code":403,"message":"quotaExceeded"}}`))

	s := newMockedSearcher(t, mt)
	got, err := s.Search(t.Context(), []string{"brake fluid warning light fix", "brake fluid"}, 5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].IsFallback)
	assert.Equal(t, int64(2), s.Stats().APIErrors)
}

func TestSearchSurvivesEnrichmentFailure(t *testing.T) {
	t.Parallel()

	mt := httpmock.NewMockTransport()
	mt.RegisterRegexpResponder(http.MethodGet, searchPath, func(*http.Request) (*http.Response, error) {
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"items": []any{searchItem("xyz", "Replace serpentine belt", "step by step", "Auto Fix")},
		})
	})
	mt.RegisterRegexpResponder(http.MethodGet, videosPath,
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":{"code":500}}`))

	s := newMockedSearcher(t, mt)
	got, err := s.Search(t.Context(), []string{"serpentine belt"}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "xyz", got[0].VideoID)
	assert.Zero(t, got[0].ViewCount)
	assert.False(t, got[0].IsFallback)
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(t.Context(), &conf.TutorialSettings{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
