// Package tutorials finds YouTube repair videos for the keywords of a
// diagnosis and ranks them by how well they fit the fault.
package tutorials

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// Defaults applied when settings leave a value unset
const (
	DefaultMaxResults = 5
	DefaultRPS        = 5.0
	DefaultBurst      = 3
	DefaultTimeout    = 15 * time.Second
	CacheTTL          = time.Hour

	maxQueries = 3
)

// Tutorial is one recommended video.
type Tutorial struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	Thumbnail       string `json:"thumbnail"`
	Channel         string `json:"channel"`
	Description     string `json:"description"`
	PublishedAt     string `json:"published_at"`
	VideoID         string `json:"video_id,omitempty"`
	RelevanceScore  int    `json:"relevance_score"`
	ViewCount       uint64 `json:"view_count,omitempty"`
	LikeCount       uint64 `json:"like_count,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	IsFallback      bool   `json:"is_fallback,omitempty"`
}

// Searcher queries the YouTube Data API. A Searcher without a service
// returns fallback tutorials only.
type Searcher struct {
	svc        *youtube.Service
	limiter    *rate.Limiter
	cache      *cache.Cache
	maxResults int
	timeout    time.Duration
	log        logger.Logger

	mu    sync.Mutex
	stats Stats
}

// Stats counts API usage.
type Stats struct {
	APICalls    int64
	APIErrors   int64
	CacheHits   int64
	CacheMisses int64
}

// GetLogger returns the tutorials logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("tutorials")
}

// New returns a Searcher for settings. opts are passed to the YouTube
// client after the API key. When tutorials are disabled the Searcher only
// produces fallbacks.
func New(ctx context.Context, settings *conf.TutorialSettings, opts ...option.ClientOption) (*Searcher, error) {
	s := &Searcher{
		limiter:    rate.NewLimiter(rate.Limit(DefaultRPS), DefaultBurst),
		cache:      cache.New(CacheTTL, 2*CacheTTL),
		maxResults: DefaultMaxResults,
		timeout:    DefaultTimeout,
		log:        GetLogger(),
	}
	if settings == nil || !settings.Enabled {
		return s, nil
	}
	if settings.APIKey == "" {
		return nil, errors.Newf("tutorial search is enabled but no API key is set").
			Component("tutorials").
			Category(errors.CategoryConfiguration).
			Context("field", "api_key").
			Build()
	}

	if settings.MaxResults > 0 {
		s.maxResults = settings.MaxResults
	}
	if settings.Timeout > 0 {
		s.timeout = settings.Timeout
	}
	rps, burst := settings.RequestsPerSecond, settings.Burst
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), burst)

	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(settings.APIKey)}, opts...)...)
	if err != nil {
		return nil, errors.New(err).
			Component("tutorials").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_youtube_service").
			Build()
	}
	s.svc = svc

	s.log.Info("tutorial search initialized",
		logger.Int("max_results", s.maxResults),
		logger.Float64("requests_per_second", rps),
		logger.Int("burst", burst))
	return s, nil
}

// Enabled reports whether the YouTube API is queried.
func (s *Searcher) Enabled() bool {
	return s != nil && s.svc != nil
}

// Stats returns a snapshot of the API counters.
func (s *Searcher) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Searcher) count(f func(*Stats)) {
	s.mu.Lock()
	f(&s.stats)
	s.mu.Unlock()
}

// Queries builds the search queries for keywords, at most three.
func Queries(keywords []string) []string {
	queries := make([]string, 0, maxQueries)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		queries = append(queries, kw+" car repair tutorial how to fix")
		if len(queries) == maxQueries {
			break
		}
	}
	return queries
}

// Search returns up to maxResults ranked tutorials for keywords; 0 selects
// the configured default. Only an empty keyword list is an error; when the
// API is unavailable it returns fallback search links.
func (s *Searcher) Search(ctx context.Context, keywords []string, maxResults int) ([]Tutorial, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	queries := Queries(keywords)
	if len(queries) == 0 {
		return nil, errors.ValidationError("at least one search keyword is required")
	}
	if !s.Enabled() {
		return Fallback(keywords), nil
	}

	log := s.log.WithContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	perQuery := maxResults/len(queries) + 1
	var (
		all      []Tutorial
		failures int
		lastErr  error
	)
	for _, q := range queries {
		found, err := s.searchQuery(ctx, q, perQuery)
		if err != nil {
			failures++
			lastErr = err
			log.Warn("tutorial search query failed",
				logger.String("query", q),
				logger.Error(err))
			continue
		}
		all = append(all, found...)
	}
	if failures == len(queries) {
		log.Warn("tutorial search unavailable, using fallback links",
			logger.Int("queries", len(queries)),
			logger.Error(lastErr))
		return Fallback(keywords), nil
	}

	unique := dedupe(all)
	if err := s.enrich(ctx, unique); err != nil {
		log.Warn("tutorial enrichment failed, ranking without statistics", logger.Error(err))
	}
	Rank(unique, keywords)
	if len(unique) > maxResults {
		unique = unique[:maxResults]
	}

	log.Info("tutorial search completed",
		logger.Int("queries", len(queries)),
		logger.Int("results", len(unique)))
	return unique, nil
}

// searchQuery runs one search, serving repeated queries from the cache.
func (s *Searcher) searchQuery(ctx context.Context, query string, n int) ([]Tutorial, error) {
	key := fmt.Sprintf("%s|%d", query, n)
	if cached, ok := s.cache.Get(key); ok {
		if found, ok := cached.([]Tutorial); ok {
			s.count(func(st *Stats) { st.CacheHits++ })
			return slices.Clone(found), nil
		}
	}
	s.count(func(st *Stats) { st.CacheMisses++ })

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, s.apiError(err, "rate_limiter_wait", query)
	}

	s.count(func(st *Stats) { st.APICalls++ })
	resp, err := s.svc.Search.List([]string{"id", "snippet"}).
		Q(query).
		MaxResults(int64(n)).
		Order("relevance").
		Type("video").
		VideoDuration("medium").
		VideoDefinition("any").
		RelevanceLanguage("en").
		SafeSearch("moderate").
		Context(ctx).
		Do()
	if err != nil {
		s.count(func(st *Stats) { st.APIErrors++ })
		return nil, s.apiError(err, "search", query)
	}

	found := make([]Tutorial, 0, len(resp.Items))
	for _, item := range resp.Items {
		t, ok := fromSearchResult(item)
		if ok && Relevant(&t) {
			found = append(found, t)
		}
	}
	s.cache.Set(key, slices.Clone(found), cache.DefaultExpiration)
	return found, nil
}

// enrich adds duration and statistics to tutorials in place.
func (s *Searcher) enrich(ctx context.Context, tutorials []Tutorial) error {
	if len(tutorials) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tutorials))
	for i := range tutorials {
		ids = append(ids, tutorials[i].VideoID)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return s.apiError(err, "rate_limiter_wait", "videos")
	}
	s.count(func(st *Stats) { st.APICalls++ })
	resp, err := s.svc.Videos.List([]string{"contentDetails", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		s.count(func(st *Stats) { st.APIErrors++ })
		return s.apiError(err, "videos", strings.Join(ids, ","))
	}

	details := make(map[string]*youtube.Video, len(resp.Items))
	for _, v := range resp.Items {
		details[v.Id] = v
	}
	for i := range tutorials {
		v, ok := details[tutorials[i].VideoID]
		if !ok {
			continue
		}
		if v.ContentDetails != nil {
			tutorials[i].DurationMinutes = ParseDuration(v.ContentDetails.Duration)
		}
		if v.Statistics != nil {
			tutorials[i].ViewCount = v.Statistics.ViewCount
			tutorials[i].LikeCount = v.Statistics.LikeCount
		}
	}
	return nil
}

func (s *Searcher) apiError(err error, operation, query string) error {
	return errors.New(err).
		Component("tutorials").
		Category(errors.CategoryTutorialSearch).
		Context("operation", operation).
		Context("query", query).
		Build()
}

func dedupe(tutorials []Tutorial) []Tutorial {
	seen := make(map[string]bool, len(tutorials))
	out := make([]Tutorial, 0, len(tutorials))
	for _, t := range tutorials {
		if t.VideoID == "" || seen[t.VideoID] {
			continue
		}
		seen[t.VideoID] = true
		out = append(out, t)
	}
	return out
}
