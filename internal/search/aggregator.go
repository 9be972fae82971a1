// Package search fans a free-text query out to the movie and series catalogs and
// merges the answers into one de-duplicated, scored candidate list.
package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/amaumene/watchduo/internal/metrics"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/utils"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultTimeout = 5 * time.Second
	cacheTTL       = 10 * time.Minute
)

var trailingYearRegex = regexp.MustCompile(`^(.*?)[\s(]+((?:19|20)\d{2})\)?$`)

// MovieProvider searches a movie catalog by title and optional year
type MovieProvider interface {
	Name() string
	SearchMovies(ctx context.Context, title, year string) ([]models.SearchResult, error)
}

// SeriesProvider searches a series catalog and derives season structure
type SeriesProvider interface {
	Name() string
	SearchShows(ctx context.Context, query string) ([]models.SearchResult, error)
	GetSeasons(ctx context.Context, showID string) ([]models.Season, error)
}

// Aggregator queries every configured provider concurrently
type Aggregator struct {
	general   MovieProvider
	secondary MovieProvider
	series    SeriesProvider
	timeout   time.Duration
	cache     *cache.Cache
	logger    *logrus.Logger
}

// NewAggregator creates an aggregator. Nil providers are skipped.
func NewAggregator(general, secondary MovieProvider, series SeriesProvider, timeout time.Duration, logger *logrus.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Aggregator{
		general:   general,
		secondary: secondary,
		series:    series,
		timeout:   timeout,
		cache:     cache.New(cacheTTL, 2*cacheTTL),
		logger:    logger,
	}
}

// SplitQuery separates a trailing year ("Dune 2021", "Dune (2021)") from the title
func SplitQuery(query string) (title, year string) {
	query = strings.TrimSpace(query)
	if matches := trailingYearRegex.FindStringSubmatch(query); matches != nil && strings.TrimSpace(matches[1]) != "" {
		return strings.TrimSpace(matches[1]), matches[2]
	}
	return query, ""
}

// Search returns the merged candidates for a query. Provider failures and timeouts
// degrade to an empty contribution from that provider; only an empty query is an error.
func (a *Aggregator) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if key == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	ctx, span := otel.Tracer("watchduo/search").Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", key))

	if cached, ok := a.cache.Get(key); ok {
		metrics.SearchCache.WithLabelValues("hit").Inc()
		return cloneResults(cached.([]models.SearchResult)), nil
	}
	metrics.SearchCache.WithLabelValues("miss").Inc()

	title, year := SplitQuery(query)

	var generalResults, secondaryResults, seriesResults []models.SearchResult
	// a panicking provider never reports back, so each flag starts as failed
	generalOK, secondaryOK, seriesOK := a.general == nil, a.secondary == nil, a.series == nil
	var wg conc.WaitGroup
	if a.general != nil {
		wg.Go(func() { generalResults, generalOK = a.searchMovies(ctx, a.general, title, year) })
	}
	if a.secondary != nil {
		wg.Go(func() { secondaryResults, secondaryOK = a.searchMovies(ctx, a.secondary, title, year) })
	}
	if a.series != nil {
		wg.Go(func() { seriesResults, seriesOK = a.searchShows(ctx, title) })
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		a.logger.WithField("panic", recovered.Value).Error("Search provider panicked")
	}
	complete := generalOK && secondaryOK && seriesOK

	movies := MergeMovies(generalResults, secondaryResults)
	series := seriesResults
	ScoreAll(movies)
	ScoreAll(series)
	sortByScore(movies)
	sortByScore(series)

	results := Interleave(series, movies)
	span.SetAttributes(attribute.Int("results", len(results)))

	a.logger.WithFields(logrus.Fields{
		"query":    query,
		"movies":   len(movies),
		"series":   len(series),
		"results":  len(results),
		"complete": complete,
	}).Debug("Search completed")

	// Degraded answers are not cached so the next search retries the failed provider
	if complete {
		a.cache.Set(key, cloneResults(results), cache.DefaultExpiration)
	}
	return results, nil
}

// searchMovies reports false when the provider failed or timed out
func (a *Aggregator) searchMovies(ctx context.Context, provider MovieProvider, title, year string) ([]models.SearchResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results, err := provider.SearchMovies(ctx, title, year)
	if err != nil {
		a.logger.WithError(err).WithField("provider", provider.Name()).Warn("Movie search failed")
		return nil, false
	}
	return results, true
}

func (a *Aggregator) searchShows(ctx context.Context, query string) ([]models.SearchResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results, err := a.series.SearchShows(ctx, query)
	if err != nil {
		a.logger.WithError(err).WithField("provider", a.series.Name()).Warn("Series search failed")
		return nil, false
	}
	return results, true
}

// Details completes a selected candidate before it is persisted. Only series from
// the series catalog need it: their season structure comes from the episode list.
// A failed lookup leaves the candidate without seasons.
func (a *Aggregator) Details(ctx context.Context, result models.SearchResult) models.SearchResult {
	if a.series == nil || result.Source != models.SourceTVMaze || result.Type != models.MediaTypeSeries {
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	seasons, err := a.series.GetSeasons(ctx, result.ProviderID)
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"title":      result.Title,
			"providerId": result.ProviderID,
		}).Warn("Failed to fetch episode list")
		return result
	}
	result.Seasons = seasons
	return result
}

// Manual builds a candidate for an item typed in by hand
func Manual(mediaType models.MediaType, title, year string) models.SearchResult {
	result := models.SearchResult{
		Source: models.SourceManual,
		Type:   mediaType,
		Title:  strings.TrimSpace(title),
		Year:   utils.ExtractYear(year),
	}
	result.Score = Score(result)
	return result
}

// MergeMovies de-duplicates movie candidates by normalized (title, year). Batches are
// applied in argument order and a later record replaces an earlier one with the same
// key; the entry keeps the position where its key first appeared.
func MergeMovies(batches ...[]models.SearchResult) []models.SearchResult {
	index := make(map[string]int)
	var merged []models.SearchResult
	for _, batch := range batches {
		for _, result := range batch {
			key := mergeKey(result)
			if position, ok := index[key]; ok {
				merged[position] = result
				continue
			}
			index[key] = len(merged)
			merged = append(merged, result)
		}
	}
	return merged
}

func mergeKey(result models.SearchResult) string {
	return utils.NormalizeTitle(result.Title) + "|" + result.Year
}

// Interleave alternates series and movies position by position, appending the tail
// of the longer list in its own order
func Interleave(series, movies []models.SearchResult) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(series)+len(movies))
	for i := 0; i < len(series) || i < len(movies); i++ {
		if i < len(series) {
			results = append(results, series[i])
		}
		if i < len(movies) {
			results = append(results, movies[i])
		}
	}
	return results
}

func sortByScore(results []models.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func cloneResults(results []models.SearchResult) []models.SearchResult {
	clone := make([]models.SearchResult, len(results))
	for i, result := range results {
		result.Seasons = append([]models.Season(nil), result.Seasons...)
		clone[i] = result
	}
	return clone
}
