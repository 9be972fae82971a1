package tvmaze

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/metrics"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/utils"
	"github.com/sirupsen/logrus"
)

const providerName = "tvmaze"

// Show is the subset of a TVMaze show the catalog consumes
type Show struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Premiered string `json:"premiered"`
	Summary   string `json:"summary"`
	Image     *struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
}

// Episode is one entry of a show's flat episode list
type Episode struct {
	ID     int64 `json:"id"`
	Season int   `json:"season"`
	Number *int  `json:"number"` // nil for specials
}

// Client queries the TVMaze series catalog
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a TVMaze client
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	baseURL := strings.TrimRight(cfg.TVMazeBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.tvmaze.com"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Name identifies the provider in logs and metrics
func (c *Client) Name() string {
	return providerName
}

// getJSON performs a GET request and decodes the JSON body into result
func (c *Client) getJSON(ctx context.Context, path string, result interface{}) error {
	fullURL := c.baseURL + path
	c.logger.WithField("url", fullURL).Debug("Making TVMaze request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tvmaze request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SearchShows searches the series catalog by free text
func (c *Client) SearchShows(ctx context.Context, query string) (results []models.SearchResult, err error) {
	defer func() { metrics.ObserveProvider(providerName, err) }()

	var matches []struct {
		Score float64 `json:"score"`
		Show  Show    `json:"show"`
	}
	if err := c.getJSON(ctx, "/search/shows?q="+url.QueryEscape(strings.TrimSpace(query)), &matches); err != nil {
		return nil, fmt.Errorf("failed to search shows: %w", err)
	}

	results = make([]models.SearchResult, 0, len(matches))
	for _, match := range matches {
		if strings.TrimSpace(match.Show.Name) == "" {
			continue
		}
		results = append(results, match.Show.ToSearchResult())
	}
	return results, nil
}

// GetEpisodes returns the flat episode list of a show
func (c *Client) GetEpisodes(ctx context.Context, showID string) (episodes []Episode, err error) {
	defer func() { metrics.ObserveProvider(providerName, err) }()

	if _, convErr := strconv.ParseInt(showID, 10, 64); convErr != nil {
		return nil, fmt.Errorf("invalid tvmaze show id %q", showID)
	}
	if err := c.getJSON(ctx, "/shows/"+showID+"/episodes", &episodes); err != nil {
		return nil, fmt.Errorf("failed to get episodes: %w", err)
	}
	return episodes, nil
}

// GetSeasons fetches the episode list and derives the season structure
func (c *Client) GetSeasons(ctx context.Context, showID string) ([]models.Season, error) {
	episodes, err := c.GetEpisodes(ctx, showID)
	if err != nil {
		return nil, err
	}
	return DeriveSeasons(episodes), nil
}

// DeriveSeasons counts numbered episodes per season number, ascending
func DeriveSeasons(episodes []Episode) []models.Season {
	counts := make(map[int]int)
	var order []int
	for _, episode := range episodes {
		if episode.Number == nil || episode.Season <= 0 {
			continue
		}
		if _, ok := counts[episode.Season]; !ok {
			order = append(order, episode.Season)
		}
		counts[episode.Season]++
	}

	sort.Ints(order)
	seasons := make([]models.Season, 0, len(order))
	for _, number := range order {
		seasons = append(seasons, models.Season{SeasonNumber: number, EpisodeCount: counts[number]})
	}
	return seasons
}

// ToSearchResult converts the TVMaze payload into a candidate
func (s Show) ToSearchResult() models.SearchResult {
	result := models.SearchResult{
		Source:      models.SourceTVMaze,
		ProviderID:  strconv.FormatInt(s.ID, 10),
		Type:        models.MediaTypeSeries,
		Title:       strings.TrimSpace(s.Name),
		Year:        utils.ExtractYear(s.Premiered),
		Description: StripHTML(s.Summary),
		ReleaseDate: s.Premiered,
	}
	if s.Image != nil {
		result.PosterURL = s.Image.Original
		result.BackupPosterURL = s.Image.Medium
		if result.PosterURL == "" {
			result.PosterURL = s.Image.Medium
			result.BackupPosterURL = ""
		}
	}
	return result
}
