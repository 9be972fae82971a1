package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/metrics"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

const (
	imageBaseURL   = "https://image.tmdb.org/t/p"
	posterSize     = "w500"
	backdropSize   = "w780"
	providerName   = "tmdb"
	defaultTimeout = 10 * time.Second
)

// Movie represents a single TMDB movie search match
type Movie struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	Overview      string `json:"overview"`
	ReleaseDate   string `json:"release_date"`
	PosterPath    string `json:"poster_path"`
	BackdropPath  string `json:"backdrop_path"`
}

type searchResponse struct {
	Page    int     `json:"page"`
	Results []Movie `json:"results"`
}

// Client queries the TMDB movie catalog
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a TMDB client
func NewClient(cfg *config.Config, logger *logrus.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TMDBAPIKey) == "" {
		return nil, fmt.Errorf("tmdb API key is required")
	}
	if strings.TrimSpace(cfg.TMDBBaseURL) == "" {
		return nil, fmt.Errorf("tmdb base URL is required")
	}

	client := &Client{
		apiKey:     strings.TrimSpace(cfg.TMDBAPIKey),
		baseURL:    strings.TrimRight(cfg.TMDBBaseURL, "/"),
		language:   languageParam(cfg.Language),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name identifies the provider in logs and metrics
func (c *Client) Name() string {
	return providerName
}

// SearchMovies searches by title, narrowing by release year when one is given
func (c *Client) SearchMovies(ctx context.Context, title, year string) (results []models.SearchResult, err error) {
	defer func() { metrics.ObserveProvider(providerName, err) }()

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	params := url.Values{}
	params.Set("query", title)
	params.Set("api_key", c.apiKey)
	params.Set("include_adult", "false")
	if c.language != "" {
		params.Set("language", c.language)
	}
	if _, convErr := strconv.Atoi(year); convErr == nil {
		params.Set("primary_release_year", year)
	}

	endpoint := c.baseURL + "/search/movie?" + params.Encode()
	c.logger.WithFields(logrus.Fields{
		"title": title,
		"year":  year,
	}).Debug("Performing TMDB search")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tmdb search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode tmdb response: %w", err)
	}

	results = make([]models.SearchResult, 0, len(payload.Results))
	for _, movie := range payload.Results {
		if strings.TrimSpace(movie.Title) == "" {
			continue
		}
		results = append(results, movie.ToSearchResult())
	}

	c.logger.WithField("count", len(results)).Debug("TMDB search completed")
	return results, nil
}

// ToSearchResult converts the TMDB payload into a candidate
func (m Movie) ToSearchResult() models.SearchResult {
	return models.SearchResult{
		Source:          models.SourceTMDB,
		ProviderID:      strconv.FormatInt(m.ID, 10),
		Type:            models.MediaTypeMovie,
		Title:           strings.TrimSpace(m.Title),
		Year:            utils.ExtractYear(m.ReleaseDate),
		Description:     strings.TrimSpace(m.Overview),
		PosterURL:       imageURL(posterSize, m.PosterPath),
		BackupPosterURL: imageURL(backdropSize, m.BackdropPath),
		ReleaseDate:     m.ReleaseDate,
	}
}

func imageURL(size, path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return imageBaseURL + "/" + size + path
}

func languageParam(tag language.Tag) string {
	if tag == language.Und {
		return ""
	}
	return tag.String()
}
