package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/metrics"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/utils"
	"github.com/sirupsen/logrus"
)

const providerName = "omdb"

// Movie is one entry of an OMDb search response
type Movie struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDBID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type searchResponse struct {
	Search   []Movie `json:"Search"`
	Response string  `json:"Response"`
	Error    string  `json:"Error"`
}

// Client queries the OMDb catalog, keyed by IMDB ids
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates an OMDb client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.OMDBAPIKey) == "" {
		return nil, fmt.Errorf("omdb API key is required")
	}

	baseURL := strings.TrimRight(cfg.OMDBBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.omdbapi.com"
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.OMDBAPIKey),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}, nil
}

// Name identifies the provider in logs and metrics
func (c *Client) Name() string {
	return providerName
}

// SearchMovies searches OMDb by title, narrowing by year when given
func (c *Client) SearchMovies(ctx context.Context, title, year string) (results []models.SearchResult, err error) {
	defer func() { metrics.ObserveProvider(providerName, err) }()

	params := url.Values{}
	params.Set("s", strings.TrimSpace(title))
	params.Set("type", "movie")
	params.Set("apikey", c.apiKey)
	if year != "" {
		params.Set("y", year)
	}

	c.logger.WithFields(logrus.Fields{
		"title": title,
		"year":  year,
	}).Debug("Performing OMDb search")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("omdb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omdb search returned status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode omdb response: %w", err)
	}

	// "Movie not found!" is an empty result, not a failure
	if payload.Response == "False" {
		c.logger.WithField("error", payload.Error).Debug("OMDb returned no results")
		return []models.SearchResult{}, nil
	}

	results = make([]models.SearchResult, 0, len(payload.Search))
	for _, movie := range payload.Search {
		if strings.TrimSpace(movie.Title) == "" || movie.IMDBID == "" {
			continue
		}
		results = append(results, movie.ToSearchResult())
	}
	return results, nil
}

// ToSearchResult converts the OMDb payload into a candidate
func (m Movie) ToSearchResult() models.SearchResult {
	poster := strings.TrimSpace(m.Poster)
	if poster == "N/A" {
		poster = ""
	}
	return models.SearchResult{
		Source:     models.SourceOMDB,
		ProviderID: m.IMDBID,
		Type:       models.MediaTypeMovie,
		Title:      strings.TrimSpace(m.Title),
		Year:       utils.ExtractYear(m.Year),
		PosterURL:  poster,
	}
}
