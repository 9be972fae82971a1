package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	providerName          = "youtube"
	defaultAPIBaseURL     = "https://www.googleapis.com/youtube/v3"
	defaultOEmbedEndpoint = "https://www.youtube.com/oembed"
	watchURLPrefix        = "https://www.youtube.com/watch?v="
)

// videoURLRegex matches watch, short-link, embed and shorts URLs, capturing the 11 char id
var videoURLRegex = regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?(?:youtube\.com/(?:watch\?(?:[^\s"'<>]*&)?v=|embed/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{11})`)

// Client searches videos and validates them through oEmbed
type Client struct {
	apiKey         string
	apiBaseURL     string
	oembedEndpoint string
	httpClient     *http.Client
	logger         *logrus.Logger
}

// Option customizes the client
type Option func(*Client)

// WithEndpoints overrides the Data API base URL and the oEmbed endpoint
func WithEndpoints(apiBaseURL, oembedEndpoint string) Option {
	return func(c *Client) {
		if apiBaseURL != "" {
			c.apiBaseURL = strings.TrimRight(apiBaseURL, "/")
		}
		if oembedEndpoint != "" {
			c.oembedEndpoint = oembedEndpoint
		}
	}
}

// NewClient creates a YouTube client. Without an API key only validation works.
func NewClient(cfg *config.Config, logger *logrus.Logger, opts ...Option) *Client {
	client := &Client{
		apiKey:         strings.TrimSpace(cfg.YouTubeAPIKey),
		apiBaseURL:     defaultAPIBaseURL,
		oembedEndpoint: defaultOEmbedEndpoint,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		logger:         logger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SearchVideo returns the watch URL of the best match, "" when nothing matched
func (c *Client) SearchVideo(ctx context.Context, query string) (videoURL string, err error) {
	if c.apiKey == "" {
		return "", nil
	}
	defer func() { metrics.ObserveProvider(providerName, err) }()

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("q", query)
	params.Set("key", c.apiKey)

	c.logger.WithField("query", query).Debug("Performing YouTube search")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("youtube search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("youtube search returned status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode youtube response: %w", err)
	}

	for _, item := range payload.Items {
		if item.ID.VideoID != "" {
			return watchURLPrefix + item.ID.VideoID, nil
		}
	}
	return "", nil
}

// Validate reports whether the oEmbed endpoint resolves the URL to a live video.
// Any transport failure, non-200 status, error field or missing title means invalid.
func (c *Client) Validate(ctx context.Context, videoURL string) bool {
	params := url.Values{}
	params.Set("url", videoURL)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oembedEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("url", videoURL).Debug("oEmbed lookup failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var payload struct {
		Title string `json:"title"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}
	return payload.Error == "" && strings.TrimSpace(payload.Title) != ""
}

// ExtractVideoURLs finds every well-formed video URL in free text, canonicalized
// to the watch form and de-duplicated in order of appearance
func ExtractVideoURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, match := range videoURLRegex.FindAllStringSubmatch(text, -1) {
		canonical := watchURLPrefix + match[1]
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		urls = append(urls, canonical)
	}
	return urls
}
