package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	providerName       = "gemini"
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultHTTPTimeout = 60 * time.Second
	defaultMaxRetries  = 3
)

// Client wraps the Gemini generateContent API
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger

	maxRetries   uint64
	initialDelay time.Duration
}

// Option customizes the client
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points the client at another endpoint (used by tests)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRetry overrides the retry count and the first backoff delay
func WithRetry(maxRetries uint64, initialDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialDelay = initialDelay
	}
}

// WithRateLimit overrides the request throttle
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewClient creates a Gemini client
func NewClient(cfg *config.Config, logger *logrus.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client := &Client{
		apiKey:       strings.TrimSpace(cfg.GeminiAPIKey),
		model:        model,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		limiter:      rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		logger:       logger,
		maxRetries:   defaultMaxRetries,
		initialDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini API error %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// GenerateContent sends one request, retrying rate limits and server errors
func (c *Client) GenerateContent(ctx context.Context, request Request) (response *Response, err error) {
	defer func() { metrics.ObserveProvider(providerName, err) }()

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialDelay
	retrier := backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create gemini request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.WithError(err).WithField("attempt", attempt).Warn("Gemini request failed")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			statusErr := &statusError{StatusCode: resp.StatusCode, Body: string(raw)}
			if retryable(resp.StatusCode) {
				c.logger.WithFields(logrus.Fields{
					"attempt": attempt,
					"status":  resp.StatusCode,
				}).Warn("Gemini rate limited or server error")
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		var decoded Response
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("decode gemini response: %w", err))
		}
		if decoded.Error != nil {
			return backoff.Permanent(fmt.Errorf("gemini API error: %s", decoded.Error.Message))
		}
		response = &decoded
		return nil
	}

	if err := backoff.Retry(operation, retrier); err != nil {
		return nil, fmt.Errorf("gemini request failed after %d attempts: %w", attempt, err)
	}
	return response, nil
}

// Generate sends a single-turn prompt and returns the text of the first candidate
func (c *Client) Generate(ctx context.Context, prompt string, tools ...Tool) (string, error) {
	response, err := c.GenerateContent(ctx, Request{
		Contents: []Content{UserText(prompt)},
		Tools:    tools,
	})
	if err != nil {
		return "", err
	}
	text := response.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini returned empty response")
	}
	return text, nil
}

// GenerateJSON sends a prompt asking for a JSON object and decodes the reply into v
func (c *Client) GenerateJSON(ctx context.Context, prompt string, v interface{}) error {
	response, err := c.GenerateContent(ctx, Request{
		Contents:         []Content{UserText(prompt)},
		GenerationConfig: &GenerationConfig{ResponseMIMEType: "application/json", Temperature: 0.2},
	})
	if err != nil {
		return err
	}
	text := response.Text()
	if strings.TrimSpace(text) == "" {
		return errors.New("gemini returned empty response")
	}
	return DecodeJSON(text, v)
}

// SearchGrounded sends a prompt with the Google Search grounding tool enabled
func (c *Client) SearchGrounded(ctx context.Context, prompt string) (string, error) {
	return c.Generate(ctx, prompt, Tool{GoogleSearch: &struct{}{}})
}

// DecodeJSON unmarshals model output, tolerating markdown code fences and surrounding prose
func DecodeJSON(text string, v interface{}) error {
	cleaned := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("parse gemini JSON (raw: %s)", cleaned[:min(200, len(cleaned))])
}
