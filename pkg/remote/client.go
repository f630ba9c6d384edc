package remote

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

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	analyzePath = "api/analyze-lab"
	healthPath  = "api/health"
	maxBodySize = 4 << 20
)

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      float64 // requests per second, 0 disables limiting
	CacheSize      int
	CacheTTL       time.Duration // 0 disables caching
	BreakerTimeout time.Duration
}

// Client calls the external lab analysis service.
type Client struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	cache   *expirable.LRU[string, *model.RemoteAnalysis]
	logger  *logrus.Logger
	now     func() time.Time
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("analysis service URL is required")
	}
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "http://" + baseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = merger.DefaultTimeout
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	c := &Client{
		url:    baseURL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "lab-analysis",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a service failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		c.cache = expirable.NewLRU[string, *model.RemoteAnalysis](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return c, nil
}

// URL returns the normalized service base URL.
func (c *Client) URL() string {
	return c.url
}

// Analyze posts the panel's analyte values and maps the reply. Failures are
// wrapped in merger.ErrRemoteAnalysis; there are no retries.
func (c *Client) Analyze(ctx context.Context, panel model.Panel) (*model.RemoteAnalysis, error) {
	key := panel.Fingerprint()
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			c.logger.WithField("panel_date", panel.Date.Format(model.DateLayout)).Debug("Using cached analysis")
			return cached.Clone(), nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			// Wait fails early, before ctx is done, when the next token would
			// arrive after the deadline.
			if _, hasDeadline := ctx.Deadline(); hasDeadline && !errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("%w: rate limit wait: %w", merger.ErrTimeout, err)
			}
			return nil, fmt.Errorf("%w: rate limit wait: %w", merger.ErrRemoteAnalysis, err)
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, panel)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: service unavailable: %w", merger.ErrRemoteAnalysis, err)
		}
		return nil, fmt.Errorf("%w: %w", merger.ErrRemoteAnalysis, err)
	}

	analysis := result.(*model.RemoteAnalysis)
	if c.cache != nil {
		c.cache.Add(key, analysis.Clone())
	}
	return analysis, nil
}

func (c *Client) post(ctx context.Context, panel model.Panel) (*model.RemoteAnalysis, error) {
	body, err := json.Marshal(panel.ValueMap())
	if err != nil {
		return nil, fmt.Errorf("marshal panel: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": c.now().Sub(start).String(),
	}).Debug("Analysis service responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: excerpt(respBytes)}
	}

	return parseResponse(respBytes, c.now)
}

// Ping checks that the service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if health.Status != "healthy" && health.Status != "ok" {
		return fmt.Errorf("analysis service status: %s", health.Status)
	}
	return nil
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
