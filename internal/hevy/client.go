// Package hevy fetches training sessions from the Hevy public API.
package hevy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/claude/fitfusion/internal/models"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://api.hevyapp.com/v1"
	DefaultPageSize = 50
)

// Options configures a Client. Zero values get defaults.
type Options struct {
	BaseURL           string
	APIKey            string
	PageSize          int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxAttempts       int
	RetryBackoff      time.Duration
	Clock             func() time.Time
}

// Client pages through /workouts until it reaches the requested cutoff.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	attempts int
	backoff  time.Duration
	now      func() time.Time

	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient creates a Hevy API client.
func NewClient(opts Options, log *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		pageSize:   opts.PageSize,
		attempts:   opts.MaxAttempts,
		backoff:    opts.RetryBackoff,
		now:        opts.Clock,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		log:        log,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Sessions returns the sessions started within the last days, newest first
// as the API orders them. A workout whose times cannot be read is returned
// with a zero Start so the engine reports it as dropped.
// Any transport or status failure wraps models.ErrUpstreamUnavailable.
func (c *Client) Sessions(ctx context.Context, days int) ([]models.TrainingSession, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: hevy api key not configured", models.ErrUpstreamUnavailable)
	}
	cutoff := c.now().Add(-time.Duration(days) * 24 * time.Hour)

	var sessions []models.TrainingSession
	for page := 1; ; page++ {
		p, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching hevy page %d: %w", models.ErrUpstreamUnavailable, page, err)
		}
		if len(p.Workouts) == 0 {
			break
		}

		for _, w := range p.Workouts {
			s, err := w.ToSession()
			if err != nil {
				// Passed on without a start so validation drops and counts it.
				c.log.Warn("unreadable hevy workout", "id", w.ID, "error", err)
				sessions = append(sessions, models.TrainingSession{ID: w.ID, Title: w.Title, Source: "hevy"})
				continue
			}
			if s.Start.Before(cutoff) {
				return sessions, nil
			}
			sessions = append(sessions, s)
		}

		if len(p.Workouts) < c.pageSize || (p.PageCount > 0 && page >= p.PageCount) {
			break
		}
	}
	return sessions, nil
}

// fetchPage retries transport errors, 429 and 5xx responses with
// exponential backoff.
func (c *Client) fetchPage(ctx context.Context, page int) (*workoutsPage, error) {
	var lastErr error
	for attempt := range c.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		p, retry, err := c.doPage(ctx, page)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.log.Debug("retrying hevy request", "page", page, "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (c *Client) doPage(ctx context.Context, page int) (*workoutsPage, bool, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/workouts?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var p workoutsPage
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, false, fmt.Errorf("decoding page: %w", err)
	}
	return &p, false, nil
}
