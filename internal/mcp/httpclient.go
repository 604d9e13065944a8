package mcp

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

	"github.com/claude/fitfusion/internal/fusion"
	"github.com/claude/fitfusion/internal/models"
)

// HTTPClient implements DataSource by calling the FitFusion REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the analytics run on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// statusError is a non-200 answer from the server.
type statusError struct {
	path   string
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("httpclient: %s returned %d: %s", e.path, e.status, e.body)
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{path: path, status: resp.StatusCode, body: body}
	}

	return body, nil
}

func daysParams(days int) url.Values {
	v := url.Values{}
	if days > 0 {
		v.Set("days", strconv.Itoa(days))
	}
	return v
}

// Workouts fetches the analytics response. A 503 from the server wraps
// models.ErrUpstreamUnavailable.
func (c *HTTPClient) Workouts(ctx context.Context, days int, refresh bool) (*models.Response, error) {
	params := daysParams(days)
	if refresh {
		params.Set("refresh", "1")
	}

	body, err := c.get(ctx, "/api/workouts", params)
	if err != nil {
		if se, ok := err.(*statusError); ok && se.status == http.StatusServiceUnavailable {
			return nil, fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	var resp models.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return &resp, nil
}

// ExerciseTrend fetches one exercise's trend. A 404 wraps
// fusion.ErrUnknownExercise.
func (c *HTTPClient) ExerciseTrend(ctx context.Context, name string, days int) (models.ExerciseTrend, error) {
	body, err := c.get(ctx, "/api/v1/exercises/"+url.PathEscape(name)+"/trend", daysParams(days))
	if err != nil {
		if se, ok := err.(*statusError); ok && se.status == http.StatusNotFound {
			return models.ExerciseTrend{}, fmt.Errorf("%w: %q", fusion.ErrUnknownExercise, name)
		}
		return models.ExerciseTrend{}, err
	}

	var trend models.ExerciseTrend
	if err := json.Unmarshal(body, &trend); err != nil {
		return models.ExerciseTrend{}, fmt.Errorf("httpclient: decode trend: %w", err)
	}
	return trend, nil
}
