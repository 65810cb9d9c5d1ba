// Package sportmonks implements provider.Source for the SportMonks Football
// v3 API: fixtures of a round with scores and state, season rounds and
// season teams.
package sportmonks

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

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.sportmonks.com/v3/football"

	// maxPages stops a misbehaving has_more flag from looping forever.
	maxPages = 100

	maxBodyBytes = 8 << 20
)

// StatusError is a non-200 answer. RetryAfter is set on 429 when the
// provider says how long to wait.
type StatusError struct {
	Path       string
	Status     int
	RetryAfter time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sportmonks %s: status %d: %s", e.Path, e.Status, e.Body)
}

// Client talks to SportMonks under a token bucket sized to the plan's
// per-minute allowance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client. requestsPerMinute <= 0 uses the standard plan
// limit of 300.
func NewClient(apiToken string, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 300
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		apiToken:   apiToken,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
		logger:     logger,
	}
}

// WithBaseURL points the client at another host (staging, test servers).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// envelope is the common response wrapper.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
}

// get performs one rate-limited GET. The token travels in the Authorization
// header so it never shows up in logged URLs or wrapped errors.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Authorization", c.apiToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c.logger.Debug("SportMonks request", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{Path: path, Status: resp.StatusCode, Body: snippet(body)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
		return nil, se
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &env, nil
}

// getAll walks every page of a list endpoint.
func (c *Client) getAll(ctx context.Context, path string, params url.Values, perPage int) ([]json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("per_page", strconv.Itoa(perPage))

	var items []json.RawMessage
	for page := 1; page <= maxPages; page++ {
		q.Set("page", strconv.Itoa(page))
		env, err := c.get(ctx, path, q)
		if err != nil {
			return nil, err
		}

		var batch []json.RawMessage
		if err := json.Unmarshal(env.Data, &batch); err != nil {
			return nil, fmt.Errorf("decode %s page %d: %w", path, page, err)
		}
		items = append(items, batch...)

		if env.Pagination == nil || !env.Pagination.HasMore {
			return items, nil
		}
	}
	return nil, fmt.Errorf("%s: more than %d pages", path, maxPages)
}

func snippet(b []byte) string {
	const n = 200
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
