package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"order-analysis/internal/database"
	"order-analysis/internal/handlers"
	"order-analysis/internal/report"
	"order-analysis/internal/services"
	"order-analysis/internal/workers"
)

// Client represents an HTTP client for the order analysis API
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	retries    int
	retryDelay time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithAPIKey sends key as a bearer token on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithRetries retries idempotent requests that fail with a server error.
func WithRetries(n int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = n
		c.retryDelay = delay
	}
}

// NewClient creates a new API client
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultConfig().RequestTimeout
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents an error from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// retryable reports whether the request may succeed when sent again.
func (e *APIError) retryable() bool {
	switch e.StatusCode {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ReportQuery selects the report day and hub. Empty fields use the server's
// defaults.
type ReportQuery struct {
	Date    string
	Hub     string
	Refresh bool
}

func (q ReportQuery) values() url.Values {
	v := url.Values{}
	if q.Date != "" {
		v.Set("date", q.Date)
	}
	if q.Hub != "" {
		v.Set("hub", q.Hub)
	}
	if q.Refresh {
		v.Set("refresh", "true")
	}
	return v
}

// doRequest performs an HTTP request and converts error responses into
// *APIError. GET requests are retried on server errors.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		resp, err := c.send(ctx, method, target)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errResp handlers.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		} else if s := strings.TrimSpace(string(body)); s != "" {
			apiErr.Message = s
		}
		return nil, apiErr
	}

	return resp, nil
}

// backoff grows the retry delay exponentially with the attempt number.
func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)))
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.callJSON(ctx, http.MethodGet, path, query, out)
}

func (c *Client) callJSON(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	resp, err := c.doRequest(ctx, method, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks if the API server is healthy
func (c *Client) Health(ctx context.Context) (*handlers.HealthResponse, error) {
	var health handlers.HealthResponse
	if err := c.getJSON(ctx, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Config returns the server's report configuration.
func (c *Client) Config(ctx context.Context) (*handlers.ConfigResponse, error) {
	var cfg handlers.ConfigResponse
	if err := c.getJSON(ctx, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Report computes every section for one day and hub.
func (c *Client) Report(ctx context.Context, q ReportQuery) (*services.Result, error) {
	var result services.Result
	if err := c.getJSON(ctx, "/api/reports/", q.values(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// section fetches one report section and decodes its data into out.
func (c *Client) section(ctx context.Context, path string, q ReportQuery, out interface{}) error {
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/reports/"+path, q.values(), &resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Drivers returns the driver-wise summary.
func (c *Client) Drivers(ctx context.Context, q ReportQuery) (*report.DriverSummary, error) {
	var s report.DriverSummary
	if err := c.section(ctx, "drivers", q, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Hubs returns the hub-wise summary.
func (c *Client) Hubs(ctx context.Context, q ReportQuery) (*report.HubSummary, error) {
	var s report.HubSummary
	if err := c.section(ctx, "hubs", q, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Vehicles returns the vehicle utilization summary.
func (c *Client) Vehicles(ctx context.Context, q ReportQuery) (*report.VehicleUtilization, error) {
	var v report.VehicleUtilization
	if err := c.section(ctx, "vehicles", q, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// HubTimes returns first out-for-delivery counts per hub and time bucket.
func (c *Client) HubTimes(ctx context.Context, q ReportQuery) (*report.HubTimeDistribution, error) {
	var d report.HubTimeDistribution
	if err := c.section(ctx, "time-buckets/hubs", q, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CustomerTimes returns pickup counts per customer and time bucket.
func (c *Client) CustomerTimes(ctx context.Context, q ReportQuery) (*report.CustomerTimeDistribution, error) {
	var d report.CustomerTimeDistribution
	if err := c.section(ctx, "time-buckets/customers", q, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Export downloads one rendered table. The caller must close the returned
// body. The file name comes from the server's Content-Disposition header.
func (c *Client) Export(ctx context.Context, table, format string, q ReportQuery) (io.ReadCloser, string, error) {
	values := q.values()
	if format != "" {
		values.Set("format", format)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/reports/"+url.PathEscape(table)+"/export", values)
	if err != nil {
		return nil, "", err
	}

	filename := table + "." + format
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return resp.Body, filename, nil
}

// Runs lists recent report runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]database.Run, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var runs []database.Run
	if err := c.getJSON(ctx, "/api/runs", values, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Run returns one report run by id.
func (c *Client) Run(ctx context.Context, id string) (*database.Run, error) {
	var run database.Run
	if err := c.getJSON(ctx, "/api/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// RunSnapshot triggers a snapshot of every configured hub.
func (c *Client) RunSnapshot(ctx context.Context) (*workers.SnapshotSummary, error) {
	var summary workers.SnapshotSummary
	if err := c.callJSON(ctx, http.MethodPost, "/api/snapshots", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SnapshotStatus reports the scheduler state.
func (c *Client) SnapshotStatus(ctx context.Context) (*handlers.SnapshotStatusResponse, error) {
	var status handlers.SnapshotStatusResponse
	if err := c.getJSON(ctx, "/api/snapshots/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// PauseSnapshots stops scheduled snapshots until resumed.
func (c *Client) PauseSnapshots(ctx context.Context) error {
	var ignored map[string]string
	return c.callJSON(ctx, http.MethodPost, "/api/snapshots/pause", nil, &ignored)
}

// ResumeSnapshots re-enables scheduled snapshots.
func (c *Client) ResumeSnapshots(ctx context.Context) error {
	var ignored map[string]string
	return c.callJSON(ctx, http.MethodPost, "/api/snapshots/resume", nil, &ignored)
}

// InvalidateCache drops the server's cached order snapshot.
func (c *Client) InvalidateCache(ctx context.Context) (*handlers.InvalidateResponse, error) {
	var resp handlers.InvalidateResponse
	if err := c.callJSON(ctx, http.MethodPost, "/api/cache/invalidate", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
