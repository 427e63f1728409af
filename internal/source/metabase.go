package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"order-analysis/internal/orders"
)

// MetabaseConfig configures access to a saved Metabase question.
type MetabaseConfig struct {
	URL           string
	Username      string
	Password      string
	CardID        int
	Timeout       time.Duration
	RetryCount    int
	RetryDelay    time.Duration
	BackoffFactor float64
	UserAgent     string
}

// MetabaseSource runs a saved question and decodes its JSON export.
type MetabaseSource struct {
	baseURL    string
	httpClient *http.Client
	config     MetabaseConfig
	loc        *time.Location
	logger     *slog.Logger

	mu      sync.Mutex
	session string
}

// StatusError is a non-success HTTP response from Metabase.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("metabase returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

var (
	errUnauthorized = errors.New("metabase session rejected")
	errMalformed    = errors.New("malformed card results")
)

// NewMetabaseSource validates cfg and fills defaults.
func NewMetabaseSource(cfg MetabaseConfig, loc *time.Location, logger *slog.Logger) (*MetabaseSource, error) {
	if cfg.URL == "" {
		return nil, errors.New("metabase URL is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid metabase URL %q", cfg.URL)
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("metabase username and password are required")
	}
	if cfg.CardID <= 0 {
		return nil, errors.New("metabase card id must be positive")
	}
	if cfg.RetryCount < 0 {
		return nil, errors.New("retry count cannot be negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.BackoffFactor == 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "order-analysis/1.0"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MetabaseSource{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		loc:        loc,
		logger:     logger,
	}, nil
}

// Name identifies the source in caches and run logs.
func (m *MetabaseSource) Name() string {
	return fmt.Sprintf("metabase:card/%d", m.config.CardID)
}

// Fetch runs the saved question, retrying transient failures with
// exponential backoff. A rejected session triggers one re-login.
func (m *MetabaseSource) Fetch(ctx context.Context) (*orders.Table, error) {
	start := time.Now()

	var (
		rows     []map[string]any
		lastErr  error
		reauthed bool
	)
	for attempt := 0; attempt <= m.config.RetryCount; attempt++ {
		var err error
		rows, err = m.queryCard(ctx)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err

		if errors.Is(err, errUnauthorized) && !reauthed {
			m.logger.Info("Metabase session expired, logging in again")
			m.clearSession()
			reauthed = true
			attempt--
			continue
		}
		if !isRetryable(err) {
			break
		}
		if attempt < m.config.RetryCount {
			delay := m.backoff(attempt)
			m.logger.Warn("Metabase request failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return nil, &FetchError{Source: m.Name(), Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
	}
	if lastErr != nil {
		return nil, &FetchError{Source: m.Name(), Err: lastErr}
	}

	table, err := orders.FromMaps(rows, m.loc)
	if err != nil {
		return nil, err
	}
	logDecoded(m.logger, m.Name(), table, time.Since(start))
	return table, nil
}

func (m *MetabaseSource) queryCard(ctx context.Context) ([]map[string]any, error) {
	session, err := m.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/card/%d/query/json", m.baseURL, m.config.CardID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", m.config.UserAgent)
	req.Header.Set("X-Metabase-Session", session)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return rows, nil
}

func (m *MetabaseSource) ensureSession(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != "" {
		return m.session, nil
	}

	payload, err := json.Marshal(map[string]string{
		"username": m.config.Username,
		"password": m.config.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/session", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", m.config.UserAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("failed to decode session: %w", err)
	}
	if session.ID == "" {
		return "", errors.New("metabase login returned no session id")
	}

	m.logger.Debug("Metabase session established")
	m.session = session.ID
	return m.session, nil
}

func (m *MetabaseSource) clearSession() {
	m.mu.Lock()
	m.session = ""
	m.mu.Unlock()
}

// backoff returns RetryDelay * BackoffFactor^attempt, capped at 30s.
func (m *MetabaseSource) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= m.config.BackoffFactor
	}
	delay := time.Duration(float64(m.config.RetryDelay) * multiplier)
	if maxDelay := 30 * time.Second; delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// isRetryable treats transport errors and 5xx/429 responses as transient.
func isRetryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.retryable()
	}
	return !errors.Is(err, errUnauthorized) &&
		!errors.Is(err, errMalformed) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
