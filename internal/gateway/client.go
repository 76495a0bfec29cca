// Package gateway implements domain.Gateway against the herd server's
// REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/corralhq/corral/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Corral/1.0"
)

// Client talks to the herd server over HTTP. Transport-level failures
// are mapped to domain.ErrServerUnreachable so callers can tell
// connectivity loss from server-side rejections.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a herd server API client.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// doRequest performs an authenticated JSON request.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := domain.IdempotencyKey(ctx); key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}

	c.logger.Debug("herd request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("herd request failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrRecordNotFound
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, apiMessage(data))
	default:
		c.logger.Error("herd request error", "status", resp.StatusCode, "path", path)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return string(body)
}

// === Cattle ===

func (c *Client) ListCattle(ctx context.Context) ([]domain.Cattle, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/cattle", nil)
	if err != nil {
		return nil, err
	}
	var records []domain.Cattle
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse cattle list: %w", err)
	}
	return records, nil
}

func (c *Client) CreateCattle(ctx context.Context, payload domain.Cattle) (domain.Cattle, error) {
	// The server assigns the id; a temp id never goes over the wire.
	payload.ID = ""
	data, err := c.doRequest(ctx, http.MethodPost, "/api/cattle", payload)
	if err != nil {
		return domain.Cattle{}, err
	}
	var created domain.Cattle
	if err := json.Unmarshal(data, &created); err != nil {
		return domain.Cattle{}, fmt.Errorf("failed to parse created record: %w", err)
	}
	return created, nil
}

func (c *Client) UpdateCattle(ctx context.Context, id string, patch domain.Cattle) (domain.Cattle, error) {
	data, err := c.doRequest(ctx, http.MethodPut, "/api/cattle/"+id, patch)
	if err != nil {
		return domain.Cattle{}, err
	}
	var updated domain.Cattle
	if err := json.Unmarshal(data, &updated); err != nil {
		return domain.Cattle{}, fmt.Errorf("failed to parse updated record: %w", err)
	}
	return updated, nil
}

func (c *Client) DeleteCattle(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/cattle/"+id, nil)
	return err
}

// === Notifications ===

func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/notifications", nil)
	if err != nil {
		return nil, err
	}
	var records []domain.Notification
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse notifications: %w", err)
	}
	return records, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) (domain.Notification, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/api/notifications/"+id+"/read", nil)
	if err != nil {
		return domain.Notification{}, err
	}
	var updated domain.Notification
	if err := json.Unmarshal(data, &updated); err != nil {
		return domain.Notification{}, fmt.Errorf("failed to parse notification: %w", err)
	}
	return updated, nil
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/notifications/"+id, nil)
	return err
}

// === Aggregates ===

func (c *Client) GetHerdStats(ctx context.Context) (domain.HerdStats, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/stats", nil)
	if err != nil {
		return domain.HerdStats{}, err
	}
	var stats domain.HerdStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.HerdStats{}, fmt.Errorf("failed to parse stats: %w", err)
	}
	return stats, nil
}

// Ping performs a cheap reachability check.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/api/ping", nil)
	return err
}
