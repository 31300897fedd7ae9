package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"eventbooking/internal/models"
)

type AnalyticsConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AnalyticsClient forwards flattened event and booking summaries to the
// analytics service.
type AnalyticsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAnalyticsClient(cfg AnalyticsConfig) *AnalyticsClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &AnalyticsClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *AnalyticsClient) SendEvent(ctx context.Context, event models.EventAnalytics) error {
	return c.post(ctx, "/api/events", event)
}

func (c *AnalyticsClient) SendBooking(ctx context.Context, booking models.BookingAnalytics) error {
	return c.post(ctx, "/api/bookings", booking)
}

func (c *AnalyticsClient) post(ctx context.Context, path string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call analytics service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics service returned status %d for %s", resp.StatusCode, path)
	}
	return nil
}
