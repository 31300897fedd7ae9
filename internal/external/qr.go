package external

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type QRConfig struct {
	BaseURL string
	Size    string
	Timeout time.Duration
}

// QRClient renders confirmation payloads into QR images through an HTTP
// service and returns them base64 encoded.
type QRClient struct {
	baseURL    string
	size       string
	httpClient *http.Client
}

func NewQRClient(cfg QRConfig) *QRClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Size == "" {
		cfg.Size = "250x250"
	}

	return &QRClient{
		baseURL: cfg.BaseURL,
		size:    cfg.Size,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

const maxQRBytes = 1 << 20

func (c *QRClient) Generate(ctx context.Context, payload string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid QR service url: %w", err)
	}
	q := u.Query()
	q.Set("data", payload)
	q.Set("size", c.size)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build QR request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call QR service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("QR service returned status %d", resp.StatusCode)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxQRBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read QR image: %w", err)
	}
	if len(image) == 0 {
		return "", fmt.Errorf("QR service returned an empty image")
	}

	return base64.StdEncoding.EncodeToString(image), nil
}
