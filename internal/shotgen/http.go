package shotgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxBody caps how much of a response the verifier reads.
const maxBody = 64 << 20

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// specResponse is the subset of /api/shots/spec the verifier checks.
type specResponse struct {
	SliderMax   int `json:"slider_max"`
	PlayerParam struct {
		Options []string `json:"options"`
		Default string   `json:"default"`
	} `json:"player_param"`
	Shots struct {
		Rows []struct {
			Player     string `json:"playerNameI"`
			GameNumber int    `json:"game_number"`
		} `json:"rows"`
	} `json:"shots"`
}

// fetchSpec requests the chart spec for one season and returns it with the
// X-Data-Origin header.
func (c *HTTPClient) fetchSpec(ctx context.Context, baseURL, dataset, season string, limit int) (specResponse, string, error) {
	var spec specResponse

	q := url.Values{}
	if dataset != "" {
		q.Set("dataset", dataset)
	}
	q.Set("season", season)
	q.Set("limit", fmt.Sprint(limit))

	resp, err := c.Get(ctx, baseURL+"/api/shots/spec?"+q.Encode())
	if err != nil {
		return spec, "", fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return spec, "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return spec, "", fmt.Errorf("%w: status %d: %s", ErrVerification, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &spec); err != nil {
		return spec, "", fmt.Errorf("decode spec: %w", err)
	}
	return spec, resp.Header.Get("X-Data-Origin"), nil
}
