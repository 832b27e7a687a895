// Package client talks to the measurement server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shyim/lighthouse-bench/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the server at baseURL. token may be empty.
// A single audit can take minutes, so there is no overall request timeout;
// callers bound requests through the context.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Measure asks the server to audit url with presetKey.
func (c *Client) Measure(ctx context.Context, url, presetKey string) (models.MeasurementResult, error) {
	body, err := json.Marshal(models.MeasureRequest{URL: url, Preset: presetKey})
	if err != nil {
		return models.MeasurementResult{}, err
	}

	var result models.MeasurementResult
	if err := c.do(ctx, http.MethodPost, "/api/measure", body, &result); err != nil {
		return models.MeasurementResult{}, err
	}
	return result, nil
}

func (c *Client) Presets(ctx context.Context) ([]models.PresetInfo, error) {
	var presets []models.PresetInfo
	if err := c.do(ctx, http.MethodGet, "/api/presets", nil, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errResp models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}
