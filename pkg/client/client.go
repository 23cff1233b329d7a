// Package client is a Go client for the stackwatch REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the stackwatch API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds the client configuration.
type Config struct {
	BaseURL    string        // API base URL (e.g., "http://localhost:8080")
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// NewClient creates a new stackwatch API client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}
}

// successEnvelope is the standard single-object response body.
type successEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// listEnvelope is the paginated collection response body.
type listEnvelope struct {
	Page  int             `json:"page"`
	Total int64           `json:"total"`
	Count int             `json:"count"`
	Items json.RawMessage `json:"items"`
}

// doRequest performs an HTTP request and decodes the raw response body.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		if err := json.Unmarshal(respBody, &env); err != nil || env.Error.Message == "" {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
		env.Error.StatusCode = resp.StatusCode
		return &env.Error
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// getData performs a request and unwraps the data field of the success
// envelope into out.
func (c *Client) getData(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var env successEnvelope
	if err := c.doRequest(ctx, method, path, body, &env); err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// getList performs a request against a collection endpoint and unwraps
// its items into out.
func (c *Client) getList(ctx context.Context, path string, out interface{}) (int64, error) {
	var env listEnvelope
	if err := c.doRequest(ctx, "GET", path, nil, &env); err != nil {
		return 0, err
	}
	if out != nil && len(env.Items) > 0 {
		if err := json.Unmarshal(env.Items, out); err != nil {
			return 0, fmt.Errorf("failed to parse response items: %w", err)
		}
	}
	return env.Total, nil
}

// DoRaw performs an arbitrary API request, decoding the raw response.
func (c *Client) DoRaw(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, method, path, body, result)
}

// Items returns the item service.
func (c *Client) Items() *ItemService {
	return &ItemService{client: c}
}

// Issues returns the issue service.
func (c *Client) Issues() *IssueService {
	return &IssueService{client: c}
}

// Accounts returns the account service.
func (c *Client) Accounts() *AccountService {
	return &AccountService{client: c}
}

// Scanners returns the scan engine config service.
func (c *Client) Scanners() *ScannerService {
	return &ScannerService{client: c}
}

// Reports returns the reporting service.
func (c *Client) Reports() *ReportService {
	return &ReportService{client: c}
}
