// Package render calls the size-chart render service, which turns
// merchant-entered size data into a JPEG for inclusion in image bundles.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single render call. The service renders
	// server-side and normally answers well under a second.
	DefaultTimeout = 10 * time.Second

	sizeTableTitle = "尺码表"
	oneLineTitle   = "关于尺码"

	maxErrorBodyBytes = 512
)

// HTTPClient abstracts HTTP operations for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a size-chart render service client.
type Client struct {
	httpClient HTTPClient
	endpoint   string
	token      string
	timeout    time.Duration
}

// NewClient creates a render client. A nil httpClient falls back to
// http.DefaultClient; a non-positive timeout falls back to DefaultTimeout.
func NewClient(endpoint, token string, timeout time.Duration, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		token:      token,
		timeout:    timeout,
	}
}

// Request bodies are camelCase per the render service contract.

type sizeTableRequest struct {
	TableData tableData `json:"tableData"`
}

type tableData struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type oneLineRequest struct {
	OneLineSizeData oneLineSizeData `json:"oneLineSizeData"`
}

type oneLineSizeData struct {
	Title string `json:"title"`
	Size  string `json:"size"`
}

// RenderSizeTable renders a tabular size chart and returns the JPEG bytes.
func (c *Client) RenderSizeTable(ctx context.Context, headers []string, rows [][]string) ([]byte, error) {
	payload := sizeTableRequest{
		TableData: tableData{
			Title:   sizeTableTitle,
			Headers: headers,
			Rows:    rows,
		},
	}
	return c.post(ctx, "size-table", payload)
}

// RenderOneLine renders a single-line size description and returns the JPEG bytes.
func (c *Client) RenderOneLine(ctx context.Context, size string) ([]byte, error) {
	payload := oneLineRequest{
		OneLineSizeData: oneLineSizeData{
			Title: oneLineTitle,
			Size:  size,
		},
	}
	return c.post(ctx, "one-line-size", payload)
}

func (c *Client) post(ctx context.Context, renderType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create render request: %w", err)
	}

	q := req.URL.Query()
	q.Set("type", renderType)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("render service returned status %d: %s", resp.StatusCode, excerpt)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read render response: %w", err)
	}

	return image, nil
}
