package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Payload is the JSON body forwarded to the completion backend.
type Payload struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// Response is the raw backend reply. The status code is informational only.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client represents a client to communicate with the backend API server.
type Client struct {
	url  string
	http *resty.Client
}

// NewBackendClient creates a new Client posting to url.
func NewBackendClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

// URL returns the backend endpoint.
func (c *Client) URL() string {
	return c.url
}

// Complete sends one completion request and returns the backend's reply
// whatever its status code.
func (c *Client) Complete(ctx context.Context, payload Payload) (*Response, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", c.url, err)
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}

// Healthy reports whether the backend answered with a non-5xx status.
func (r *Response) Healthy() bool {
	return r.StatusCode > 0 && r.StatusCode < http.StatusInternalServerError
}
