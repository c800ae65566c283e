package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// APIClient sends rendered messages to a transactional mail HTTP API as JSON.
type APIClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
	templates  *Templates
}

// NewAPIClient returns a client posting to baseURL with apiKey as bearer token.
func NewAPIClient(apiKey, baseURL, sender string, templates *Templates) *APIClient {
	return &APIClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		templates:  templates,
	}
}

// Send renders template with data and posts it. Any non-2xx response is an error.
func (c *APIClient) Send(ctx context.Context, subject, to, template string, data any) error {
	if c.BaseURL == "" {
		return fmt.Errorf("mail: API URL not configured")
	}
	msg, err := c.templates.Render(subject, to, template, data)
	if err != nil {
		return err
	}
	msg.From = c.Sender
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
