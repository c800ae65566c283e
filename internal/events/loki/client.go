// Package loki pushes published events to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // each entry is [timestamp_ns, log_line]
}

// labelSanitize replaces characters we do not allow in label values.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// eventFields is the subset of an events.Event JSON used for labels and timestamp.
type eventFields struct {
	Name       string `json:"name"`
	OccurredAt string `json:"occurred_at"`
}

// Client pushes lines to a Loki instance.
type Client struct {
	BaseURL    string
	Job        string
	HTTPClient *http.Client
}

// NewClient returns a client for baseURL (e.g. http://localhost:3100) labelling streams with job.
func NewClient(baseURL, job string) *Client {
	if job == "" {
		job = "identity-registration"
	}
	return &Client{
		BaseURL:    baseURL,
		Job:        job,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// PushEventJSON pushes a raw event (a Kafka message value) using its name as the
// "event" label and occurred_at as the entry time. Unparseable input is pushed
// as-is at the current time.
func (c *Client) PushEventJSON(ctx context.Context, raw []byte) error {
	labels := map[string]string{}
	ts := time.Now().UTC()
	var f eventFields
	if err := json.Unmarshal(raw, &f); err == nil {
		if f.Name != "" {
			labels["event"] = f.Name
		}
		if t, err := time.Parse(time.RFC3339Nano, f.OccurredAt); err == nil {
			ts = t
		}
	}
	return c.Push(ctx, ts, string(raw), labels)
}

// Push sends a single line with the given labels. Returns an error if the request
// fails or Loki answers with a non-2xx status.
func (c *Client) Push(ctx context.Context, ts time.Time, line string, labels map[string]string) error {
	if c.BaseURL == "" {
		return fmt.Errorf("loki: base URL is empty")
	}
	streamLabels := map[string]string{"job": c.Job}
	for k, v := range labels {
		if s := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); s != "" {
			streamLabels[k] = s
		}
	}
	payload, err := json.Marshal(PushRequest{
		Streams: []Stream{{
			Stream: streamLabels,
			Values: [][]string{{strconv.FormatInt(ts.UnixNano(), 10), line}},
		}},
	})
	if err != nil {
		return err
	}
	url := strings.TrimSuffix(c.BaseURL, "/") + "/loki/api/v1/push"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
