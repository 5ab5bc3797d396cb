package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Checker fetches new records for a poll-based trigger. Email records
// should carry an "id" so repeats can be suppressed.
type Checker interface {
	Check(ctx context.Context, spec automation.Spec) ([]map[string]any, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, spec automation.Spec) ([]map[string]any, error)

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context, spec automation.Spec) ([]map[string]any, error) {
	return f(ctx, spec)
}

const maxFeedBody = 4 << 20 // 4 MB

// FeedChecker GETs spec["feed_url"] and expects a JSON array of objects.
// Optional spec["headers"] is sent with the request.
type FeedChecker struct {
	Client *http.Client
}

// NewFeedChecker creates a FeedChecker with a bounded HTTP timeout.
func NewFeedChecker(timeout time.Duration) *FeedChecker {
	return &FeedChecker{Client: &http.Client{Timeout: timeout}}
}

// Check fetches the feed.
func (c *FeedChecker) Check(ctx context.Context, spec automation.Spec) ([]map[string]any, error) {
	url := spec.String("feed_url")
	if url == "" {
		return nil, ErrNoFeedURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range spec.Map("headers") {
		req.Header.Set(k, fmt.Sprint(v))
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed: unexpected status %d", resp.StatusCode)
	}

	var records []map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBody)).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}
	return records, nil
}
