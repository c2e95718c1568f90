// Package postimport triggers a media-library scan after downloads.
package postimport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blockedby/reactdl/internal/logger"
)

// scanTriggerName identifies our requests in the library server's logs.
const scanTriggerName = "reactdl scan"

// Client calls the media-library endpoint that schedules a folder scan.
// The call is best-effort: callers log failures and continue.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      *logger.Logger
}

// scanRequest is the JSON body of the trigger call.
type scanRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// New creates a post-import client for the given endpoint and api key.
func New(endpoint, apiKey string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Get()
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// TriggerScan asks the library server to scan the directory that just
// received a new file. Success is exactly a 204 response.
func (c *Client) TriggerScan(ctx context.Context, dir string) error {
	body, err := json.Marshal(scanRequest{
		Name: scanTriggerName,
		Path: dir,
	})
	if err != nil {
		return fmt.Errorf("marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-MediaBrowser-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trigger scan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("trigger scan: unexpected status %d", resp.StatusCode)
	}

	c.log.Debug().Str("dir", dir).Msg("library scan triggered")
	return nil
}
