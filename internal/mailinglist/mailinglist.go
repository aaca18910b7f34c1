// Package mailinglist syncs subscriber state to a third-party mailing-list
// provider. The provider's API contract is not modeled beyond the calls
// this service makes; sync runs only after admission guards pass.
package mailinglist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Syncer mirrors subscribe/unsubscribe transitions to the provider.
type Syncer interface {
	Subscribe(ctx context.Context, email string) error
	Unsubscribe(ctx context.Context, email string) error
}

// Noop is used when mailing-list sync is disabled.
type Noop struct {
	Logger *zap.Logger
}

func (n *Noop) Subscribe(ctx context.Context, email string) error {
	if n.Logger != nil {
		n.Logger.Debug("mailing list sync disabled, skipping subscribe")
	}
	return nil
}

func (n *Noop) Unsubscribe(ctx context.Context, email string) error {
	if n.Logger != nil {
		n.Logger.Debug("mailing list sync disabled, skipping unsubscribe")
	}
	return nil
}

// Client talks to the provider's members API.
type Client struct {
	BaseURL    string
	APIKey     string
	ListID     string
	HTTPClient *http.Client
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey, listID string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  strings.TrimSpace(apiKey),
		ListID:  listID,
	}
}

// Subscribe adds or reactivates a member on the list.
func (c *Client) Subscribe(ctx context.Context, email string) error {
	return c.post(ctx, "/lists/"+c.ListID+"/members", map[string]string{
		"email":  email,
		"status": "subscribed",
	})
}

// Unsubscribe marks a member unsubscribed on the list.
func (c *Client) Unsubscribe(ctx context.Context, email string) error {
	return c.post(ctx, "/lists/"+c.ListID+"/members", map[string]string{
		"email":  email,
		"status": "unsubscribed",
	})
}

func (c *Client) post(ctx context.Context, path string, payload map[string]string) error {
	if c == nil || c.APIKey == "" {
		return fmt.Errorf("mailing list client not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode list request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sync mailing list: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mailing list provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
