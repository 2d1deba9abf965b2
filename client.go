package boxsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BoxStatus is a box as reported by the admin api of a running node.
type BoxStatus struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
	Online  bool   `json:"online"`
	Known   bool   `json:"known"`
}

type Client interface {
	ListBoxes(ctx context.Context) ([]BoxStatus, error)
	Health(ctx context.Context) error
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the admin api served at baseURL.
func NewClient(baseURL string) Client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("node unavailable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (c *client) ListBoxes(ctx context.Context) ([]BoxStatus, error) {
	resp, err := c.get(ctx, "/v1/boxes")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var boxes []BoxStatus
	if err := json.NewDecoder(resp.Body).Decode(&boxes); err != nil {
		return nil, fmt.Errorf("cannot decode boxes response: %w", err)
	}
	return boxes, nil
}

func (c *client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
