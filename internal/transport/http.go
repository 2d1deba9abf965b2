package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRequestTimeout = 30 * time.Second

	// DefaultMaxPayloadSize bounds the size of one fetched payload.
	DefaultMaxPayloadSize = 512 << 20
)

// HTTPPeer talks to the outbox endpoints of a remote box.
type HTTPPeer struct {
	BaseURL        string
	HttpClient     *http.Client
	MaxPayloadSize int64
}

var _ Peer = (*HTTPPeer)(nil)

// NewHTTPPeer creates a peer client rooted at baseURL.
func NewHTTPPeer(baseURL string) *HTTPPeer {
	return &HTTPPeer{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		HttpClient:     &http.Client{Timeout: defaultRequestTimeout},
		MaxPayloadSize: DefaultMaxPayloadSize,
	}
}

type failureReport struct {
	OutboxEntry *WorkUnit `json:"outboxEntry"`
	Message     string    `json:"message"`
}

// do sends one request and returns the response when it is 2xx.
func (c *HTTPPeer) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRequest, method, path, err)
	}

	return resp, nil
}

func (c *HTTPPeer) PollForWork(ctx context.Context) (*WorkUnit, error) {
	resp, err := c.do(ctx, http.MethodGet, "/outbox/poll", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, statusError(http.MethodGet, "/outbox/poll", resp)
	}

	var unit WorkUnit
	if err := json.NewDecoder(resp.Body).Decode(&unit); err != nil {
		return nil, fmt.Errorf("%w: cannot decode work unit: %v", ErrRequest, err)
	}
	return &unit, nil
}

func (c *HTTPPeer) FetchPayload(ctx context.Context, unit *WorkUnit) ([]byte, error) {
	query := url.Values{}
	query.Set("transactionid", strconv.FormatInt(unit.TransactionID, 10))
	query.Set("sequencenumber", strconv.FormatInt(unit.SequenceNumber, 10))
	path := "/outbox?" + query.Encode()

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(http.MethodGet, path, resp)
	}

	limit := c.MaxPayloadSize
	if limit <= 0 {
		limit = DefaultMaxPayloadSize
	}

	// one byte past the limit tells a full payload from a cut one
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read payload: %v", ErrRequest, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: payload of unit %d/%d is larger than %d bytes", ErrRequest, unit.TransactionID, unit.SequenceNumber, limit)
	}
	return data, nil
}

func (c *HTTPPeer) Acknowledge(ctx context.Context, unit *WorkUnit) error {
	return c.post(ctx, "/outbox/done", unit)
}

func (c *HTTPPeer) ReportFailure(ctx context.Context, unit *WorkUnit, message string) error {
	return c.post(ctx, "/outbox/failed", failureReport{OutboxEntry: unit, Message: message})
}

func (c *HTTPPeer) post(ctx context.Context, path string, body any) error {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodPost, path, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s %s: status %d: %s", ErrRequest, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
}
