package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"despesas/internal/core"
)

// Payload is the wire form of a state snapshot. The optional fields are
// pointers so "absent" is distinguishable from "zero": a fetch only
// overwrites local fields that are present, and a push only touches
// remote config keys it carries.
type Payload struct {
	Expenses         []core.Expense `json:"expenses"`
	Revenue          *core.Money    `json:"revenue,omitempty"`
	RevenueDate      *core.Date     `json:"revenueDate,omitempty"`
	RevenueStartDate *core.Date     `json:"revenueStartDate,omitempty"`
	RevenueEndDate   *core.Date     `json:"revenueEndDate,omitempty"`
	FilterStartDate  *core.Date     `json:"filterStartDate,omitempty"`
	FilterEndDate    *core.Date     `json:"filterEndDate,omitempty"`
}

// StatusError reports a non-success HTTP status from the sync endpoint.
type StatusError struct {
	Op     string
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

// Client talks to the remote sync endpoint. Every failure it returns is a
// network-tier failure the caller is expected to swallow and degrade from;
// nothing here is fatal by itself.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchAll reads the full remote state in one request.
func (c *Client) FetchAll(ctx context.Context) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sync", nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch remote state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "fetch remote state", Status: resp.StatusCode, Detail: readErrorDetail(resp.Body)}
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode remote state: %w", err)
	}
	return &payload, nil
}

// PushAll replaces the remote copy with the entire snapshot. Never a diff.
func (c *Client) PushAll(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sync", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "push snapshot", Status: resp.StatusCode, Detail: readErrorDetail(resp.Body)}
	}
	return nil
}

// Ping probes remote reachability for the connectivity tracker.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping remote: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "ping remote", Status: resp.StatusCode}
	}
	return nil
}

func readErrorDetail(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err != nil {
		return ""
	}
	return body.Error
}
