package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/modwatch/citywatch/internal/eventlog"
	"github.com/modwatch/citywatch/internal/lifecycle"
)

// StateInfo is the /v1/state response shape.
type StateInfo struct {
	State   string `json:"state"`
	Context string `json:"context"`
}

// Client talks to a running observer over its HTTP API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient builds a client for the observer at addr (host:port).
func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// State fetches the current lifecycle state and presentation context.
func (c *Client) State(ctx context.Context) (StateInfo, error) {
	var info StateInfo
	err := c.getJSON(ctx, "/v1/state", &info)
	return info, err
}

// Events fetches the n most recent event records.
func (c *Client) Events(ctx context.Context, n int) ([]eventlog.Record, error) {
	var records []eventlog.Record
	err := c.getJSON(ctx, "/v1/events?n="+strconv.Itoa(n), &records)
	return records, err
}

// Scenarios fetches the scenario flag set.
func (c *Client) Scenarios(ctx context.Context) ([]lifecycle.Scenario, error) {
	var scenarios []lifecycle.Scenario
	err := c.getJSON(ctx, "/v1/scenarios", &scenarios)
	return scenarios, err
}

// Counters fetches the transition, error, and hook counters.
func (c *Client) Counters(ctx context.Context) (lifecycle.Counters, error) {
	var counters lifecycle.Counters
	err := c.getJSON(ctx, "/v1/counters", &counters)
	return counters, err
}

// Pending fetches the outstanding pending actions keyed by intent kind.
func (c *Client) Pending(ctx context.Context) (map[string]lifecycle.PendingAction, error) {
	pending := map[string]lifecycle.PendingAction{}
	err := c.getJSON(ctx, "/v1/pending", &pending)
	return pending, err
}

// Export fetches the full diagnostic snapshot.
func (c *Client) Export(ctx context.Context) (lifecycle.Snapshot, error) {
	var snap lifecycle.Snapshot
	err := c.getJSON(ctx, "/v1/export", &snap)
	return snap, err
}

// Clear wipes the observer's diagnostics, in memory and archived.
func (c *Client) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/clear", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach observer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear failed with status %s", resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach observer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
