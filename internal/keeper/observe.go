// Package keeper implements an autonomous arena steward.
// It observes the arena through the public API, triages its health and
// applies corrective commands through the admin endpoints.
package keeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/arena/internal/engine"
)

// Status mirrors GET /api/v1/status.
type Status struct {
	Tick       uint64 `json:"tick"`
	Paused     bool   `json:"paused"`
	Exhausted  bool   `json:"exhausted"`
	Population int    `json:"population"`
	Items      int    `json:"items"`
	Births     int    `json:"births"`
	Deaths     int    `json:"deaths"`
	Map        string `json:"map"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RunID      string `json:"run_id"`
}

// HistoryRow mirrors items from GET /api/v1/stats/history.
type HistoryRow struct {
	Tick          uint64 `json:"tick"`
	NumCombatants int    `json:"num_combatants"`
	Births        int    `json:"births"`
	Deaths        int    `json:"deaths"`
}

// Observation holds everything collected during one cycle.
type Observation struct {
	Status   Status
	Snapshot engine.Snapshot
	History  []HistoryRow // oldest first; empty when the arena runs without persistence
}

// StatusError is a non-200 answer from the arena API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Observer fetches arena state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Observe fetches status, the full snapshot and recent statistics.
func (o *Observer) Observe(ctx context.Context, historyLimit int) (*Observation, error) {
	obs := &Observation{}

	if err := o.fetchJSON(ctx, "/api/v1/status", &obs.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/snapshot", &obs.Snapshot); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	path := fmt.Sprintf("/api/v1/stats/history?limit=%d", historyLimit)
	err := o.fetchJSON(ctx, path, &obs.History)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusServiceUnavailable {
		err = nil // persistence disabled on the arena
	}
	if err != nil {
		return nil, fmt.Errorf("fetch stats history: %w", err)
	}

	return obs, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WaitReady polls the status endpoint with exponential backoff until it
// answers or ctx expires.
func (o *Observer) WaitReady(ctx context.Context) error {
	backoff := 500 * time.Millisecond
	const maxBackoff = 30 * time.Second
	for {
		var st Status
		if err := o.fetchJSON(ctx, "/api/v1/status", &st); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("arena API not ready: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
