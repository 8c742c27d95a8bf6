package keeper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Actor executes interventions via the admin API.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:    baseURL,
		AdminKey:   adminKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Act applies d and returns how many commands the arena accepted. A spawn
// whose tile was taken since the observation is skipped, not failed.
func (a *Actor) Act(ctx context.Context, d Decision) (int, error) {
	switch d.Action {
	case ActionNone:
		return 0, nil
	case ActionReset:
		if err := a.post(ctx, "/api/v1/reset", nil); err != nil {
			return 0, err
		}
		return 1, nil
	case ActionSpawn:
		applied := 0
		for _, c := range d.Cells {
			err := a.post(ctx, "/api/v1/spawn", c)
			var se *StatusError
			if errors.As(err, &se) && se.Code == http.StatusBadRequest {
				slog.Debug("spawn skipped", "x", c.X, "y", c.Y, "reason", se.Body)
				continue
			}
			if err != nil {
				return applied, err
			}
			applied++
		}
		return applied, nil
	case ActionBomb:
		applied := 0
		for _, c := range d.Cells {
			body := map[string]any{"x": c.X, "y": c.Y, "kind": "item", "value": "bomb"}
			if err := a.post(ctx, "/api/v1/paint", body); err != nil {
				return applied, err
			}
			applied++
		}
		return applied, nil
	}
	return 0, fmt.Errorf("unknown action %q", d.Action)
}

func (a *Actor) post(ctx context.Context, path string, payload any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{Method: http.MethodPost, Path: path, Code: resp.StatusCode, Body: string(respBody)}
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}
