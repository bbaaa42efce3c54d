package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadrush/internal/game"
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Body)
}

// IsNetworkError reports whether err means the API could not be reached at all,
// as opposed to the API rejecting the request.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return false
	}
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) State(ctx context.Context) (game.Snapshot, error) {
	var out game.Snapshot
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", nil, &out, "")
	return out, err
}

func (c *Client) Rates(ctx context.Context) (game.Rates, error) {
	var out game.Rates
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rates", nil, &out, "")
	return out, err
}

func (c *Client) Buildings(ctx context.Context) ([]game.BuildingView, error) {
	var out struct {
		Buildings []game.BuildingView `json:"buildings"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/buildings", nil, &out, "")
	return out.Buildings, err
}

func (c *Client) Upgrades(ctx context.Context) ([]game.UpgradeView, error) {
	var out struct {
		Upgrades []game.UpgradeView `json:"upgrades"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/upgrades", nil, &out, "")
	return out.Upgrades, err
}

func (c *Client) Powerups(ctx context.Context) ([]game.PowerupView, []game.PendingPowerup, error) {
	var out struct {
		Powerups []game.PowerupView    `json:"powerups"`
		Pending  []game.PendingPowerup `json:"pending"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/powerups", nil, &out, "")
	return out.Powerups, out.Pending, err
}

func (c *Client) BuyBuilding(ctx context.Context, id string, bulk bool, idem string) (game.BuyResult, error) {
	var out game.BuyResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/buildings/"+url.PathEscape(id)+"/buy", map[string]any{
		"bulk": bulk,
	}, &out, idem)
	return out, err
}

func (c *Client) BuyUpgrade(ctx context.Context, id, idem string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/upgrades/"+url.PathEscape(id)+"/buy", nil, nil, idem)
}

func (c *Client) Click(ctx context.Context, resource string, count int, idem string) (game.ClickResult, error) {
	var out game.ClickResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/click/"+url.PathEscape(resource), map[string]any{
		"count": count,
	}, &out, idem)
	return out, err
}

func (c *Client) ToggleAcquisition(ctx context.Context, idem string) (bool, error) {
	var out struct {
		Paused bool `json:"acquisitionPaused"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/acquisition/toggle", nil, &out, idem)
	return out.Paused, err
}

func (c *Client) ToggleWorkflow(ctx context.Context, idem string) (bool, error) {
	var out struct {
		Active bool `json:"flexibleWorkflowActive"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/workflow/toggle", nil, &out, idem)
	return out.Active, err
}

// ClickPowerup claims a spawned power-up; TriggerPowerup activates one directly.
func (c *Client) ClickPowerup(ctx context.Context, id, idem string) (game.ActiveBoost, error) {
	return c.boost(ctx, "/v1/powerups/"+url.PathEscape(id)+"/click", idem)
}

func (c *Client) TriggerPowerup(ctx context.Context, id, idem string) (game.ActiveBoost, error) {
	return c.boost(ctx, "/v1/powerups/"+url.PathEscape(id)+"/trigger", idem)
}

func (c *Client) boost(ctx context.Context, path, idem string) (game.ActiveBoost, error) {
	var out struct {
		Boost game.ActiveBoost `json:"boost"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, path, nil, &out, idem)
	return out.Boost, err
}

func (c *Client) Pause(ctx context.Context, idem string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/game/pause", nil, nil, idem)
}

func (c *Client) Resume(ctx context.Context, idem string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/game/resume", nil, nil, idem)
}

func (c *Client) Save(ctx context.Context, idem string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/save", nil, nil, idem)
}

func (c *Client) Load(ctx context.Context, idem string) (game.LoadResult, error) {
	var out game.LoadResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/load", nil, &out, idem)
	return out, err
}

func (c *Client) Reset(ctx context.Context, idem string) error {
	return c.jsonRequest(ctx, http.MethodDelete, "/v1/save", nil, nil, idem)
}

// Do sends an arbitrary request; the sync command replays queued commands through it.
func (c *Client) Do(ctx context.Context, method, path string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	var in any
	if body != nil {
		in = body
	}
	err := c.jsonRequest(ctx, method, path, in, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
