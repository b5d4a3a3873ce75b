// Package client talks to the roomfinder HTTP API and keeps a rendered view in
// sync with the user's building, date and time selections.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"roomfinder/internal/availability"
	"roomfinder/internal/model"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: http %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: http %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the availability endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient constructs a client for baseURL. apiKey may be empty.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRateLimit caps outgoing requests to rps with the given burst.
func (c *Client) UseRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// RoomsInBuilding calls GET /api/rooms-in-building.
func (c *Client) RoomsInBuilding(ctx context.Context, q availability.BuildingQuery) ([]model.FreeInterval, error) {
	var out []model.FreeInterval
	if err := c.doGet(ctx, "/api/rooms-in-building", q.Values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RoomAvailability calls GET /api/room-availability.
func (c *Client) RoomAvailability(ctx context.Context, q availability.RoomQuery) ([]model.RoomSlot, error) {
	var out []model.RoomSlot
	if err := c.doGet(ctx, "/api/room-availability", q.Values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Buildings calls GET /api/buildings.
func (c *Client) Buildings(ctx context.Context) ([]model.BuildingDirectoryEntry, error) {
	var out []model.BuildingDirectoryEntry
	if err := c.doGet(ctx, "/api/buildings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckAPI makes one authenticated store-backed request on the API address. The
// server's /healthz and /readyz are on its monitoring port, which a Client is not
// configured with.
func (c *Client) CheckAPI(ctx context.Context) error {
	return c.doGet(ctx, "/api/buildings", nil, nil)
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
