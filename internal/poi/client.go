// Package poi talks to the fleet-query endpoint: vehicles within a
// rectangular area given by two corner coordinates.
package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fleetwatch/internal/model"
)

const (
	// DefaultBaseURL is the public fleet-query endpoint.
	DefaultBaseURL = "https://poi-api.mytaxi.com/PoiService/poi/v1"

	defaultTimeout = 5 * time.Second
)

// Client fetches vehicles from the fleet-query endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Client for baseURL; empty baseURL uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

// VehiclesInArea returns the vehicles inside the rectangle spanned by p1 and
// p2. Transport errors and decode errors are reported the same way; callers
// treat both as "this fetch produced nothing" and keep their previous state.
func (c *Client) VehiclesInArea(ctx context.Context, p1, p2 model.Coordinate) ([]model.Vehicle, error) {
	q := url.Values{}
	q.Set("p1Lat", strconv.FormatFloat(p1.Latitude, 'f', -1, 64))
	q.Set("p1Lon", strconv.FormatFloat(p1.Longitude, 'f', -1, 64))
	q.Set("p2Lat", strconv.FormatFloat(p2.Latitude, 'f', -1, 64))
	q.Set("p2Lon", strconv.FormatFloat(p2.Longitude, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("poi: build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poi: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poi: fetch: status %d", resp.StatusCode)
	}
	var body model.PoiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("poi: decode: %w", err)
	}
	return body.PoiList, nil
}

// VehiclesInBox is VehiclesInArea over a GeoBox.
func (c *Client) VehiclesInBox(ctx context.Context, box model.GeoBox) ([]model.Vehicle, error) {
	return c.VehiclesInArea(ctx, box.P1, box.P2)
}
