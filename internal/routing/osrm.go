package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"fleetwatch/internal/model"
)

const (
	// DefaultOSRMBaseURL is the public OSRM demo server.
	DefaultOSRMBaseURL = "https://router.project-osrm.org"

	osrmTimeout = 5 * time.Second

	// httpMaxIdleConns bounds the keep-alive pool; batch estimation fires
	// many requests at the same host.
	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second
)

// OSRMRouter implements Router against an OSRM HTTP instance using the
// driving profile with alternatives disabled.
type OSRMRouter struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewOSRMRouter creates an OSRMRouter. Empty baseURL uses the public demo
// server. ratePerSec caps outbound calls; <= 0 means unlimited.
func NewOSRMRouter(baseURL string, timeout time.Duration, ratePerSec float64) *OSRMRouter {
	if baseURL == "" {
		baseURL = DefaultOSRMBaseURL
	}
	if timeout <= 0 {
		timeout = osrmTimeout
	}
	var lim *rate.Limiter
	if ratePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1)
	}
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &OSRMRouter{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Transport: transport},
		limiter: lim,
	}
}

// Route calls /route/v1/driving/{lon},{lat};{lon},{lat} and returns the
// first route's distance and duration.
func (o *OSRMRouter) Route(ctx context.Context, req Request) (model.RouteEstimate, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return model.RouteEstimate{}, fmt.Errorf("routing: osrm: limiter: %w", err)
		}
	}

	u := o.baseURL + "/route/v1/driving/" +
		coordPair(req.Origin) + ";" + coordPair(req.Destination) +
		"?alternatives=false&overview=false"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.RouteEstimate{}, fmt.Errorf("routing: osrm: build request: %w", err)
	}
	resp, err := o.http.Do(httpReq)
	if err != nil {
		return model.RouteEstimate{}, fmt.Errorf("routing: osrm: http: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return model.RouteEstimate{}, fmt.Errorf("routing: osrm: status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.RouteEstimate{}, fmt.Errorf("routing: osrm: decode: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return model.RouteEstimate{}, ErrNoRoute
	}
	r := body.Routes[0]
	return model.RouteEstimate{DistanceM: r.Distance, ETASeconds: r.Duration}, nil
}

func coordPair(c model.Coordinate) string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}
