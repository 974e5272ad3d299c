// Package config loads service configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"fleetwatch/internal/model"
)

// Defaults mirror the original deployment: a wide Hamburg home box and a
// small initial camera span centered on it.
var (
	DefaultHomeP1 = model.Coordinate{Latitude: 53.694865, Longitude: 9.757589}
	DefaultHomeP2 = model.Coordinate{Latitude: 53.394655, Longitude: 10.099891}
)

const (
	DefaultPort         = 8080
	DefaultPollInterval = 2 * time.Second
	DefaultFetchTimeout = 5 * time.Second
	DefaultRouteTimeout = 5 * time.Second
	DefaultInitialSpan  = 0.01
)

// Config holds all runtime settings. Intervals are milliseconds in YAML.
type Config struct {
	Port int `yaml:"port"`

	Fleet struct {
		BaseURL        string           `yaml:"baseURL"`
		PollIntervalMS int              `yaml:"pollIntervalMS"`
		FetchTimeoutMS int              `yaml:"fetchTimeoutMS"`
		HomeP1         model.Coordinate `yaml:"homeP1"`
		HomeP2         model.Coordinate `yaml:"homeP2"`
	} `yaml:"fleet"`

	Routing struct {
		BaseURL    string  `yaml:"baseURL"`
		TimeoutMS  int     `yaml:"timeoutMS"`
		RatePerSec float64 `yaml:"ratePerSec"`
	} `yaml:"routing"`

	Region struct {
		LatSpan float64 `yaml:"latSpan"`
		LonSpan float64 `yaml:"lonSpan"`
	} `yaml:"region"`

	RedisURL string `yaml:"redisURL"`
}

// Load reads path (when non-empty and present), then applies env overrides
// and defaults. A missing file is not an error; the defaults make the
// binary runnable as-is.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("config: PORT must be a valid port, got %q", v)
		}
		cfg.Port = p
	}
	if v := os.Getenv("FLEET_BASE_URL"); v != "" {
		cfg.Fleet.BaseURL = v
	}
	if v := os.Getenv("ROUTING_BASE_URL"); v != "" {
		cfg.Routing.BaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("config: POLL_INTERVAL_MS must be a positive integer, got %q", v)
		}
		cfg.Fleet.PollIntervalMS = ms
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Fleet.HomeP1 == (model.Coordinate{}) && c.Fleet.HomeP2 == (model.Coordinate{}) {
		c.Fleet.HomeP1 = DefaultHomeP1
		c.Fleet.HomeP2 = DefaultHomeP2
	}
	if c.Region.LatSpan <= 0 {
		c.Region.LatSpan = DefaultInitialSpan
	}
	if c.Region.LonSpan <= 0 {
		c.Region.LonSpan = DefaultInitialSpan
	}
}

// PollInterval returns the viewport poll cadence.
func (c *Config) PollInterval() time.Duration {
	if c.Fleet.PollIntervalMS <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.Fleet.PollIntervalMS) * time.Millisecond
}

// FetchTimeout returns the per-fetch deadline for fleet queries.
func (c *Config) FetchTimeout() time.Duration {
	if c.Fleet.FetchTimeoutMS <= 0 {
		return DefaultFetchTimeout
	}
	return time.Duration(c.Fleet.FetchTimeoutMS) * time.Millisecond
}

// RouteTimeout returns the per-call deadline for the route provider.
func (c *Config) RouteTimeout() time.Duration {
	if c.Routing.TimeoutMS <= 0 {
		return DefaultRouteTimeout
	}
	return time.Duration(c.Routing.TimeoutMS) * time.Millisecond
}

// HomeBox is the fixed wide fetch area for the full-fleet query.
func (c *Config) HomeBox() model.GeoBox {
	return model.GeoBox{P1: c.Fleet.HomeP1, P2: c.Fleet.HomeP2}
}

// InitialRegion is the starting camera region: the home box center with the
// configured spans.
func (c *Config) InitialRegion() model.Region {
	return model.Region{
		Center: model.Coordinate{
			Latitude:  (c.Fleet.HomeP1.Latitude + c.Fleet.HomeP2.Latitude) / 2,
			Longitude: (c.Fleet.HomeP1.Longitude + c.Fleet.HomeP2.Longitude) / 2,
		},
		LatSpan: c.Region.LatSpan,
		LonSpan: c.Region.LonSpan,
	}
}
