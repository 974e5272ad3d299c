package api

import (
	"os"
	"strings"

	"github.com/google/uuid"

	"fleetwatch/internal/config"
	"fleetwatch/internal/fleet"
	"fleetwatch/internal/poi"
	"fleetwatch/internal/routing"
)

// Topic is the single broker topic fleet events publish on.
const Topic = "fleet"

type Server struct {
	Fleet     *fleet.Service
	Broker    EventBroker
	Authority *RemoteAuthority
}

// NewServer wires the service from config. With no REDIS_URL the in-memory
// broker is used; ROUTING_PROVIDER=straightline swaps the route provider
// for the degraded offline estimator.
func NewServer(cfg *config.Config) (*Server, error) {
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	var router routing.Router
	if strings.EqualFold(os.Getenv("ROUTING_PROVIDER"), "straightline") {
		router = routing.StraightLineRouter{}
	} else {
		router = routing.NewOSRMRouter(cfg.Routing.BaseURL, cfg.RouteTimeout(), cfg.Routing.RatePerSec)
	}

	authority := NewRemoteAuthority()

	svc := fleet.NewService(fleet.Options{
		Fetcher:      poi.NewClient(cfg.Fleet.BaseURL, cfg.FetchTimeout()),
		Router:       router,
		Authority:    authority,
		HomeBox:      cfg.HomeBox(),
		Region:       cfg.InitialRegion(),
		PollInterval: cfg.PollInterval(),
		FetchTimeout: cfg.FetchTimeout(),
		RouteTimeout: cfg.RouteTimeout(),
		Emit: func(eventType string, data map[string]any) {
			broker.Publish(Topic, Event{ID: uuid.New().String(), Type: eventType, Data: data})
		},
	})

	s := &Server{Fleet: svc, Broker: broker, Authority: authority}
	authority.OnRequest(func() {
		broker.Publish(Topic, Event{ID: uuid.New().String(), Type: "location.authorization_requested"})
	})
	return s, nil
}
