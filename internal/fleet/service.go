// Package fleet implements the fleet-polling and route-estimation pipeline:
// a cancellable periodic viewport poller, a fan-out/join route estimator,
// and the orchestrating service that owns the vehicle registry.
package fleet

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"fleetwatch/internal/locate"
	"fleetwatch/internal/metrics"
	"fleetwatch/internal/model"
	"fleetwatch/internal/registry"
	"fleetwatch/internal/routing"
)

// EventSink receives service events after each registry write. The sink
// must not block; the API layer bridges it onto the event broker.
type EventSink func(eventType string, data map[string]any)

// Options wires a Service.
type Options struct {
	Fetcher      Fetcher
	Router       routing.Router
	Authority    locate.Authority
	HomeBox      model.GeoBox
	Region       model.Region
	PollInterval time.Duration
	FetchTimeout time.Duration
	RouteTimeout time.Duration
	Emit         EventSink // optional
}

// Service composes the registry, location gate, poller and estimator, and
// exposes the contract the presentation layer consumes. The registry is
// the only shared mutable state; the service is its sole writer.
type Service struct {
	registry  *registry.Registry
	gate      *locate.Gate
	fetch     Fetcher
	estimator *RouteEstimator
	poller    *ViewportPoller
	homeBox   model.GeoBox
	timeout   time.Duration
	emit      EventSink

	regionMu sync.Mutex
	region   model.Region
}

func NewService(opts Options) *Service {
	s := &Service{
		registry: registry.New(),
		fetch:    opts.Fetcher,
		homeBox:  opts.HomeBox,
		timeout:  opts.FetchTimeout,
		region:   opts.Region,
		emit:     opts.Emit,
	}
	if s.emit == nil {
		s.emit = func(string, map[string]any) {}
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s.estimator = NewRouteEstimator(opts.Router, opts.RouteTimeout)
	s.poller = NewViewportPoller(opts.Fetcher, interval, s.timeout, s.Region, s.publishViewport)
	s.gate = locate.NewGate(opts.Authority, s.centerOnUser)
	metrics.RegisterDefault()
	return s
}

// Registry exposes read access to vehicle snapshots.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Gate exposes the permission state machine.
func (s *Service) Gate() *locate.Gate { return s.gate }

// Region returns the current camera region.
func (s *Service) Region() model.Region {
	s.regionMu.Lock()
	defer s.regionMu.Unlock()
	return s.region
}

// SetRegion moves the camera. The next poll tick queries the new region.
func (s *Service) SetRegion(r model.Region) {
	s.regionMu.Lock()
	s.region = r
	s.regionMu.Unlock()
	s.emit("region.updated", map[string]any{"region": r})
}

// centerOnUser fires once, on the first authorized location fix.
func (s *Service) centerOnUser(c model.Coordinate) {
	s.regionMu.Lock()
	s.region.Center = c
	r := s.region
	s.regionMu.Unlock()
	log.Printf("fleet: centered viewport on user (%.6f, %.6f)", c.Latitude, c.Longitude)
	s.emit("region.centered", map[string]any{"region": r})
}

// CheckLocationAccess drives the permission gate on first use.
func (s *Service) CheckLocationAccess() { s.gate.Check() }

// FetchAllVehicles issues the one-shot wide fetch over the home box,
// replaces the full fleet view sorted by ID, and triggers exactly one
// batch route estimation so distance/ETA are populated before first
// display.
func (s *Service) FetchAllVehicles(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	vehicles, err := s.fetch.VehiclesInBox(cctx, s.homeBox)
	metrics.FetchDuration.WithLabelValues("all").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("fleet: full fetch failed: %v", err)
		return err
	}
	s.registry.ReplaceAll(vehicles)
	s.emit("vehicles.updated", map[string]any{"count": len(vehicles)})
	s.EstimateAll(ctx)
	return nil
}

// EstimateAll runs the batch estimation over the full fleet view. With no
// known user location it is a no-op: no computations launch and no error
// is reported; the next natural trigger retries. The merged update is
// written once, after every per-vehicle computation completed.
func (s *Service) EstimateAll(ctx context.Context) {
	user, ok := s.gate.Location()
	if !ok {
		return
	}
	vehicles := s.registry.All()
	if len(vehicles) == 0 {
		return
	}
	merged := s.estimator.EstimateAll(ctx, vehicles, user)
	s.registry.UpdateDistances(merged)
	s.emit("vehicles.updated", map[string]any{"estimated": len(merged), "of": len(vehicles)})
}

// StartMapUpdate begins the periodic viewport refresh. Idempotent restart.
func (s *Service) StartMapUpdate() PollSession {
	return *s.poller.Start()
}

// StopMapUpdate cancels the periodic refresh; stale in-flight results are
// discarded by the poller's generation check.
func (s *Service) StopMapUpdate() { s.poller.Stop() }

// Polling reports whether a poll session is active.
func (s *Service) Polling() bool { return s.poller.Active() }

func (s *Service) publishViewport(vehicles []model.Vehicle) {
	s.registry.ReplaceViewport(vehicles)
	s.emit("viewport.updated", map[string]any{"count": len(vehicles)})
}

// Select marks a vehicle selected (exclusive, first-wins) and computes its
// route on demand. Selection success is independent of route success: a
// failed route leaves the selection standing with absent distance/ETA.
// On a successful route the camera recenters on the vehicle.
func (s *Service) Select(ctx context.Context, id int64) (model.Vehicle, error) {
	if err := s.registry.Select(id); err != nil {
		return model.Vehicle{}, err
	}
	v, _ := s.registry.Get(id)
	user, ok := s.gate.Location()
	if !ok {
		s.emit("vehicle.selected", map[string]any{"id": id})
		return v, nil
	}
	est, err := s.estimator.EstimateOne(ctx, v, user)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("fleet: route for vehicle %d failed: %v", id, err)
		}
		s.emit("vehicle.selected", map[string]any{"id": id})
		v, _ = s.registry.Get(id)
		return v, nil
	}
	s.registry.UpdateDistances(map[int64]model.RouteEstimate{id: est})
	s.regionMu.Lock()
	s.region.Center = v.Coordinate
	s.regionMu.Unlock()
	s.emit("vehicle.selected", map[string]any{"id": id, "distanceM": est.DistanceM, "etaSeconds": est.ETASeconds})
	v, _ = s.registry.Get(id)
	return v, nil
}

// Deselect clears the exclusive selection and the vehicle's estimate.
func (s *Service) Deselect() {
	s.registry.Deselect()
	s.emit("vehicle.deselected", nil)
}
