package fleet

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetwatch/internal/geo"
	"fleetwatch/internal/metrics"
	"fleetwatch/internal/model"
)

// Fetcher is the vehicle-fetch boundary: vehicles inside a bounding box.
type Fetcher interface {
	VehiclesInBox(ctx context.Context, box model.GeoBox) ([]model.Vehicle, error)
}

// PollSession identifies one run of the periodic viewport refresh.
type PollSession struct {
	ID         string
	Generation uint64
	stop       chan struct{}
}

// ViewportPoller refreshes the in-viewport vehicle set on a fixed cadence.
// Ticks are wall-clock scheduled: each tick dispatches its fetch in its own
// goroutine, so a slow or failed fetch never blocks or skips later ticks.
// Results from fetches that were in flight when the session stopped are
// discarded by generation check, never applied.
type ViewportPoller struct {
	fetch    Fetcher
	interval time.Duration
	timeout  time.Duration
	region   func() model.Region
	publish  func([]model.Vehicle)

	mu      sync.Mutex
	gen     uint64
	session *PollSession
}

// NewViewportPoller creates a poller. region supplies the current camera
// region at each tick; publish receives each successful fetch result.
func NewViewportPoller(fetch Fetcher, interval, timeout time.Duration, region func() model.Region, publish func([]model.Vehicle)) *ViewportPoller {
	return &ViewportPoller{fetch: fetch, interval: interval, timeout: timeout, region: region, publish: publish}
}

// Start begins polling. Restart is idempotent: an active session is stopped
// first, then a fresh one starts. The first tick fires immediately.
func (p *ViewportPoller) Start() *PollSession {
	p.mu.Lock()
	if p.session != nil {
		close(p.session.stop)
		p.session = nil
	}
	p.gen++
	s := &PollSession{ID: uuid.New().String(), Generation: p.gen, stop: make(chan struct{})}
	p.session = s
	p.mu.Unlock()

	go p.run(s)
	return s
}

// Stop cancels future ticks. Idempotent. Fetches already dispatched run to
// completion but their results fail the generation check and are dropped.
func (p *ViewportPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return
	}
	close(p.session.stop)
	p.session = nil
	p.gen++
}

// Active reports whether a session is running.
func (p *ViewportPoller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Session returns the current session, if any.
func (p *ViewportPoller) Session() (PollSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return PollSession{}, false
	}
	return *p.session, true
}

func (p *ViewportPoller) run(s *PollSession) {
	go p.tick(s.Generation)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			go p.tick(s.Generation)
		}
	}
}

// tick issues one viewport fetch. Failures log and leave the previous view
// untouched; the session keeps running.
func (p *ViewportPoller) tick(gen uint64) {
	box, err := geo.BoundingBoxForRegion(p.region())
	if err != nil {
		log.Printf("poller: bad region: %v", err)
		metrics.PollTicks.WithLabelValues("error").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	start := time.Now()
	vehicles, err := p.fetch.VehiclesInBox(ctx, box)
	metrics.FetchDuration.WithLabelValues("viewport").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("poller: fetch failed: %v", err)
		metrics.PollTicks.WithLabelValues("error").Inc()
		return
	}

	p.mu.Lock()
	current := p.gen == gen
	p.mu.Unlock()
	if !current {
		metrics.PollTicks.WithLabelValues("stale").Inc()
		return
	}
	p.publish(vehicles)
	metrics.PollTicks.WithLabelValues("ok").Inc()
}
