package fleet

import (
	"context"
	"sync"
	"testing"
	"time"

	"fleetwatch/internal/locate"
	"fleetwatch/internal/model"
	"fleetwatch/internal/registry"
)

type fakeAuthority struct {
	fix *model.Coordinate
}

func (f *fakeAuthority) ServicesEnabled() bool { return true }
func (f *fakeAuthority) RequestAuthorization() {}
func (f *fakeAuthority) Location() (model.Coordinate, bool) {
	if f.fix == nil {
		return model.Coordinate{}, false
	}
	return *f.fix, true
}

type eventLog struct {
	mu     sync.Mutex
	events []string
	data   []map[string]any
}

func (l *eventLog) sink(eventType string, data map[string]any) {
	l.mu.Lock()
	l.events = append(l.events, eventType)
	l.data = append(l.data, data)
	l.mu.Unlock()
}

func (l *eventLog) count(eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T, fetch Fetcher, router *fakeRouter, fix *model.Coordinate) (*Service, *eventLog) {
	t.Helper()
	log := &eventLog{}
	svc := NewService(Options{
		Fetcher:      fetch,
		Router:       router,
		Authority:    &fakeAuthority{fix: fix},
		HomeBox:      model.GeoBox{P1: model.Coordinate{Latitude: 54, Longitude: 9}, P2: model.Coordinate{Latitude: 53, Longitude: 10}},
		Region:       testRegion(),
		PollInterval: time.Hour,
		FetchTimeout: time.Second,
		RouteTimeout: time.Second,
		Emit:         log.sink,
	})
	return svc, log
}

func authorize(svc *Service) {
	svc.CheckLocationAccess()
	svc.Gate().SetAuthorization(locate.Authorized)
}

func TestFetchAllSortsAndEstimatesOnce(t *testing.T) {
	fetch := &countFetcher{result: testVehicles(2, 1)}
	router := &fakeRouter{}
	user := model.Coordinate{Latitude: 53.55, Longitude: 9.99}
	svc, _ := newTestService(t, fetch, router, &user)
	authorize(svc)

	if err := svc.FetchAllVehicles(context.Background()); err != nil {
		t.Fatalf("fetch all: %v", err)
	}

	all := svc.Registry().All()
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("fleet view not sorted: %+v", all)
	}
	// exactly one batch estimation: one router call per vehicle
	if router.callCount() != 2 {
		t.Fatalf("router called %d times, want 2", router.callCount())
	}
	for _, v := range all {
		if v.DistanceM == nil || v.ETASeconds == nil {
			t.Fatalf("vehicle %d missing estimate after fetch", v.ID)
		}
	}
}

func TestEstimateAllWithoutLocationIsNoop(t *testing.T) {
	fetch := &countFetcher{result: testVehicles(1, 2)}
	router := &fakeRouter{}
	svc, _ := newTestService(t, fetch, router, nil)
	authorize(svc) // authorized, but no fix acquired yet

	if err := svc.FetchAllVehicles(context.Background()); err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if router.callCount() != 0 {
		t.Fatalf("router called %d times with unknown location", router.callCount())
	}
	for _, v := range svc.Registry().All() {
		if v.DistanceM != nil {
			t.Fatalf("vehicle %d has estimate without a user location", v.ID)
		}
	}
}

func TestEstimateAllPartialFailureSingleMerge(t *testing.T) {
	fetch := &countFetcher{result: testVehicles(1, 2, 3)}
	router := &fakeRouter{failLat: map[float64]bool{2: true}}
	user := model.Coordinate{Latitude: 53.55, Longitude: 9.99}
	svc, events := newTestService(t, fetch, router, &user)
	authorize(svc)

	if err := svc.FetchAllVehicles(context.Background()); err != nil {
		t.Fatalf("fetch all: %v", err)
	}

	withEstimate := 0
	for _, v := range svc.Registry().All() {
		if v.DistanceM != nil && v.ETASeconds != nil {
			withEstimate++
		} else if v.ID != 2 {
			t.Fatalf("vehicle %d unexpectedly missing estimate", v.ID)
		}
	}
	if withEstimate != 2 {
		t.Fatalf("%d vehicles with estimates, want 2", withEstimate)
	}
	// one replace event plus one merged-estimate event, nothing in between
	if got := events.count("vehicles.updated"); got != 2 {
		t.Fatalf("vehicles.updated published %d times, want 2", got)
	}
}

func TestSelectExclusiveAndIndependentOfRouteOutcome(t *testing.T) {
	fetch := &countFetcher{result: testVehicles(1, 2)}
	router := &fakeRouter{failLat: map[float64]bool{1: true, 2: true}}
	user := model.Coordinate{Latitude: 53.55, Longitude: 9.99}
	svc, _ := newTestService(t, fetch, router, &user)
	authorize(svc)
	if err := svc.FetchAllVehicles(context.Background()); err != nil {
		t.Fatalf("fetch all: %v", err)
	}

	v, err := svc.Select(context.Background(), 1)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !v.Selected {
		t.Fatalf("vehicle not marked selected: %+v", v)
	}
	if v.DistanceM != nil {
		t.Fatal("failed route produced an estimate")
	}

	if _, err := svc.Select(context.Background(), 2); err != registry.ErrAlreadySelected {
		t.Fatalf("second select: got %v, want ErrAlreadySelected", err)
	}
	sel, ok := svc.Registry().Selected()
	if !ok || sel.ID != 1 {
		t.Fatalf("selection changed by rejected select: %+v ok=%v", sel, ok)
	}

	svc.Deselect()
	if _, ok := svc.Registry().Selected(); ok {
		t.Fatal("still selected after deselect")
	}
}

func TestSelectRecentersOnVehicle(t *testing.T) {
	fetch := &countFetcher{result: testVehicles(7)}
	router := &fakeRouter{}
	user := model.Coordinate{Latitude: 53.55, Longitude: 9.99}
	svc, _ := newTestService(t, fetch, router, &user)
	authorize(svc)
	if err := svc.FetchAllVehicles(context.Background()); err != nil {
		t.Fatalf("fetch all: %v", err)
	}

	v, err := svc.Select(context.Background(), 7)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if v.DistanceM == nil {
		t.Fatal("successful route left estimate absent")
	}
	if got := svc.Region().Center; got != v.Coordinate {
		t.Fatalf("region center %+v, want vehicle coordinate %+v", got, v.Coordinate)
	}
}

func TestFirstAuthorizedFixCentersRegionOnUser(t *testing.T) {
	fetch := &countFetcher{result: testVehicles(1)}
	router := &fakeRouter{}
	user := model.Coordinate{Latitude: 53.6, Longitude: 9.9}
	svc, events := newTestService(t, fetch, router, &user)
	authorize(svc)

	if got := svc.Region().Center; got != user {
		t.Fatalf("region center %+v, want user %+v", got, user)
	}
	if events.count("region.centered") != 1 {
		t.Fatalf("region.centered published %d times", events.count("region.centered"))
	}
}

func TestViewportPollingThroughService(t *testing.T) {
	fetch := &countFetcher{result: testVehicles(3, 1)}
	router := &fakeRouter{}
	svc, _ := newTestService(t, fetch, router, nil)

	sess := svc.StartMapUpdate()
	if sess.ID == "" || !svc.Polling() {
		t.Fatal("poll session missing after start")
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if vp := svc.Registry().Viewport(); len(vp) == 2 {
			// provider order preserved, not sorted
			if vp[0].ID != 3 || vp[1].ID != 1 {
				t.Fatalf("viewport reordered: %+v", vp)
			}
			svc.StopMapUpdate()
			if svc.Polling() {
				t.Fatal("still polling after stop")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("viewport never populated")
}
