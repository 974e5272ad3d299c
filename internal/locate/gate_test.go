package locate

import (
	"sync"
	"testing"

	"fleetwatch/internal/model"
)

type fakeAuthority struct {
	mu        sync.Mutex
	enabled   bool
	requested int
	fix       *model.Coordinate
}

func (f *fakeAuthority) ServicesEnabled() bool { return f.enabled }
func (f *fakeAuthority) RequestAuthorization() {
	f.mu.Lock()
	f.requested++
	f.mu.Unlock()
}
func (f *fakeAuthority) Location() (model.Coordinate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fix == nil {
		return model.Coordinate{}, false
	}
	return *f.fix, true
}

func TestCheckRequestsAuthorizationOnce(t *testing.T) {
	auth := &fakeAuthority{enabled: true}
	g := NewGate(auth, nil)
	if g.Status() != Unrequested {
		t.Fatalf("initial status %s", g.Status())
	}
	g.Check()
	if g.Status() != AwaitingAuthorization {
		t.Fatalf("after check: %s", g.Status())
	}
	g.Check()
	if auth.requested != 1 {
		t.Fatalf("authorization requested %d times", auth.requested)
	}
}

func TestCheckWithServicesDisabled(t *testing.T) {
	auth := &fakeAuthority{enabled: false}
	g := NewGate(auth, nil)
	g.Check()
	if g.Status() != Unrequested {
		t.Fatalf("status %s, want Unrequested", g.Status())
	}
	if auth.requested != 0 {
		t.Fatal("authorization requested with services disabled")
	}
}

func TestDeniedIsTerminal(t *testing.T) {
	auth := &fakeAuthority{enabled: true}
	g := NewGate(auth, nil)
	g.Check()
	g.SetAuthorization(Denied)
	if g.Status() != Denied {
		t.Fatalf("status %s, want Denied", g.Status())
	}
	// the authority cannot resurrect a denied gate
	g.SetAuthorization(Authorized)
	if g.Status() != Denied {
		t.Fatalf("denied gate transitioned to %s", g.Status())
	}
	if _, ok := g.Advisory(); !ok {
		t.Fatal("denied gate has no advisory")
	}
}

func TestAuthorizedCentersExactlyOnce(t *testing.T) {
	home := model.Coordinate{Latitude: 53.55, Longitude: 9.99}
	auth := &fakeAuthority{enabled: true, fix: &home}
	var centers []model.Coordinate
	g := NewGate(auth, func(c model.Coordinate) { centers = append(centers, c) })

	g.Check()
	g.SetAuthorization(Authorized)
	if len(centers) != 1 || centers[0] != home {
		t.Fatalf("center calls: %+v", centers)
	}
	// later fixes update the coordinate but never re-center
	g.UpdateFix(model.Coordinate{Latitude: 53.56, Longitude: 9.98})
	if len(centers) != 1 {
		t.Fatalf("re-centered on fix update: %+v", centers)
	}
	if c, ok := g.Location(); !ok || c.Latitude != 53.56 {
		t.Fatalf("fix not recorded: %+v ok=%v", c, ok)
	}
}

func TestAuthorizedWithoutFixIsNotAnError(t *testing.T) {
	auth := &fakeAuthority{enabled: true}
	centered := 0
	g := NewGate(auth, func(model.Coordinate) { centered++ })
	g.Check()
	g.SetAuthorization(Authorized)
	if g.Status() != Authorized {
		t.Fatalf("status %s", g.Status())
	}
	if _, ok := g.Location(); ok {
		t.Fatal("location reported without a fix")
	}
	if centered != 0 {
		t.Fatal("centered without a fix")
	}
	// first fix after authorization centers once
	g.UpdateFix(model.Coordinate{Latitude: 1, Longitude: 2})
	if centered != 1 {
		t.Fatalf("centered %d times after first fix", centered)
	}
}

func TestFixIgnoredBeforeAuthorization(t *testing.T) {
	auth := &fakeAuthority{enabled: true}
	g := NewGate(auth, nil)
	g.UpdateFix(model.Coordinate{Latitude: 1, Longitude: 2})
	if _, ok := g.Location(); ok {
		t.Fatal("fix recorded while unauthorized")
	}
}
