// Package locate tracks location-permission state and the last known user
// fix. It gates the fleet pipeline: polling and route estimation only make
// sense once a home coordinate is known.
package locate

import (
	"log"
	"sync"

	"fleetwatch/internal/model"
)

// Status is the permission state.
type Status string

const (
	Unrequested           Status = "UNREQUESTED"
	AwaitingAuthorization Status = "AWAITING_AUTHORIZATION"
	Denied                Status = "DENIED"
	Restricted            Status = "RESTRICTED"
	Authorized            Status = "AUTHORIZED"
)

// Authority is the permission-authority boundary: a synchronous
// enabled check, a fire-and-forget authorization request, and a
// best-effort current-location read.
type Authority interface {
	ServicesEnabled() bool
	RequestAuthorization()
	Location() (model.Coordinate, bool)
}

// Gate is the permission/location state machine. Transitions out of
// AwaitingAuthorization are driven only by SetAuthorization, the push
// callback from the authority; the gate never polls for status.
type Gate struct {
	mu           sync.Mutex
	authority    Authority
	status       Status
	fix          *model.Coordinate
	centered     bool // onAuthorized already fired
	onAuthorized func(model.Coordinate)
}

// NewGate creates a Gate in Unrequested. onAuthorized fires exactly once,
// on the first entry into Authorized with a fix available; it is the
// "center viewport on user" hook.
func NewGate(authority Authority, onAuthorized func(model.Coordinate)) *Gate {
	return &Gate{authority: authority, status: Unrequested, onAuthorized: onAuthorized}
}

// Check asks the authority for access on first use. When services are
// disabled the gate stays Unrequested; the caller surfaces the advisory.
func (g *Gate) Check() {
	g.mu.Lock()
	if g.status != Unrequested {
		g.mu.Unlock()
		return
	}
	if !g.authority.ServicesEnabled() {
		g.mu.Unlock()
		log.Printf("locate: location services disabled")
		return
	}
	g.status = AwaitingAuthorization
	g.mu.Unlock()
	g.authority.RequestAuthorization()
}

// SetAuthorization is the authority's status callback. Denied and
// Restricted are terminal; only an external restart of the gate leaves
// them. Entering Authorized picks up the current fix if one exists and
// fires the onAuthorized hook once.
func (g *Gate) SetAuthorization(s Status) {
	g.mu.Lock()
	switch g.status {
	case Denied, Restricted:
		g.mu.Unlock()
		return
	default:
	}
	if s != Authorized && s != Denied && s != Restricted {
		g.mu.Unlock()
		return
	}
	g.status = s
	if s != Authorized {
		g.mu.Unlock()
		log.Printf("locate: authorization %s", s)
		return
	}
	if c, ok := g.authority.Location(); ok {
		g.fix = &c
	}
	fire := !g.centered && g.fix != nil
	if fire {
		g.centered = true
	}
	var hook func(model.Coordinate)
	var at model.Coordinate
	if fire && g.onAuthorized != nil {
		hook, at = g.onAuthorized, *g.fix
	}
	g.mu.Unlock()
	if hook != nil {
		hook(at)
	}
}

// UpdateFix records a new location fix while Authorized. The first fix
// after authorization fires the onAuthorized hook if it has not fired yet;
// later fixes never re-fire it.
func (g *Gate) UpdateFix(c model.Coordinate) {
	g.mu.Lock()
	if g.status != Authorized {
		g.mu.Unlock()
		return
	}
	g.fix = &c
	fire := !g.centered
	if fire {
		g.centered = true
	}
	var hook func(model.Coordinate)
	if fire && g.onAuthorized != nil {
		hook = g.onAuthorized
	}
	g.mu.Unlock()
	if hook != nil {
		hook(c)
	}
}

// Location returns the last known fix. Absence while Authorized is not an
// error: the signal may simply not be acquired yet, and consumers retry on
// their next natural trigger.
func (g *Gate) Location() (model.Coordinate, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fix == nil {
		return model.Coordinate{}, false
	}
	return *g.fix, true
}

// Status returns the current permission state.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Advisory reports the user-facing notice obligation for terminal states.
func (g *Gate) Advisory() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.status {
	case Denied:
		return "location access denied; enable it in system settings", true
	case Restricted:
		return "location access restricted on this device", true
	}
	return "", false
}
