package api

import (
	"sync"

	"fleetwatch/internal/model"
)

// RemoteAuthority adapts the permission-authority contract onto the HTTP
// surface: the presentation client reports authorization changes and
// location fixes through the API, and the gate consumes them as if they
// came from an OS location service.
type RemoteAuthority struct {
	mu        sync.Mutex
	fix       *model.Coordinate
	requested func() // notified on RequestAuthorization
}

func NewRemoteAuthority() *RemoteAuthority { return &RemoteAuthority{} }

// ServicesEnabled is always true for a remote client; a client with
// location hardware disabled simply reports Denied.
func (a *RemoteAuthority) ServicesEnabled() bool { return true }

// RequestAuthorization is fire-and-forget: it pings the registered hook so
// the API layer can prompt the client for access.
func (a *RemoteAuthority) RequestAuthorization() {
	a.mu.Lock()
	fn := a.requested
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Location is the best-effort current-location read; false until the
// client has reported a fix.
func (a *RemoteAuthority) Location() (model.Coordinate, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fix == nil {
		return model.Coordinate{}, false
	}
	return *a.fix, true
}

// SetFix records a location fix reported by the client.
func (a *RemoteAuthority) SetFix(c model.Coordinate) {
	a.mu.Lock()
	a.fix = &c
	a.mu.Unlock()
}

// OnRequest registers the authorization-prompt hook.
func (a *RemoteAuthority) OnRequest(fn func()) {
	a.mu.Lock()
	a.requested = fn
	a.mu.Unlock()
}
