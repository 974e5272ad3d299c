package registry

import (
	"errors"
	"sort"
	"sync"

	"fleetwatch/internal/model"
)

var (
	ErrNotFound        = errors.New("vehicle not found")
	ErrAlreadySelected = errors.New("another vehicle is already selected")
)

// Registry is the authoritative set of known vehicles. It keeps two views:
// the full fleet sorted by ID, and the vehicles inside the current viewport
// in provider response order. All mutation goes through the methods below
// under one mutex; readers get value copies.
type Registry struct {
	mu       sync.Mutex
	all      []model.Vehicle
	byID     map[int64]int // id -> index into all
	viewport []model.Vehicle
	selected *int64 // selected vehicle id, nil when none
}

func New() *Registry {
	return &Registry{byID: map[int64]int{}}
}

// ReplaceAll replaces the full fleet view wholesale, sorted ascending by ID.
// Selection and prior route estimates do not survive the replace: a vehicle
// arriving from a fresh fetch has no estimate until one is computed.
func (r *Registry) ReplaceAll(vehicles []model.Vehicle) {
	sorted := append([]model.Vehicle(nil), vehicles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = sorted
	r.byID = make(map[int64]int, len(sorted))
	for i := range sorted {
		r.byID[sorted[i].ID] = i
	}
	if r.selected != nil {
		if i, ok := r.byID[*r.selected]; ok {
			r.all[i].Selected = true
		} else {
			r.selected = nil
		}
	}
}

// ReplaceViewport replaces the in-viewport view wholesale, keeping provider
// order. Vehicles that left the viewport are dropped, not marked inactive.
func (r *Registry) ReplaceViewport(vehicles []model.Vehicle) {
	cp := append([]model.Vehicle(nil), vehicles...)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewport = cp
}

// UpdateDistances merges route estimates keyed by vehicle ID. IDs not in
// the current fleet view are silently dropped; the vehicle may have left
// the fleet between fetch and route completion.
func (r *Registry) UpdateDistances(updates map[int64]model.RouteEstimate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, est := range updates {
		i, ok := r.byID[id]
		if !ok {
			continue
		}
		d, t := est.DistanceM, est.ETASeconds
		r.all[i].DistanceM = &d
		r.all[i].ETASeconds = &t
	}
}

// Select marks a vehicle as selected. Selection is exclusive and first-wins:
// while one vehicle is selected, selecting another fails with no state change.
func (r *Registry) Select(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if r.selected != nil && *r.selected != id {
		return ErrAlreadySelected
	}
	r.selected = &id
	r.all[i].Selected = true
	return nil
}

// Deselect clears the selection and the selected vehicle's distance/ETA.
func (r *Registry) Deselect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return
	}
	if i, ok := r.byID[*r.selected]; ok {
		r.all[i].Selected = false
		r.all[i].DistanceM = nil
		r.all[i].ETASeconds = nil
	}
	r.selected = nil
}

// Selected returns the currently selected vehicle, if any.
func (r *Registry) Selected() (model.Vehicle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return model.Vehicle{}, false
	}
	i, ok := r.byID[*r.selected]
	if !ok {
		return model.Vehicle{}, false
	}
	return r.all[i], true
}

// Get returns one vehicle by ID from the fleet view.
func (r *Registry) Get(id int64) (model.Vehicle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return model.Vehicle{}, false
	}
	return r.all[i], true
}

// All returns a copy of the full fleet view, sorted ascending by ID.
func (r *Registry) All() []model.Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Vehicle(nil), r.all...)
}

// Viewport returns a copy of the in-viewport view in provider order.
func (r *Registry) Viewport() []model.Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Vehicle(nil), r.viewport...)
}
