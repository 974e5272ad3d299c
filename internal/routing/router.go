package routing

import (
	"context"
	"errors"

	"fleetwatch/internal/model"
)

// ErrNoRoute means the provider answered but found no drivable route
// between the two points.
var ErrNoRoute = errors.New("routing: no route found")

// Request holds the origin and destination for one route computation.
type Request struct {
	Origin      model.Coordinate
	Destination model.Coordinate
}

// Router computes a driving route between two points. Implementations
// return the provider's first candidate route; alternates are never
// requested.
type Router interface {
	Route(ctx context.Context, req Request) (model.RouteEstimate, error)
}
