package routing

import (
	"context"

	"fleetwatch/internal/geo"
	"fleetwatch/internal/model"
)

// straightLineSpeedMPS is the assumed speed when no road network is
// available (~30 km/h, typical urban traffic).
const straightLineSpeedMPS = 30.0 / 3.6

// StraightLineRouter estimates routes by great-circle distance at a fixed
// urban speed. It never fails; use it as a degraded provider when no
// routing backend is reachable.
type StraightLineRouter struct{}

func (StraightLineRouter) Route(_ context.Context, req Request) (model.RouteEstimate, error) {
	d := geo.HaversineMeters(req.Origin, req.Destination)
	return model.RouteEstimate{DistanceM: d, ETASeconds: d / straightLineSpeedMPS}, nil
}
