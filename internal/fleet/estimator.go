package fleet

import (
	"context"
	"log"
	"sync"
	"time"

	"fleetwatch/internal/metrics"
	"fleetwatch/internal/model"
	"fleetwatch/internal/routing"
)

// RouteEstimator fans out one route computation per vehicle and joins all
// results before handing back a single merged update. Individual results
// race; only the merged map after the join is observable.
type RouteEstimator struct {
	router  routing.Router
	timeout time.Duration
}

func NewRouteEstimator(router routing.Router, timeout time.Duration) *RouteEstimator {
	return &RouteEstimator{router: router, timeout: timeout}
}

// EstimateAll computes vehicle→user routes concurrently and returns the
// merged estimates keyed by vehicle ID after every computation finished.
// A per-vehicle failure is absorbed: that ID is simply absent from the
// result while the rest proceed.
func (e *RouteEstimator) EstimateAll(ctx context.Context, vehicles []model.Vehicle, user model.Coordinate) map[int64]model.RouteEstimate {
	type result struct {
		id  int64
		est model.RouteEstimate
		ok  bool
	}
	results := make([]result, len(vehicles))

	var wg sync.WaitGroup
	for i := range vehicles {
		wg.Add(1)
		go func(i int, v model.Vehicle) {
			defer wg.Done()
			est, err := e.estimate(ctx, v.Coordinate, user)
			if err != nil {
				log.Printf("estimator: vehicle %d: %v", v.ID, err)
				return
			}
			results[i] = result{id: v.ID, est: est, ok: true}
		}(i, vehicles[i])
	}
	wg.Wait()

	merged := make(map[int64]model.RouteEstimate, len(vehicles))
	for _, r := range results {
		if r.ok {
			merged[r.id] = r.est
		}
	}
	return merged
}

// EstimateOne computes a single vehicle→user route.
func (e *RouteEstimator) EstimateOne(ctx context.Context, v model.Vehicle, user model.Coordinate) (model.RouteEstimate, error) {
	return e.estimate(ctx, v.Coordinate, user)
}

func (e *RouteEstimator) estimate(ctx context.Context, origin, dest model.Coordinate) (model.RouteEstimate, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	start := time.Now()
	est, err := e.router.Route(cctx, routing.Request{Origin: origin, Destination: dest})
	metrics.RouteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RouteEstimates.WithLabelValues("error").Inc()
		return model.RouteEstimate{}, err
	}
	metrics.RouteEstimates.WithLabelValues("ok").Inc()
	return est, nil
}
