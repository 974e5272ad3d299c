package geo

import (
	"fmt"
	"math"

	"fleetwatch/internal/model"
)

// BoundingBoxForViewport computes the query box for a camera region:
// NW = (lat + latSpan/2, lon - lonSpan/2), SE = (lat - latSpan/2, lon + lonSpan/2).
// Spans must be positive and all inputs finite.
func BoundingBoxForViewport(center model.Coordinate, latSpan, lonSpan float64) (model.GeoBox, error) {
	if !finite(center.Latitude) || !finite(center.Longitude) {
		return model.GeoBox{}, fmt.Errorf("geo: center must be finite, got (%v, %v)", center.Latitude, center.Longitude)
	}
	if !finite(latSpan) || !finite(lonSpan) || latSpan <= 0 || lonSpan <= 0 {
		return model.GeoBox{}, fmt.Errorf("geo: spans must be positive, got latSpan=%v lonSpan=%v", latSpan, lonSpan)
	}
	nw := model.Coordinate{
		Latitude:  center.Latitude + latSpan/2,
		Longitude: center.Longitude - lonSpan/2,
	}
	se := model.Coordinate{
		Latitude:  center.Latitude - latSpan/2,
		Longitude: center.Longitude + lonSpan/2,
	}
	return model.GeoBox{P1: nw, P2: se}, nil
}

// BoundingBoxForRegion is BoundingBoxForViewport over a model.Region.
func BoundingBoxForRegion(r model.Region) (model.GeoBox, error) {
	return BoundingBoxForViewport(r.Center, r.LatSpan, r.LonSpan)
}

// HaversineMeters computes the great-circle distance in meters between two points.
func HaversineMeters(a, b model.Coordinate) float64 {
	const earthRadiusM = 6_371_000.0
	const deg2rad = math.Pi / 180.0

	dLat := (b.Latitude - a.Latitude) * deg2rad
	dLon := (b.Longitude - a.Longitude) * deg2rad
	lat1 := a.Latitude * deg2rad
	lat2 := b.Latitude * deg2rad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return earthRadiusM * 2 * math.Asin(math.Sqrt(h))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
