package model

// Core domain types for the fleet tracker.

// Coordinate is a WGS84 point. Equality is exact field equality.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VehicleState is the operational state reported by the fleet provider.
type VehicleState string

const (
	StateActive   VehicleState = "ACTIVE"
	StateInactive VehicleState = "INACTIVE"
)

// VehicleType is the vehicle class. Currently the provider only reports taxis.
type VehicleType string

const (
	TypeTaxi VehicleType = "TAXI"
)

// Vehicle is one fleet vehicle with its last-known position and, once a
// route has been computed in this session, the travel distance and time
// from the vehicle to the user. DistanceM and ETASeconds are nil until
// a route estimate exists and are cleared on deselect or when a fetch
// replaces the vehicle without a fresh route.
type Vehicle struct {
	ID         int64        `json:"id"`
	Coordinate Coordinate   `json:"coordinate"`
	State      VehicleState `json:"state"`
	Type       VehicleType  `json:"type"`
	Heading    float64      `json:"heading"`
	DistanceM  *float64     `json:"distanceM,omitempty"`
	ETASeconds *float64     `json:"etaSeconds,omitempty"`
	Selected   bool         `json:"selected,omitempty"`
}

// GeoBox is a rectangular query region given by two far corners. The
// corners are not required to be axis-ordered; query serialization sends
// them as-is and the provider interprets the rectangle.
type GeoBox struct {
	P1 Coordinate `json:"p1"`
	P2 Coordinate `json:"p2"`
}

// Region is the camera viewport: a center plus latitude/longitude spans.
type Region struct {
	Center  Coordinate `json:"center"`
	LatSpan float64    `json:"latSpan"`
	LonSpan float64    `json:"lonSpan"`
}

// RouteEstimate is the result of one route computation: driving distance
// in meters and expected travel time in seconds.
type RouteEstimate struct {
	DistanceM  float64 `json:"distanceM"`
	ETASeconds float64 `json:"etaSeconds"`
}

// PoiResponse is the wire shape of the fleet-query endpoint.
type PoiResponse struct {
	PoiList []Vehicle `json:"poiList"`
}
