package geo

import (
	"math"
	"testing"

	"fleetwatch/internal/model"
)

func TestBoundingBoxOrientation(t *testing.T) {
	cases := []struct {
		name             string
		center           model.Coordinate
		latSpan, lonSpan float64
	}{
		{"hamburg", model.Coordinate{Latitude: 53.55, Longitude: 9.99}, 0.01, 0.01},
		{"equator", model.Coordinate{Latitude: 0, Longitude: 0}, 1.5, 2.5},
		{"southern", model.Coordinate{Latitude: -33.87, Longitude: 151.21}, 0.2, 0.3},
		{"negative lon", model.Coordinate{Latitude: 40.71, Longitude: -74.01}, 0.05, 0.08},
	}
	for _, tc := range cases {
		box, err := BoundingBoxForViewport(tc.center, tc.latSpan, tc.lonSpan)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if box.P1.Latitude < box.P2.Latitude {
			t.Fatalf("%s: NW lat %v < SE lat %v", tc.name, box.P1.Latitude, box.P2.Latitude)
		}
		if box.P1.Longitude > box.P2.Longitude {
			t.Fatalf("%s: NW lon %v > SE lon %v", tc.name, box.P1.Longitude, box.P2.Longitude)
		}
	}
}

func TestBoundingBoxValues(t *testing.T) {
	box, err := BoundingBoxForViewport(model.Coordinate{Latitude: 10, Longitude: 20}, 2, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.GeoBox{
		P1: model.Coordinate{Latitude: 11, Longitude: 18},
		P2: model.Coordinate{Latitude: 9, Longitude: 22},
	}
	if box != want {
		t.Fatalf("got %+v, want %+v", box, want)
	}
}

func TestBoundingBoxRejectsBadInput(t *testing.T) {
	c := model.Coordinate{Latitude: 53, Longitude: 10}
	if _, err := BoundingBoxForViewport(c, 0, 0.01); err == nil {
		t.Fatal("zero latSpan accepted")
	}
	if _, err := BoundingBoxForViewport(c, 0.01, -1); err == nil {
		t.Fatal("negative lonSpan accepted")
	}
	if _, err := BoundingBoxForViewport(model.Coordinate{Latitude: math.NaN()}, 0.01, 0.01); err == nil {
		t.Fatal("NaN center accepted")
	}
	if _, err := BoundingBoxForViewport(c, math.Inf(1), 0.01); err == nil {
		t.Fatal("infinite span accepted")
	}
}

func TestHaversineMeters(t *testing.T) {
	a := model.Coordinate{Latitude: 53.55, Longitude: 9.99}
	if d := HaversineMeters(a, a); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
	// Hamburg city center to airport is roughly 8.5 km
	b := model.Coordinate{Latitude: 53.63, Longitude: 10.0}
	d := HaversineMeters(a, b)
	if d < 8000 || d > 10000 {
		t.Fatalf("implausible distance %v", d)
	}
}
