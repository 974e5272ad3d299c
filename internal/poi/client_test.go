package poi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleetwatch/internal/model"
)

func TestVehiclesInAreaEncodesCorners(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"poiList":[{"id":42,"coordinate":{"latitude":53.5,"longitude":9.9},"state":"ACTIVE","type":"TAXI","heading":123.4}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	p1 := model.Coordinate{Latitude: 53.694865, Longitude: 9.757589}
	p2 := model.Coordinate{Latitude: 53.394655, Longitude: 10.099891}
	vehicles, err := c.VehiclesInArea(context.Background(), p1, p2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := map[string]string{
		"p1Lat": "53.694865",
		"p1Lon": "9.757589",
		"p2Lat": "53.394655",
		"p2Lon": "10.099891",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Fatalf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if len(vehicles) != 1 {
		t.Fatalf("got %d vehicles", len(vehicles))
	}
	v := vehicles[0]
	if v.ID != 42 || v.State != model.StateActive || v.Type != model.TypeTaxi || v.Heading != 123.4 {
		t.Fatalf("decoded vehicle: %+v", v)
	}
	if v.Coordinate.Latitude != 53.5 || v.Coordinate.Longitude != 9.9 {
		t.Fatalf("decoded coordinate: %+v", v.Coordinate)
	}
}

func TestVehiclesInAreaErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)
	if _, err := c.VehiclesInArea(context.Background(), model.Coordinate{}, model.Coordinate{}); err == nil {
		t.Fatal("expected error for 500 response")
	}

	// malformed payload reads the same as a transport failure
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"poiList": not-json`))
	}))
	defer bad.Close()
	c = NewClient(bad.URL, time.Second)
	if _, err := c.VehiclesInArea(context.Background(), model.Coordinate{}, model.Coordinate{}); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", 0)
	if c.BaseURL != DefaultBaseURL {
		t.Fatalf("base URL: %s", c.BaseURL)
	}
	if c.HTTP.Timeout != defaultTimeout {
		t.Fatalf("timeout: %v", c.HTTP.Timeout)
	}
}
