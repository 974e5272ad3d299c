package main

import (
	"bufio"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetwatch/internal/api"
	"fleetwatch/internal/config"
	"fleetwatch/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	srv, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	mux := http.NewServeMux()

	// Vehicles
	mux.HandleFunc("/v1/vehicles", srv.VehiclesHandler)
	mux.HandleFunc("/v1/vehicles/viewport", srv.ViewportHandler)
	mux.HandleFunc("/v1/vehicles/select", srv.DeselectHandler)
	mux.HandleFunc("/v1/vehicles/", srv.VehicleByIDHandler) // includes /{id}/select
	mux.HandleFunc("/v1/vehicles/ws", srv.VehiclesWSHandler)

	// Fleet operations
	mux.HandleFunc("/v1/fleet/fetch", srv.FetchHandler)
	mux.HandleFunc("/v1/poll/start", srv.PollHandler)
	mux.HandleFunc("/v1/poll/stop", srv.PollHandler)
	mux.HandleFunc("/v1/region", srv.RegionHandler)

	// Location permission surface
	mux.HandleFunc("/v1/location", srv.LocationHandler)
	mux.HandleFunc("/v1/location/", srv.LocationHandler)

	// Events
	mux.HandleFunc("/v1/events/stream", srv.EventsStreamHandler)

	// Health
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)

	// Metrics
	metrics.RegisterDefault()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":" + strconv.Itoa(cfg.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, rec.status, dur)
	})
}

// statusRecorder captures the response code for metrics while passing
// Flush/Hijack through so SSE and WebSocket upgrades keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
