package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetwatch/internal/buildinfo"
	"fleetwatch/internal/locate"
	"fleetwatch/internal/model"
	"fleetwatch/internal/registry"
)

// VehiclesHandler handles GET /v1/vehicles
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items := s.Fleet.Registry().All()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// ViewportHandler handles GET /v1/vehicles/viewport
func (s *Server) ViewportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items := s.Fleet.Registry().Viewport()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// VehicleByIDHandler handles /v1/vehicles/{id} and /v1/vehicles/{id}/select
func (s *Server) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/vehicles/")
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid vehicle id", parts[0], r.URL.Path)
		return
	}

	if len(parts) > 1 && parts[1] == "select" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		v, err := s.Fleet.Select(r.Context(), id)
		switch {
		case errors.Is(err, registry.ErrAlreadySelected):
			writeProblem(w, http.StatusConflict, "Selection rejected", "another vehicle is already selected", r.URL.Path)
			return
		case errors.Is(err, registry.ErrNotFound):
			writeProblem(w, http.StatusNotFound, "Vehicle not found", fmt.Sprintf("id %d", id), r.URL.Path)
			return
		case err != nil:
			writeProblem(w, http.StatusInternalServerError, "Select failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, v)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	v, ok := s.Fleet.Registry().Get(id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Vehicle not found", fmt.Sprintf("id %d", id), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeselectHandler handles DELETE /v1/vehicles/select
func (s *Server) DeselectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.Fleet.Deselect()
	w.WriteHeader(http.StatusNoContent)
}

// FetchHandler handles POST /v1/fleet/fetch: the one-shot wide fetch.
func (s *Server) FetchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.Fleet.FetchAllVehicles(r.Context()); err != nil {
		writeProblem(w, http.StatusBadGateway, "Fleet fetch failed", err.Error(), r.URL.Path)
		return
	}
	items := s.Fleet.Registry().All()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// PollHandler handles POST /v1/poll/start and /v1/poll/stop
func (s *Server) PollHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/start"):
		sess := s.Fleet.StartMapUpdate()
		writeJSON(w, http.StatusOK, map[string]any{"sessionId": sess.ID, "active": true})
	case strings.HasSuffix(r.URL.Path, "/stop"):
		s.Fleet.StopMapUpdate()
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// RegionHandler handles GET/PUT /v1/region
func (s *Server) RegionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Fleet.Region())
	case http.MethodPut:
		var req model.Region
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.LatSpan <= 0 || req.LonSpan <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid region", "spans must be positive", r.URL.Path)
			return
		}
		s.Fleet.SetRegion(req)
		writeJSON(w, http.StatusOK, s.Fleet.Region())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// LocationHandler handles the permission-authority surface:
// GET  /v1/location                 — gate status, advisory, last fix
// POST /v1/location/check           — drive the gate on first use
// POST /v1/location/authorization   — authorization-changed callback
// POST /v1/location/fix             — location fix report
func (s *Server) LocationHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v1/location" && r.Method == http.MethodGet:
		resp := map[string]any{"status": s.Fleet.Gate().Status()}
		if c, ok := s.Fleet.Gate().Location(); ok {
			resp["location"] = c
		}
		if adv, ok := s.Fleet.Gate().Advisory(); ok {
			resp["advisory"] = adv
		}
		writeJSON(w, http.StatusOK, resp)
	case strings.HasSuffix(r.URL.Path, "/check") && r.Method == http.MethodPost:
		s.Fleet.CheckLocationAccess()
		writeJSON(w, http.StatusOK, map[string]any{"status": s.Fleet.Gate().Status()})
	case strings.HasSuffix(r.URL.Path, "/authorization") && r.Method == http.MethodPost:
		var req struct {
			Status locate.Status `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		switch req.Status {
		case locate.Authorized, locate.Denied, locate.Restricted:
		default:
			writeProblem(w, http.StatusBadRequest, "Invalid status", string(req.Status), r.URL.Path)
			return
		}
		s.Fleet.Gate().SetAuthorization(req.Status)
		writeJSON(w, http.StatusOK, map[string]any{"status": s.Fleet.Gate().Status()})
	case strings.HasSuffix(r.URL.Path, "/fix") && r.Method == http.MethodPost:
		var req model.Coordinate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		s.Authority.SetFix(req)
		s.Fleet.Gate().UpdateFix(req)
		writeJSON(w, http.StatusOK, map[string]any{"status": s.Fleet.Gate().Status()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// EventsStreamHandler handles GET /v1/events/stream as SSE.
func (s *Server) EventsStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(Topic)
	defer s.Broker.Unsubscribe(Topic, ch)

	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"ts\":\"%s\"}\n\n", time.Now().Format(time.RFC3339))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"ts\":\"%s\"}\n\n", time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// HealthHandler handles GET /healthz
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

// ReadyHandler handles GET /readyz
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "polling": s.Fleet.Polling()})
}
