package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// VehiclesWSHandler streams fleet events plus periodic vehicle snapshots
// over a WebSocket at /v1/vehicles/ws.
func (s *Server) VehiclesWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ch := s.Broker.Subscribe(Topic)
	defer s.Broker.Unsubscribe(Topic, ch)

	done := make(chan struct{})
	// reader goroutine: drains control frames and detects close
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot := func() map[string]any {
		return map[string]any{
			"type":     "snapshot",
			"vehicles": s.Fleet.Registry().All(),
			"viewport": s.Fleet.Registry().Viewport(),
		}
	}
	if err := conn.WriteJSON(snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case evt := <-ch:
			if err := conn.WriteJSON(map[string]any{"type": "event", "event": evt}); err != nil {
				return
			}
			// registry writes precede events, so a fresh snapshot is consistent
			if err := conn.WriteJSON(snapshot()); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
