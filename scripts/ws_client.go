// Package main runs a demo WebSocket client for fleet events.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Load the fleet and start the viewport poller
	resp, err := http.Post(base+"/v1/fleet/fetch", "application/json", nil)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var fetched struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		log.Fatal(err)
	}
	log.Printf("fleet loaded: %d vehicles", fetched.Count)

	if _, err := http.Post(base+"/v1/poll/start", "application/json", nil); err != nil {
		log.Fatal(err)
	}

	// Connect WS and print snapshots/events
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/vehicles/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		_ = c.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg map[string]any
		if err := c.ReadJSON(&msg); err != nil {
			log.Printf("read: %v", err)
			return
		}
		b, _ := json.Marshal(msg)
		log.Printf("recv: %s", string(b))
	}
}
