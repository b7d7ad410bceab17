// Package main runs a demo WebSocket client for run events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a tiny scenario
	scBody := []byte(`{
		"name": "ws-demo",
		"plants": [{"id": "P1", "name": "Chicago", "lat": 41.88, "lon": -87.63, "canUse": true}],
		"customers": [{"id": "C1", "name": "Detroit", "lat": 42.33, "lon": -83.05, "demand": 100}],
		"params": {"maxWarehouses": 1}
	}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/scenarios", bytes.NewReader(scBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	var sc struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sc); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Scenario ID: %s", sc.ID)

	// Kick off a solve
	solveBody, _ := json.Marshal(map[string]any{"scenarioId": sc.ID})
	req, _ = http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(solveBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	var run struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Run ID: %s", run.ID)

	// Connect WS and subscribe to the run's events
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]any{"runId": run.ID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	select {
	case <-time.After(10 * time.Second):
	case <-done:
	}
}
