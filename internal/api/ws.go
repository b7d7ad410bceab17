package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket stream of run events. The protocol mirrors graphql-transport-ws
// framing: connection_init/ack, subscribe, next, complete, ping/pong.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	RunID  string   `json:"runId"`
	Events []string `json:"events,omitempty"`
}

// RunEventsWSHandler handles /v1/ws
func (s *Server) RunEventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		runID string
		ch    chan SSEEvent
	}
	subs := map[string]sub{}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// The keepalive and fan-out goroutines share the connection with the
	// read loop; gorilla allows one concurrent writer, so all frames go
	// through this guarded helper.
	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					if err := write(wsMessage{Type: "ping"}); err != nil {
						return
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl subscribePayload
			_ = json.Unmarshal(msg.Payload, &pl)
			if pl.RunID == "" {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"runId required"}`)})
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			pr := s.getPrincipal(r)
			if _, err := s.Store.GetRun(r.Context(), pr.Tenant, pl.RunID); err != nil {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"run not found"}`)})
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			wanted := map[string]bool{}
			for _, e := range pl.Events {
				wanted[e] = true
			}
			ch := s.Broker.Subscribe(pl.RunID)
			subs[msg.ID] = sub{runID: pl.RunID, ch: ch}
			go func(id string, c chan SSEEvent) {
				for evt := range c {
					if len(wanted) > 0 && !wanted[evt.Type] {
						continue
					}
					payload, _ := json.Marshal(map[string]any{"type": evt.Type, "data": evt.Data})
					_ = write(wsMessage{Type: "next", ID: id, Payload: payload})
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(s0.runID, s0.ch)
				delete(subs, msg.ID)
			}
		default:
			// ignore
		}
	}
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.runID, s0.ch)
		delete(subs, id)
	}
}
