package api

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 problem-details body. Every non-2xx response
// from the API uses this shape.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already on the wire, so an encode failure has
	// nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	p := Problem{Type: "about:blank", Title: title, Status: status}
	p.Detail = detail
	p.Instance = instance
	writeJSON(w, status, p)
}
