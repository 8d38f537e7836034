package authtest

import (
	"encoding/json"
	"net/http"
	"time"
)

// Endpoint paths relative to the /auth prefix.
const (
	EndpointMe       = "/me"
	EndpointLogin    = "/login"
	EndpointRegister = "/register"
	EndpointRefresh  = "/refresh"
	EndpointLogout   = "/logout"
)

// Reply is a scripted response for a single request.
type Reply struct {
	// Status is written as-is. Zero falls through to the default behavior.
	Status int
	// JSON is encoded as the body when non-nil.
	JSON any
	// Text is the raw body when JSON is nil.
	Text string
	// Delay postpones the reply.
	Delay time.Duration
	// Hang blocks until the client gives up or the service is released.
	Hang bool
}

// Detail builds the {"detail": msg} error body used by the service.
func Detail(msg string) map[string]any {
	return map[string]any{"detail": msg}
}

// ValidationDetail builds the list form {"detail": [{"msg": ...}, ...]}.
func ValidationDetail(msgs ...string) map[string]any {
	items := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, map[string]any{"msg": m})
	}
	return map[string]any{"detail": items}
}

func writeReply(w http.ResponseWriter, r Reply) {
	if r.JSON != nil {
		writeJSON(w, r.Status, r.JSON)
		return
	}
	if r.Text != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(r.Status)
	if r.Text != "" {
		_, _ = w.Write([]byte(r.Text))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
