package monitor

import (
	"encoding/json"
	"net/http"
)

// refusal is the body sent to a spectator that may not watch.
type refusal struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// refuse answers 401 and challenges the spectator with every scheme the
// monitor accepts.
func refuse(w http.ResponseWriter, schemes []string, reason string) {
	for _, s := range schemes {
		w.Header().Add("WWW-Authenticate", s+` realm="puyo-bridge"`)
	}
	respond(w, http.StatusUnauthorized, refusal{Error: "spectator_unauthorized", Reason: reason})
}
