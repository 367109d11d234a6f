// Package rpc exposes the workflow over JSON-over-HTTP plus a websocket
// event stream. Handlers hold no state of their own; everything lives in
// the session and flows through the chat dispatcher.
package rpc

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"taxinference/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("rpc: write response failed: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// resolveSession pulls the {id} path value and looks the session up,
// writing the error response itself when the lookup fails.
func resolveSession(w http.ResponseWriter, r *http.Request, sessions *session.Manager) (*session.Session, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return nil, false
	}
	s, ok := sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found: "+id)
		return nil, false
	}
	return s, true
}

// writeActionError maps dispatcher failures onto HTTP statuses. A busy
// session is a conflict; anything else already produced an apology
// message and error record in the session, so the status is advisory.
func writeActionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrActionInFlight) {
		writeError(w, http.StatusConflict, "another action is already running")
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
