// Package httpsrv holds the HTTP plumbing shared by both the central
// controller and keypad controller surfaces (spec §4.6/§4.7.2 are
// symmetric on auth, logs, health, and consoleEvents): auth header
// discipline, the validation order (auth -> Content-Type -> JSON parse ->
// schema), the retrieveConsoleLogs handler, and the consoleEvents
// websocket log tail. Grounded on
// nucleus/internal/governance/alfred_server.go's mux router/handler shape
// and gorilla/websocket upgrade-and-broadcast loop.
package httpsrv

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"secureshed/internal/logging"
	"secureshed/internal/schema"
)

// WriteText writes a text/plain body with the given status.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// WriteError writes a text/plain error body with the given status, matching
// spec §4.6's "All error bodies are text/plain with a short human-readable
// reason."
func WriteError(w http.ResponseWriter, status int, reason string) {
	WriteText(w, status, reason)
}

// RequireAuth enforces spec §4.6's auth discipline: header authorisationKey
// must be present (401 if missing) and equal authKey (403 if mismatch).
// Returns false (and has already written the response) if the request
// should stop here.
func RequireAuth(w http.ResponseWriter, r *http.Request, authKey string) bool {
	got := r.Header.Get("authorisationKey")
	if got == "" {
		WriteError(w, http.StatusUnauthorized, "Authorisation key is missing")
		return false
	}
	if got != authKey {
		WriteError(w, http.StatusForbidden, "Authorisation key is incorrect")
		return false
	}
	return true
}

// DecodeAndValidate enforces the rest of spec §4.6's validation order:
// Content-Type, JSON parse, then schema. On success it decodes the body
// into target and returns true; otherwise it has written the error
// response and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, schemas *schema.Set, name schema.Name, target any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		WriteError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Unable to read request body")
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		WriteError(w, http.StatusBadRequest, "Request body is not valid JSON")
		return false
	}

	if err := schemas.Validate(name, body); err != nil {
		WriteError(w, http.StatusBadRequest, "Request body failed schema validation")
		return false
	}

	if target != nil {
		if err := json.Unmarshal(body, target); err != nil {
			WriteError(w, http.StatusBadRequest, "Request body is not valid JSON")
			return false
		}
	}
	return true
}

// WriteJSON writes v as a 200 JSON response.
func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type retrieveConsoleLogsRequest struct {
	StartTimestamp float64 `json:"startTimestamp"`
}

type logEntryWire struct {
	Timestamp float64 `json:"timestamp"`
	Level     int     `json:"level"`
	Message   string  `json:"message"`
}

type retrieveConsoleLogsResponse struct {
	LastTimestamp float64        `json:"lastTimestamp"`
	Entries       []logEntryWire `json:"entries"`
}

const maxConsoleLogEntries = 50

// RetrieveConsoleLogsHandler implements the symmetric /retrieveConsoleLogs
// route for both controllers (spec §4.6, §4.7.2).
func RetrieveConsoleLogsHandler(log *logging.Logger, schemas *schema.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req retrieveConsoleLogsRequest
		if !DecodeAndValidate(w, r, schemas, schema.RetrieveConsoleLogsReq, &req) {
			return
		}

		entries, lastTimestamp := log.Since(req.StartTimestamp, maxConsoleLogEntries)

		wire := make([]logEntryWire, 0, len(entries))
		for _, e := range entries {
			wire = append(wire, logEntryWire{Timestamp: e.Timestamp, Level: int(e.Level), Message: e.Message})
		}

		WriteJSON(w, retrieveConsoleLogsResponse{LastTimestamp: lastTimestamp, Entries: wire})
	}
}

// HealthHandler returns the fixed {"health":"normal"} body (spec §4.6,
// §4.7.2).
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]string{"health": "normal"})
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ConsoleEventsHandler upgrades to a websocket and streams new log entries
// as they are recorded (SPEC_FULL §5.2 addition, not present in the
// original protocol: a live console replacing the original's terminal
// curses view).
func ConsoleEventsHandler(log *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ch := log.Subscribe()
		defer log.Unsubscribe(ch)

		conn.SetReadDeadline(time.Now().Add(time.Hour))
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for entry := range ch {
			wire := logEntryWire{Timestamp: entry.Timestamp, Level: int(entry.Level), Message: entry.Message}
			if err := conn.WriteJSON(wire); err != nil {
				return
			}
		}
	}
}
