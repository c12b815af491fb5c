// Package httpapi implements the central controller's HTTP surface (spec
// §4.6): receiveKeyCode, pleaseRespondToKeypad, retrieveConsoleLogs,
// _health_status, and the SPEC_FULL §5.2 consoleEvents websocket addition.
// Grounded on nucleus/internal/governance/alfred_server.go's router setup.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"secureshed/internal/eventbus"
	"secureshed/internal/httpsrv"
	"secureshed/internal/logging"
	"secureshed/internal/schema"
)

// Server is the central controller's HTTP surface. HTTP handlers never
// mutate alarm state directly: they translate requests into events, queue
// them on bus, and return (spec §5 "Scheduling model").
type Server struct {
	bus     *eventbus.Bus
	schemas *schema.Set
	log     *logging.Logger
	authKey string
	router  *mux.Router
}

// New builds the router. authKey is the central controller's configured
// shared secret, compared byte-for-byte against the authorisationKey
// header on every route.
func New(bus *eventbus.Bus, schemas *schema.Set, log *logging.Logger, authKey string) *Server {
	s := &Server{bus: bus, schemas: schemas, log: log, authKey: authKey, router: mux.NewRouter()}
	s.setupRoutes()
	return s
}

// Handler returns the http.Handler to pass to an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/receiveKeyCode", s.handleReceiveKeyCode).Methods(http.MethodPost)
	s.router.HandleFunc("/pleaseRespondToKeypad", s.handlePleaseRespondToKeypad).Methods(http.MethodPost)
	s.router.HandleFunc("/retrieveConsoleLogs", s.withAuth(httpsrv.RetrieveConsoleLogsHandler(s.log, s.schemas))).Methods(http.MethodPost)
	s.router.HandleFunc("/_health_status", s.withAuth(httpsrv.HealthHandler())).Methods(http.MethodGet)
	s.router.HandleFunc("/consoleEvents", s.withAuth(httpsrv.ConsoleEventsHandler(s.log)))
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !httpsrv.RequireAuth(w, r, s.authKey) {
			return
		}
		next(w, r)
	}
}

func (s *Server) handleReceiveKeyCode(w http.ResponseWriter, r *http.Request) {
	if !httpsrv.RequireAuth(w, r, s.authKey) {
		return
	}

	var body struct {
		KeySequence string `json:"keySequence"`
	}
	if !httpsrv.DecodeAndValidate(w, r, s.schemas, schema.ReceiveKeyCode, &body) {
		return
	}

	if err := s.bus.Queue(eventbus.Event{
		Kind: eventbus.KeypadKeyCodeEntered,
		Body: eventbus.KeypadKeyCodeEnteredBody{KeySequence: body.KeySequence},
	}); err != nil {
		httpsrv.WriteError(w, http.StatusInternalServerError, "Unable to accept key code at this time")
		return
	}

	httpsrv.WriteText(w, http.StatusOK, "Ok")
}

func (s *Server) handlePleaseRespondToKeypad(w http.ResponseWriter, r *http.Request) {
	if !httpsrv.RequireAuth(w, r, s.authKey) {
		return
	}

	if err := s.bus.Queue(eventbus.Event{Kind: eventbus.KeypadApiSendAlivePing}); err != nil {
		httpsrv.WriteError(w, http.StatusInternalServerError, "Unable to accept request at this time")
		return
	}

	httpsrv.WriteText(w, http.StatusOK, "Ok")
}
