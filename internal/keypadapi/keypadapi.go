// Package keypadapi implements the keypad controller's HTTP surface (spec
// §4.7.2): receiveCentralControllerPing, receiveKeypadLock,
// retrieveConsoleLogs, _healthStatus, and the SPEC_FULL §5.2 consoleEvents
// addition. Grounded on
// original_source/src/KeypadController/KeypadApiController.py for route
// shape and auth/validation order, translated from twisted.web.resource
// into gorilla/mux handlers in the teacher's idiom (nucleus/internal/
// governance/alfred_server.go).
package keypadapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"secureshed/internal/httpsrv"
	"secureshed/internal/logging"
	"secureshed/internal/panel"
	"secureshed/internal/schema"
)

// Server is the keypad controller's HTTP surface.
type Server struct {
	panel   *panel.Panel
	schemas *schema.Set
	log     *logging.Logger
	authKey string
	router  *mux.Router
}

// New builds the router. authKey is the keypad controller's configured
// shared secret.
func New(p *panel.Panel, schemas *schema.Set, log *logging.Logger, authKey string) *Server {
	s := &Server{panel: p, schemas: schemas, log: log, authKey: authKey, router: mux.NewRouter()}
	s.setupRoutes()
	return s
}

// Handler returns the http.Handler to pass to an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/receiveCentralControllerPing", s.handleReceiveCentralControllerPing).Methods(http.MethodPost)
	s.router.HandleFunc("/receiveKeypadLock", s.handleReceiveKeypadLock).Methods(http.MethodPost)
	s.router.HandleFunc("/retrieveConsoleLogs", s.withAuth(httpsrv.RetrieveConsoleLogsHandler(s.log, s.schemas))).Methods(http.MethodPost)
	s.router.HandleFunc("/_healthStatus", s.withAuth(httpsrv.HealthHandler())).Methods(http.MethodGet)
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

func (s *Server) handleReceiveCentralControllerPing(w http.ResponseWriter, r *http.Request) {
	if !httpsrv.RequireAuth(w, r, s.authKey) {
		return
	}

	// Only a panel currently CommunicationsLost is moved; any other state
	// is safe to leave untouched (spec §4.7.2), so this call is
	// unconditional and never itself an error.
	s.panel.ReceiveCentralControllerPing()

	s.log.Info("received an 'alive ping' from central controller")
	httpsrv.WriteText(w, http.StatusOK, "OK")
}

func (s *Server) handleReceiveKeypadLock(w http.ResponseWriter, r *http.Request) {
	if !httpsrv.RequireAuth(w, r, s.authKey) {
		return
	}

	var body struct {
		LockTime float64 `json:"lockTime"`
	}
	if !httpsrv.DecodeAndValidate(w, r, s.schemas, schema.KeypadLockRequest, &body) {
		return
	}

	s.panel.ReceiveKeypadLock(body.LockTime)

	s.log.Info("received a 'lock keypad' from central controller")
	httpsrv.WriteText(w, http.StatusOK, "OK")
}
