package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"secureshed/internal/eventbus"
	"secureshed/internal/httpapi"
	"secureshed/internal/logging"
	"secureshed/internal/schema"
)

func newTestServer(t *testing.T) (*httpapi.Server, *eventbus.Bus) {
	t.Helper()
	log, err := logging.New("test", t.TempDir(), 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	schemas, err := schema.Compile()
	require.NoError(t, err)

	bus := eventbus.New()
	bus.Register(eventbus.KeypadKeyCodeEntered, func(eventbus.Event) {})
	bus.Register(eventbus.KeypadApiSendAlivePing, func(eventbus.Event) {})

	return httpapi.New(bus, schemas, log, "secret"), bus
}

func TestReceiveKeyCodeRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/receiveKeyCode", strings.NewReader(`{"keySequence":"1234"}`))
	srv.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReceiveKeyCodeQueuesEvent(t *testing.T) {
	srv, bus := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/receiveKeyCode", strings.NewReader(`{"keySequence":"1234"}`))
	r.Header.Set("authorisationKey", "secret")
	srv.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Ok", w.Body.String())
	require.Equal(t, 1, bus.Len())
}

func TestReceiveKeyCodeRejectsWrongAuthKey(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/receiveKeyCode", strings.NewReader(`{"keySequence":"1234"}`))
	r.Header.Set("authorisationKey", "nope")
	srv.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPleaseRespondToKeypadQueuesAlivePing(t *testing.T) {
	srv, bus := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/pleaseRespondToKeypad", nil)
	r.Header.Set("authorisationKey", "secret")
	srv.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, bus.Len())
}

func TestHealthStatusRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/_health_status", nil)
	srv.Handler().ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/_health_status", nil)
	r.Header.Set("authorisationKey", "secret")
	srv.Handler().ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"health":"normal"}`, w.Body.String())
}
