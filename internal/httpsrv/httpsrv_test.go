package httpsrv_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"secureshed/internal/httpsrv"
	"secureshed/internal/logging"
	"secureshed/internal/schema"
)

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/x", nil)

	ok := httpsrv.RequireAuth(w, r, "secret")
	require.False(t, ok)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Authorisation key is missing", w.Body.String())
}

func TestRequireAuthRejectsWrongKey(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/x", nil)
	r.Header.Set("authorisationKey", "wrong")

	ok := httpsrv.RequireAuth(w, r, "secret")
	require.False(t, ok)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAuthAcceptsMatchingKey(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/x", nil)
	r.Header.Set("authorisationKey", "secret")

	ok := httpsrv.RequireAuth(w, r, "secret")
	require.True(t, ok)
}

func TestDecodeAndValidateRejectsNonJSONBody(t *testing.T) {
	schemas, err := schema.Compile()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("not json"))

	var target map[string]any
	ok := httpsrv.DecodeAndValidate(w, r, schemas, schema.ReceiveKeyCode, &target)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecodeAndValidateRejectsSchemaViolation(t *testing.T) {
	schemas, err := schema.Compile()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"wrong":"field"}`))

	var target map[string]any
	ok := httpsrv.DecodeAndValidate(w, r, schemas, schema.ReceiveKeyCode, &target)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecodeAndValidateAcceptsValidBody(t *testing.T) {
	schemas, err := schema.Compile()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"keySequence":"1234"}`))

	var target struct {
		KeySequence string `json:"keySequence"`
	}
	ok := httpsrv.DecodeAndValidate(w, r, schemas, schema.ReceiveKeyCode, &target)
	require.True(t, ok)
	require.Equal(t, "1234", target.KeySequence)
}

func TestHealthHandlerReturnsNormal(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/_health_status", nil)
	httpsrv.HealthHandler()(w, r)

	require.JSONEq(t, `{"health":"normal"}`, w.Body.String())
}

func TestRetrieveConsoleLogsReturnsEntriesAfterStart(t *testing.T) {
	log, err := logging.New("test", t.TempDir(), 16)
	require.NoError(t, err)
	defer log.Close()

	log.Info("first")
	log.Info("second")

	schemas, err := schema.Compile()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/retrieveConsoleLogs", strings.NewReader(`{"startTimestamp":0}`))
	httpsrv.RetrieveConsoleLogsHandler(log, schemas)(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "lastTimestamp")
}
