// ABOUTME: Tests for the /api reverse proxy
// ABOUTME: Covers path rewriting, auth preservation, CORS and upstream failure
package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewritePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/oauth2/access_token", "/oauth2/access_token"},
		{"/api/api/v4/leads", "/api/v4/leads"},
		{"/api/api/v4/tasks", "/api/v4/tasks"},
		{"/api/v4/contacts", "/v4/contacts"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rewritePath(tt.in), "rewrite %s", tt.in)
	}
}

func TestProxyForwardsWithAuthAndCORS(t *testing.T) {
	var gotPath, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	srv, err := New(upstream.URL, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/api/v4/leads?with=contacts", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v4/leads", gotPath)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestProxyHandlesPreflight(t *testing.T) {
	srv, err := New("http://127.0.0.1:1", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/v4/leads", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	// Preflight is answered locally, never forwarded upstream.
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestProxyUpstreamErrorReturnsJSON500(t *testing.T) {
	// Nothing listens here; the transport error must surface as a JSON 500.
	srv, err := New("http://127.0.0.1:1", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v4/leads", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body, _ := io.ReadAll(rec.Body)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Proxy Error", payload["error"])
	assert.NotEmpty(t, payload["message"])
}

func TestNonAPIPathsGoToDashboard(t *testing.T) {
	dashboard := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("dashboard"))
	})
	srv, err := New("http://127.0.0.1:1", dashboard)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "dashboard", rec.Body.String())

	// Without a dashboard handler non-/api paths 404.
	bare, err := New("http://127.0.0.1:1", nil)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
