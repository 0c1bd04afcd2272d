// ABOUTME: Tests for the refresh-first authentication flow
// ABOUTME: Covers refresh success, fallback to code exchange and hard failure
package amocrm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

// memStore is an in-memory TokenStore for tests.
type memStore struct {
	tok *oauth2.Token
}

func (m *memStore) Load() (*oauth2.Token, error) {
	if m.tok == nil {
		return &oauth2.Token{}, nil
	}
	return m.tok, nil
}

func (m *memStore) Save(tok *oauth2.Token) error {
	m.tok = tok
	return nil
}

type grantRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
	RefreshToken string `json:"refresh_token"`
	RedirectURI  string `json:"redirect_uri"`
}

func newAuthTestServer(t *testing.T, refreshOK, exchangeOK bool) (*httptest.Server, *[]string) {
	t.Helper()
	var grants []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/access_token" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req grantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		grants = append(grants, req.GrantType)

		ok := (req.GrantType == "refresh_token" && refreshOK) ||
			(req.GrantType == "authorization_code" && exchangeOK)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"hint":"invalid grant"}`))
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"token_type":    "Bearer",
			"expires_in":    86400,
			"access_token":  "new-access-" + req.GrantType,
			"refresh_token": "new-refresh-" + req.GrantType,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &grants
}

func newTestAuthenticator(t *testing.T, baseURL string, store TokenStore) *Authenticator {
	t.Helper()
	client := NewClient(baseURL, 0)
	auth, err := NewAuthenticator(client, store, AuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "https://example.com/cb",
		AuthCode:     "one-time-code",
	})
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	return auth
}

func TestAuthenticateUsesRefreshTokenFirst(t *testing.T) {
	srv, grants := newAuthTestServer(t, true, false)
	store := &memStore{tok: &oauth2.Token{AccessToken: "stale", RefreshToken: "stored-refresh"}}
	auth := newTestAuthenticator(t, srv.URL, store)

	if !auth.Authenticate(context.Background()) {
		t.Fatal("Authenticate = false, want true")
	}

	if len(*grants) != 1 || (*grants)[0] != "refresh_token" {
		t.Errorf("grants = %v, want single refresh_token", *grants)
	}
	if store.tok.AccessToken != "new-access-refresh_token" {
		t.Errorf("stored access token = %q", store.tok.AccessToken)
	}
	if auth.State() != StateAuthenticated {
		t.Errorf("state = %s, want %s", auth.State(), StateAuthenticated)
	}
}

func TestAuthenticateFallsThroughToCodeExchange(t *testing.T) {
	// Refresh token present but rejected upstream: the flow must fall
	// through to the authorization-code exchange and succeed there.
	srv, grants := newAuthTestServer(t, false, true)
	store := &memStore{tok: &oauth2.Token{RefreshToken: "expired-refresh"}}
	auth := newTestAuthenticator(t, srv.URL, store)

	if !auth.Authenticate(context.Background()) {
		t.Fatal("Authenticate = false, want true")
	}

	want := []string{"refresh_token", "authorization_code"}
	if len(*grants) != 2 || (*grants)[0] != want[0] || (*grants)[1] != want[1] {
		t.Errorf("grants = %v, want %v", *grants, want)
	}
	if store.tok.AccessToken != "new-access-authorization_code" {
		t.Errorf("stored access token = %q", store.tok.AccessToken)
	}
}

func TestAuthenticateSkipsRefreshWithoutStoredToken(t *testing.T) {
	srv, grants := newAuthTestServer(t, true, true)
	store := &memStore{}
	auth := newTestAuthenticator(t, srv.URL, store)

	if !auth.Authenticate(context.Background()) {
		t.Fatal("Authenticate = false, want true")
	}
	if len(*grants) != 1 || (*grants)[0] != "authorization_code" {
		t.Errorf("grants = %v, want single authorization_code", *grants)
	}
}

func TestAuthenticateFailsWhenBothFlowsFail(t *testing.T) {
	srv, _ := newAuthTestServer(t, false, false)
	store := &memStore{tok: &oauth2.Token{RefreshToken: "whatever"}}
	auth := newTestAuthenticator(t, srv.URL, store)

	if auth.Authenticate(context.Background()) {
		t.Fatal("Authenticate = true, want false")
	}
	if auth.State() != StateUnauthenticated {
		t.Errorf("state = %s, want %s", auth.State(), StateUnauthenticated)
	}
}

func TestAuthenticateHandlesMissingAccessToken(t *testing.T) {
	// 200 response without an access_token field is an auth failure,
	// not a decode crash.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	t.Cleanup(srv.Close)

	auth := newTestAuthenticator(t, srv.URL, &memStore{})
	if auth.Authenticate(context.Background()) {
		t.Fatal("Authenticate = true, want false")
	}
}
