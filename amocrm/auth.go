// ABOUTME: OAuth2 authentication against the amoCRM token endpoint
// ABOUTME: Refresh-first flow with fallback to the one-time authorization code exchange
package amocrm

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/felixgeelhaar/statekit"
	"golang.org/x/oauth2"

	"github.com/avoronin/dealview/models"
)

// Auth states. Refreshing is a transient sub-state entered opportunistically
// when a refresh token is available.
const (
	StateUnauthenticated = "unauthenticated"
	StateAuthenticating  = "authenticating"
	StateRefreshing      = "refreshing"
	StateAuthenticated   = "authenticated"
)

const tokenEndpoint = "/oauth2/access_token"

// TokenStore is the persistence surface the authenticator needs. The
// tokens package provides the badger implementation.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(*oauth2.Token) error
}

// AuthConfig carries the integration credentials for both grant flows.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthCode     string
}

// Authenticator obtains and refreshes credentials for a Client. All
// failures are logged and surfaced as booleans; nothing propagates as an
// error past Authenticate.
type Authenticator struct {
	client *Client
	store  TokenStore
	cfg    AuthConfig
	fsm    *statekit.Interpreter[struct{}]
}

// NewAuthenticator wires an authenticator to the given client and store.
func NewAuthenticator(client *Client, store TokenStore, cfg AuthConfig) (*Authenticator, error) {
	machine := statekit.NewMachine[struct{}]("auth").
		WithInitial(StateUnauthenticated)

	machine.State(StateUnauthenticated).
		On("refresh").Target(StateRefreshing).
		On("exchange").Target(StateAuthenticating).
		Done()
	machine.State(StateRefreshing).
		On("success").Target(StateAuthenticated).
		On("fail").Target(StateUnauthenticated).
		Done()
	machine.State(StateAuthenticating).
		On("success").Target(StateAuthenticated).
		On("fail").Target(StateUnauthenticated).
		Done()
	machine.State(StateAuthenticated).
		On("refresh").Target(StateRefreshing).
		Done()

	built, err := machine.Build()
	if err != nil {
		return nil, err
	}

	fsm := statekit.NewInterpreter(built)
	fsm.Start()

	return &Authenticator{client: client, store: store, cfg: cfg, fsm: fsm}, nil
}

// State returns the current auth state.
func (a *Authenticator) State() string {
	return string(a.fsm.State().Value)
}

func (a *Authenticator) send(event string) {
	a.fsm.Send(statekit.Event{Type: statekit.EventType(event)})
}

// Authenticate establishes credentials. A stored refresh token is tried
// first; when that fails (expired, revoked, never issued) the one-time
// authorization code exchange runs instead. Returns false when neither
// flow produced an access token - the caller treats that as fatal for
// the session and does not retry.
func (a *Authenticator) Authenticate(ctx context.Context) bool {
	stored, err := a.store.Load()
	if err != nil {
		log.Printf("auth: failed to load stored tokens: %v", err)
		stored = &oauth2.Token{}
	}

	if stored.RefreshToken != "" {
		a.client.SetToken(stored)
		if a.refresh(ctx, stored.RefreshToken) {
			return true
		}
	}

	a.send("exchange")

	tok, ok := a.requestToken(ctx, map[string]string{
		"client_id":     a.cfg.ClientID,
		"client_secret": a.cfg.ClientSecret,
		"grant_type":    "authorization_code",
		"code":          a.cfg.AuthCode,
		"redirect_uri":  a.cfg.RedirectURI,
	})
	if !ok {
		a.send("fail")
		return false
	}

	a.adopt(tok)
	a.send("success")
	log.Printf("auth: connected to amoCRM")
	return true
}

// refresh runs the refresh_token grant. False is recoverable: the caller
// falls through to the code exchange.
func (a *Authenticator) refresh(ctx context.Context, refreshToken string) bool {
	a.send("refresh")

	tok, ok := a.requestToken(ctx, map[string]string{
		"client_id":     a.cfg.ClientID,
		"client_secret": a.cfg.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"redirect_uri":  a.cfg.RedirectURI,
	})
	if !ok {
		a.send("fail")
		return false
	}

	a.adopt(tok)
	a.send("success")
	log.Printf("auth: token refreshed")
	return true
}

// requestToken posts one grant request. Any transport error, non-2xx
// status or response without an access token yields (nil, false).
func (a *Authenticator) requestToken(ctx context.Context, grant map[string]string) (*oauth2.Token, bool) {
	raw, err := a.client.do(ctx, http.MethodPost, tokenEndpoint, grant)
	if err != nil {
		log.Printf("auth: token request failed: %v", err)
		return nil, false
	}

	var resp models.TokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		log.Printf("auth: malformed token response: %v", err)
		return nil, false
	}
	if resp.AccessToken == "" {
		log.Printf("auth: token endpoint returned no access token")
		return nil, false
	}

	return &oauth2.Token{
		TokenType:    resp.TokenType,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, true
}

// adopt installs a fresh token pair on the client and persists it.
func (a *Authenticator) adopt(tok *oauth2.Token) {
	a.client.SetToken(tok)
	if err := a.store.Save(tok); err != nil {
		log.Printf("auth: failed to persist tokens: %v", err)
	}
}
