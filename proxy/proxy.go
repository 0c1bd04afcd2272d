// ABOUTME: Local reverse proxy exposing amoCRM under a same-origin /api prefix
// ABOUTME: Rewrites paths, preserves auth, injects CORS and converts upstream errors to JSON 500s
package proxy

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Server proxies /api/* to the account's amoCRM host and serves the
// dashboard handler (when set) on every other path.
type Server struct {
	upstream  *url.URL
	proxy     *httputil.ReverseProxy
	dashboard http.Handler
}

// New creates a proxy for the given upstream base URL, e.g.
// https://mycompany.amocrm.ru. The dashboard handler may be nil.
func New(upstream string, dashboard http.Handler) (*Server, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", upstream, err)
	}

	s := &Server{upstream: target, dashboard: dashboard}

	rp := httputil.NewSingleHostReverseProxy(target)
	baseDirector := rp.Director
	rp.Director = func(req *http.Request) {
		auth := req.Header.Get("Authorization")
		baseDirector(req)
		req.URL.Path = rewritePath(req.URL.Path)
		req.Host = target.Host
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		req.Header.Set("Content-Type", "application/json")
	}
	rp.ModifyResponse = func(resp *http.Response) error {
		setCORSHeaders(resp.Header)
		return nil
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("proxy: upstream error for %s %s: %v", r.Method, r.URL.Path, err)
		setCORSHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "Proxy Error",
			"message": err.Error(),
		})
	}
	s.proxy = rp

	return s, nil
}

// rewritePath strips the /api prefix the browser client uses. A doubled
// /api/api/v4 (the client prefixes endpoints that already carry /api)
// collapses to a single /api/v4.
func rewritePath(path string) string {
	if strings.HasPrefix(path, "/api/api/v4") {
		return strings.Replace(path, "/api/api/v4", "/api/v4", 1)
	}
	return strings.TrimPrefix(path, "/api")
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Allow-Credentials", "true")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api") {
		reqID := uuid.NewString()
		log.Printf("proxy: [%s] %s %s", reqID, r.Method, r.URL.Path)

		if r.Method == http.MethodOptions {
			setCORSHeaders(w.Header())
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.proxy.ServeHTTP(w, r)
		return
	}

	if s.dashboard != nil {
		s.dashboard.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

// Start listens on addr and serves until the listener fails.
func (s *Server) Start(addr string) error {
	log.Printf("proxy: listening on %s, forwarding /api to %s", addr, s.upstream)
	return http.ListenAndServe(addr, s)
}
