// ABOUTME: Environment-driven configuration for the amoCRM integration
// ABOUTME: Loads .env via godotenv then reads AMO_* variables with validation
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the client and proxy need to talk to one
// amoCRM account. Values come from the integration settings page.
type Config struct {
	Subdomain     string        // account subdomain, e.g. "mycompany" for mycompany.amocrm.ru
	ClientID      string        // integration id
	ClientSecret  string        // integration secret key
	RedirectURI   string        // redirect URI registered with the integration
	AuthCode      string        // one-time authorization code, only needed for the first exchange
	RequestDelay  time.Duration // minimum spacing between upstream calls
	BaseURL       string        // API base override; empty means the proxy/upstream default
	ListenAddr    string        // proxy listen address
}

const defaultRequestDelay = 1000 * time.Millisecond

// Load reads .env from the working directory when present, then the
// environment. A missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Subdomain:    os.Getenv("AMO_SUBDOMAIN"),
		ClientID:     os.Getenv("AMO_CLIENT_ID"),
		ClientSecret: os.Getenv("AMO_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("AMO_REDIRECT_URI"),
		AuthCode:     os.Getenv("AMO_AUTH_CODE"),
		BaseURL:      os.Getenv("AMO_BASE_URL"),
		ListenAddr:   os.Getenv("AMO_LISTEN_ADDR"),
		RequestDelay: defaultRequestDelay,
	}

	if ms := os.Getenv("AMO_REQUEST_DELAY_MS"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("AMO_REQUEST_DELAY_MS: invalid value %q", ms)
		}
		cfg.RequestDelay = time.Duration(n) * time.Millisecond
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	return cfg, nil
}

// Validate checks the fields every upstream-facing command needs.
func (c *Config) Validate() error {
	if c.Subdomain == "" {
		return fmt.Errorf("AMO_SUBDOMAIN is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("AMO_CLIENT_ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("AMO_CLIENT_SECRET is required")
	}
	return nil
}

// UpstreamURL returns the real amoCRM host for this account.
func (c *Config) UpstreamURL() string {
	return fmt.Sprintf("https://%s.amocrm.ru", c.Subdomain)
}

// APIBase returns the base URL API calls are issued against. It honors the
// override so the client can point at a local proxy or a test server.
func (c *Config) APIBase() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return c.UpstreamURL()
}
