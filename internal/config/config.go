package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds runtime configuration for the client.
type App struct {
	Name string `env:"APP_NAME" envDefault:"captrivia-cli"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	Backend Backend
	State   State
	Metrics Metrics
}

// Backend captures how to reach the Captrivia server.
type Backend struct {
	// BaseURL is the HTTP origin of the backend.
	BaseURL string `env:"CAPTRIVIA_BACKEND_URL" envDefault:"http://localhost:8080"`
	// SocketURL is the WebSocket origin. Empty means derive from BaseURL.
	SocketURL   string        `env:"CAPTRIVIA_SOCKET_URL"`
	HTTPTimeout time.Duration `env:"CAPTRIVIA_HTTP_TIMEOUT" envDefault:"10s"`
}

// State configures where local session bookkeeping lives.
type State struct {
	// File is the path of the JSON state file. Empty means the
	// platform config dir is used.
	File string `env:"CAPTRIVIA_STATE_FILE"`
}

// Metrics configures the optional Prometheus listener.
type Metrics struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `env:"CAPTRIVIA_METRICS_ADDR"`
}

// Load parses environment variables into App config.
func Load() (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Backend.SocketURL == "" {
		derived, err := deriveSocketURL(cfg.Backend.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("derive socket url: %w", err)
		}
		cfg.Backend.SocketURL = derived
	}

	if cfg.State.File == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.State.File = filepath.Join(dir, "captrivia", "state.json")
	}

	return cfg, nil
}

// deriveSocketURL rewrites an http(s) origin into its ws(s) counterpart.
func deriveSocketURL(backendURL string) (string, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a socket origin
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return strings.TrimRight(u.String(), "/"), nil
}
