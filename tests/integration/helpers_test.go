//go:build integration
// +build integration

package integration

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/socket"
)

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseHTTP() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

func baseWS() string {
	if val := os.Getenv("INTEGRATION_WS_URL"); val != "" {
		return val
	}
	u, err := url.Parse(baseHTTP())
	if err != nil {
		return "ws://localhost:8080"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return strings.TrimRight(u.String(), "/")
}

func newAPIClient(t *testing.T) *api.Client {
	t.Helper()

	client, err := api.NewClient(baseHTTP(), api.Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("build api client: %v", err)
	}
	return client
}

func newDialer() *socket.Dialer {
	return socket.NewDialer(baseWS(), zerolog.Nop(), nil)
}
