package app

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/config"
	"github.com/ProlificLabs/captrivia-cli/internal/logging"
	"github.com/ProlificLabs/captrivia-cli/internal/metrics"
	"github.com/ProlificLabs/captrivia-cli/internal/session"
	"github.com/ProlificLabs/captrivia-cli/internal/socket"
)

// Application aggregates the client's shared infrastructure: config, logger,
// metrics, the API client, the session registry and the socket dialer.
// Controllers receive their collaborators from here; nothing is global.
type Application struct {
	cfg     *config.App
	logger  zerolog.Logger
	metrics *metrics.Metrics

	API      *api.Client
	Sessions *session.Registry
	Dialer   *socket.Dialer

	metricsSrv *http.Server
}

// New bootstraps logger, metrics, state store, API client and socket dialer.
func New(cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	m := metrics.New()

	store := session.NewStore(cfg.State.File)
	registry := session.NewRegistry(store, logger)
	logger = logger.With().Str("client_id", registry.ClientID()).Logger()

	apiClient, err := api.NewClient(cfg.Backend.BaseURL, api.Options{
		Timeout: cfg.Backend.HTTPTimeout,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return nil, err
	}

	dialer := socket.NewDialer(cfg.Backend.SocketURL, logger, m)

	return &Application{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		API:      apiClient,
		Sessions: registry,
		Dialer:   dialer,
	}, nil
}

// Logger returns the application logger.
func (a *Application) Logger() zerolog.Logger { return a.logger }

// Metrics returns the shared counters.
func (a *Application) Metrics() *metrics.Metrics { return a.metrics }

// Config returns the loaded configuration.
func (a *Application) Config() *config.App { return a.cfg }

// StartMetrics serves /metrics when a listen address is configured. It
// returns immediately; serving happens in the background.
func (a *Application) StartMetrics() {
	if a.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsSrv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}

	go func() {
		a.logger.Info().Str("addr", a.cfg.Metrics.Addr).Msg("metrics listener started")
		if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Warn().Err(err).Msg("metrics listener stopped")
		}
	}()
}

// Close shuts down background infrastructure.
func (a *Application) Close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("metrics shutdown error")
		}
	}
}
