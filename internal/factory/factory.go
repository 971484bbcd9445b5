package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notify-relay/internal/client"
	"notify-relay/internal/config"
	"notify-relay/internal/handler"
	"notify-relay/internal/service"
	"notify-relay/internal/tls"
	"notify-relay/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	location   *time.Location
	tlsManager *tls.Manager

	gotifyClient *client.GotifyClient

	registry     *prometheus.Registry
	metrics      *handler.RelayMetrics
	relayService *service.RelayService
	relayHandler *handler.RelayHandler

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory loads configuration from the environment and builds the relay.
func NewFactory() (*Factory, error) {
	return New(config.LoadConfig())
}

// New builds every dependency from cfg.
func New(cfg *config.Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format, cfg.ServiceName)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Relay.Timezone, err)
	}

	f := &Factory{
		config:   cfg,
		location: loc,
		closed:   make(chan struct{}),
	}

	if cfg.TLSEnabled() {
		if f.tlsManager, err = tls.NewManager(&cfg.Server, cfg.Environment); err != nil {
			return nil, fmt.Errorf("failed to initialize TLS: %w", err)
		}
	}

	f.initializeClients()
	f.initializeServices()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.TLSEnabled()),
		util.Bool("default_destination", cfg.Gotify.URL != "" && cfg.Gotify.Token != ""),
		util.Bool("shared_secret", cfg.Relay.SharedSecret != ""),
		util.String("timezone", loc.String()),
	)

	return f, nil
}

// initializeClients creates the Gotify client. An unhealthy default
// destination is logged but does not stop startup.
func (f *Factory) initializeClients() {
	f.gotifyClient = client.NewGotifyClient(util.Get(), client.WithTimeout(f.config.Gotify.Timeout))

	if f.config.Gotify.URL == "" {
		util.Info("No default Gotify destination configured - requests must pass url and token")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.config.Gotify.Timeout)
	defer cancel()
	if err := f.gotifyClient.HealthCheck(ctx, f.config.Gotify.URL); err != nil {
		util.Warn("Gotify health check failed - proceeding anyway",
			util.String("url", f.config.Gotify.URL),
			util.ErrorField(err),
		)
		return
	}
	util.Info("Gotify client initialized and healthy",
		util.String("url", f.config.Gotify.URL),
		util.Secret("token", f.config.Gotify.Token),
	)
}

func (f *Factory) initializeServices() {
	f.registry = prometheus.NewRegistry()
	f.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f.metrics = handler.NewRelayMetrics(f.registry)

	f.relayService = service.NewRelayService(f.gotifyClient, f.location, util.Get())

	defaults := client.Destination{URL: f.config.Gotify.URL, Token: f.config.Gotify.Token}
	f.relayHandler = handler.NewRelayHandler(f.relayService, defaults, f.config.Relay.SharedSecret, f.metrics, util.Get())
}

// Router returns the HTTP handler serving every route.
func (f *Factory) Router() chi.Router {
	return handler.NewRouter(f.relayHandler, f.registry, f.config.ServiceName, util.Get())
}

// Close releases idle connections and flushes the logger. It is safe to
// call more than once.
func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.gotifyClient != nil {
			f.gotifyClient.Close()
			util.Info("Gotify client closed")
		}

		util.Info("Factory shutdown completed")
		util.Sync()
	})

	return nil
}

// WaitForClose blocks until Close has been called.
func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

// TLSManager is nil when the server runs plain HTTP.
func (f *Factory) TLSManager() *tls.Manager {
	return f.tlsManager
}

func (f *Factory) RelayService() *service.RelayService {
	return f.relayService
}

func (f *Factory) Metrics() *handler.RelayMetrics {
	return f.metrics
}
