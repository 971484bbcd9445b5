package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notify-relay/internal/factory"
	"notify-relay/internal/tls"
	"notify-relay/internal/util"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize factory (which loads config and builds the relay)
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()

	// Create HTTP server with configured timeouts
	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      f.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	servers := []*http.Server{server}
	tlsManager := f.TLSManager()
	if tlsManager != nil {
		server.TLSConfig = tlsManager.TLSConfig()
		if challenge := tlsManager.ChallengeHandler(); challenge != nil {
			// HTTP server for ACME challenges and redirects only
			servers = append(servers, &http.Server{
				Addr:              ":80",
				Handler:           challenge,
				ReadHeaderTimeout: cfg.Server.ReadTimeout,
			})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	util.Info("Server starting",
		util.String("environment", cfg.Environment),
		util.String("address", server.Addr),
		util.Bool("tls_enabled", tlsManager != nil),
	)

	if err := run(ctx, tlsManager, servers...); err != nil {
		util.Error("Server exited with error", util.ErrorField(err))
		f.Close()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts every server down within
// shutdownTimeout. The first server is the API; it serves TLS when
// tlsManager is set.
func run(ctx context.Context, tlsManager *tls.Manager, servers ...*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	for i, srv := range servers {
		srv := srv
		secure := i == 0 && tlsManager != nil
		g.Go(func() error {
			var err error
			if secure {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	if tlsManager != nil {
		g.Go(func() error {
			reloadCertificates(gctx, tlsManager)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		util.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				util.Error("Failed to shutdown server gracefully", util.String("address", srv.Addr), util.ErrorField(err))
				errs = append(errs, err)
			}
		}
		util.Info("Server shutdown completed")
		return errors.Join(errs...)
	})

	return g.Wait()
}

// reloadCertificates re-reads certificate files on SIGHUP until ctx ends.
func reloadCertificates(ctx context.Context, m *tls.Manager) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := m.Reload(); err != nil {
				util.Error("Failed to reload TLS certificate", util.ErrorField(err))
			}
		}
	}
}
