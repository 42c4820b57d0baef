package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/bizcache/internal/di"
	"github.com/omarluq/bizcache/internal/version"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bizcache server",
	Long: `Start the HTTP server exposing cache statistics, invalidation, health
and metrics routes, plus the caching gateway when server.upstream_url is set.
Edits to the TTL section of the config file apply without a restart.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, configPath(), debug, nil)
}

// serve runs the server until ctx is canceled. ready, when non-nil,
// receives the bound address once the listener is up.
func serve(ctx context.Context, path string, debugLogging bool, ready chan<- string) error {
	container, err := di.NewContainer(path, di.WithDebug(debugLogging))
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to load config")
		return err
	}

	loggerSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		return shutdownAfter(container, err)
	}
	log.Logger = *loggerSvc.Logger
	zerolog.DefaultContextLogger = loggerSvc.Logger

	srvSvc, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize services")
		return shutdownAfter(container, err)
	}
	srv := srvSvc.Server
	if err := srv.Listen(); err != nil {
		log.Error().Err(err).Msg("failed to bind listener")
		return shutdownAfter(container, err)
	}

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	cfgSvc.StartWatching(ctx)

	if err := container.HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Msg("shared backend not reachable at startup, serving from the local tier until it recovers")
	}

	cacheSvc := di.MustInvoke[*di.CacheService](container)
	log.Info().
		Str("listen", srv.Addr()).
		Str("mode", string(cacheSvc.Facade.Mode())).
		Str("backend_state", cacheSvc.Facade.Snapshot(ctx).BackendState).
		Str("version", version.Short()).
		Msg("starting bizcache")
	if ready != nil {
		ready <- srv.Addr()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	select {
	case err = <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := container.ShutdownWithContext(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")

	return err
}

func shutdownAfter(container *di.Container, err error) error {
	if shutdownErr := container.Shutdown(); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("shutdown error")
	}
	return err
}
