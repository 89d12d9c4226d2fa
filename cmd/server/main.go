package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rah-0/orbit/internal/api"
	"github.com/rah-0/orbit/internal/config"
	"github.com/rah-0/orbit/internal/datasource"
	"github.com/rah-0/orbit/internal/graph"
	"github.com/rah-0/orbit/internal/observability"
	"github.com/rah-0/orbit/internal/storage"
)

// Command line flags
var (
	port       = flag.Int("port", 0, "Port to listen on, overrides server.port")
	configPath = flag.String("config", "", "Path to a config file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := observability.InitLogger("orbit", cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, logger); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func openStore(cfg config.StorageConfig) (storage.UserRepository, error) {
	if cfg.Driver == config.StorageMemory {
		return storage.NewInMemoryRepository(), nil
	}
	return storage.Open(cfg.Path)
}

func run(cfg config.Config, logger zerolog.Logger) error {
	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTel.ServiceName, cfg.OTel.Endpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()
	observability.RegisterMetrics()

	// Initialize the user store
	users, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Storage.Driver, err)
	}
	defer users.Close()

	upstream, err := datasource.NewUpstream(
		&http.Client{Timeout: cfg.Upstream.Timeout},
		cfg.Upstream.BaseURL,
		cfg.Upstream.FanoutLimit,
		logger.With().Str("component", "datasource").Logger(),
	)
	if err != nil {
		return err
	}

	schema, err := graph.NewSchema(cfg.GraphQL.MaxParallelism, logger)
	if err != nil {
		return err
	}

	// Create the API handler and register routes
	handler := api.NewHandler(schema, upstream, users, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: observability.RequestLogger(logger, mux),
	}

	// Create a channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.Server.Port).
			Str("storage", cfg.Storage.Driver).
			Str("upstream", cfg.Upstream.BaseURL).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for termination signal or a listener failure
	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server exited gracefully")
	return nil
}
