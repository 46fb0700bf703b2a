package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealboard/internal/api"
	"mealboard/internal/app"
	"mealboard/internal/board"
	"mealboard/internal/config"
	"mealboard/internal/events"
	"mealboard/internal/logging"
	"mealboard/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	eventBus := events.NewEventBus()
	metrics.SubscribeLoads(eventBus)

	exporter, closeCache, err := initExporter(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	session, err := initSession(ctx, cfg, eventBus, &logger)
	if err != nil {
		return err
	}

	refresher, err := app.StartRefresher(ctx, cfg, session, &logger)
	if err != nil {
		return err
	}
	if refresher != nil {
		defer refresher.Stop()
	}

	httpServer := api.NewHTTPServer(&cfg.API, api.Options{
		Board:       session,
		Exporter:    exporter,
		DateField:   cfg.Board.DateField,
		LoadTimeout: 2 * cfg.Source.Timeout,
		Metrics:     sharedMetricsPort(cfg),
		Logger:      logging.Component(&logger, "http"),
	})

	startMetrics(ctx, cfg, &logger)

	// Первичная загрузка не блокирует старт сервера
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, 2*cfg.Source.Timeout)
		defer cancel()
		if err := session.Load(loadCtx); err != nil && !errors.Is(err, board.ErrLoadInProgress) {
			logger.Warn().Err(err).Msg("initial load failed")
		}
	}()

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initExporter(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (api.Exporter, func() error, error) {
	if !cfg.ExportConfigured() {
		logger.Info().Msg("export reader not configured, /exec disabled")
		return nil, func() error { return nil }, nil
	}

	loc, err := app.Location(cfg)
	if err != nil {
		return nil, nil, err
	}
	reader, err := app.NewRowReader(ctx, cfg, loc, logger)
	if err != nil {
		logger.Error().Err(err).Str("reader", cfg.Export.Reader).Msg("init export reader")
		return nil, nil, err
	}

	cache, closeCache := app.NewPayloadCache(ctx, cfg, logger)
	logger.Info().Str("reader", cfg.Export.Reader).Msg("export enabled")
	return app.NewAdapter(cfg, reader, cache, logger), closeCache, nil
}

func initSession(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) (*board.Session, error) {
	loc, err := app.Location(cfg)
	if err != nil {
		return nil, err
	}
	src, err := app.NewSource(ctx, cfg, loc, logger)
	if err != nil {
		logger.Error().Err(err).Str("kind", cfg.Source.Kind).Msg("init source")
		return nil, err
	}
	return app.NewSession(cfg, src, bus, logger)
}

// sharedMetricsPort reports whether /metrics is served by the API server itself.
func sharedMetricsPort(cfg *config.Config) bool {
	return cfg.Monitoring.PrometheusEnabled && cfg.Monitoring.PrometheusPort == cfg.API.HTTP.Port
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled || sharedMetricsPort(cfg) {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
