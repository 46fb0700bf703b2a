// Package app builds the board components described by a config.Config.
package app

import (
	"context"
	"fmt"
	"time"

	"mealboard/internal/board"
	"mealboard/internal/calendar"
	"mealboard/internal/config"
	"mealboard/internal/domain"
	"mealboard/internal/export"
	"mealboard/internal/google"
	"mealboard/internal/logging"
	"mealboard/internal/repository"
	"mealboard/internal/source"
	"mealboard/internal/workbook"
	"mealboard/internal/worker"

	"github.com/rs/zerolog"
)

// Location loads the board's target timezone.
func Location(cfg *config.Config) (*time.Location, error) {
	return calendar.LoadLocation(cfg.Board.Timezone)
}

// Columns converts the configured column layout.
func Columns(cfg *config.Config) export.Columns {
	ts, name, date := cfg.Export.Columns.Indexes()
	return export.Columns{Timestamp: ts, Name: name, BookingDate: date}
}

// NewRowReader opens the table the export adapter reads from.
func NewRowReader(ctx context.Context, cfg *config.Config, loc *time.Location, logger *zerolog.Logger) (domain.RowReader, error) {
	dates := Columns(cfg).DateIndexes()
	l := logging.Component(logger, "reader")

	switch cfg.Export.Reader {
	case config.ReaderSheets:
		reader, err := google.NewSheetsReader(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.SpreadsheetID, cfg.Google.Range)
		if err != nil {
			return nil, err
		}
		if err := reader.TestConnection(ctx); err != nil {
			if email, emailErr := google.GetServiceAccountEmail(cfg.Google.GoogleCredentialsFile); emailErr == nil {
				l.Error().Str("service_account", email).Msg("share the spreadsheet with this account")
			}
			return nil, err
		}
		return reader.WithDates(dates, loc).WithLogger(l), nil
	case config.ReaderWorkbook:
		return workbook.NewReader(cfg.Workbook.Path, cfg.Workbook.Sheet).WithDates(dates, loc).WithLogger(l), nil
	default:
		return nil, fmt.Errorf("unknown export reader %q", cfg.Export.Reader)
	}
}

// NewAdapter builds the export adapter over reader. cache may be nil.
func NewAdapter(cfg *config.Config, reader domain.RowReader, cache domain.PayloadCache, logger *zerolog.Logger) *export.Adapter {
	return export.NewAdapter(reader, export.Options{
		Columns:    Columns(cfg),
		HeaderRows: cfg.Export.Headers(),
		DateField:  cfg.Board.DateField,
		Cache:      cache,
		CacheTTL:   cfg.Export.CacheTTL,
		Logger:     logging.Component(logger, "export"),
	})
}

// NewPayloadCache returns a Redis cache with in-memory failover when Redis is
// enabled and reachable, otherwise a memory cache. The returned func releases
// the Redis connection.
func NewPayloadCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.PayloadCache, func() error) {
	memory := repository.NewMemoryPayloadCache()
	noop := func() error { return nil }
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return memory, noop
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with memory cache")
		_ = repository.Close(client)
		return memory, noop
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	redisCache := repository.NewRedisPayloadCache(client, cfg.Redis.Prefix)
	cache := repository.NewFailoverPayloadCache(redisCache, memory, logging.Component(logger, "cache"))
	return cache, func() error { return repository.Close(client) }
}

// NewSource builds the transport the board session fetches through.
func NewSource(ctx context.Context, cfg *config.Config, loc *time.Location, logger *zerolog.Logger) (board.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceHTTP:
		return source.NewHTTP(cfg.Source.URL, cfg.Board.DateField, cfg.Source.Timeout), nil
	case config.SourceCallback:
		return source.NewCallback(cfg.Source.URL, cfg.Source.Callback, cfg.Board.DateField, cfg.Source.Timeout), nil
	case config.SourceTable:
		reader, err := NewRowReader(ctx, cfg, loc, logger)
		if err != nil {
			return nil, err
		}
		return source.NewTable(NewAdapter(cfg, reader, nil, logger)), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// NewSession builds a board session over src.
func NewSession(cfg *config.Config, src board.Source, publisher domain.EventPublisher, logger *zerolog.Logger) (*board.Session, error) {
	loc, err := Location(cfg)
	if err != nil {
		return nil, err
	}
	order, err := board.ParseOrder(cfg.Board.Order)
	if err != nil {
		return nil, err
	}

	opts := []board.Option{
		board.WithLocation(loc),
		board.WithOrder(order),
		board.WithRetryPolicy(worker.SingleRetry(cfg.Board.RetryDelay)),
		board.WithLogger(logging.Component(logger, "session")),
	}
	if publisher != nil {
		opts = append(opts, board.WithPublisher(publisher))
	}
	return board.NewSession(src, opts...), nil
}

// StartRefresher schedules periodic reloads when board.refresh is set.
func StartRefresher(ctx context.Context, cfg *config.Config, loader worker.Loader, logger *zerolog.Logger) (*worker.Refresher, error) {
	if cfg.Board.Refresh == "" {
		return nil, nil
	}
	loc, err := Location(cfg)
	if err != nil {
		return nil, err
	}
	refresher, err := worker.NewRefresher(loader, cfg.Board.Refresh, loc, 2*cfg.Source.Timeout, logging.Component(logger, "refresher"))
	if err != nil {
		return nil, err
	}
	refresher.Start(ctx)
	return refresher, nil
}
