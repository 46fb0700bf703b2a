package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mealboard/internal/app"
	"mealboard/internal/board"
	"mealboard/internal/bot"
	"mealboard/internal/config"
	"mealboard/internal/events"
	"mealboard/internal/logging"

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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := events.NewEventBus()
	subscribeLoadEvents(eventBus, &logger)

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

	// Бот отвечает "загрузка" пока первая загрузка не завершится
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, 2*cfg.Source.Timeout)
		defer cancel()
		if err := session.Load(loadCtx); err != nil && !errors.Is(err, board.ErrLoadInProgress) {
			logger.Warn().Err(err).Msg("initial load failed")
		}
	}()

	return startBot(ctx, cfg, session, &logger)
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
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
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

func subscribeLoadEvents(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.EventLoadFailed, func(e *events.Event) error {
		var payload events.LoadEventPayload
		if err := e.Decode(&payload); err != nil {
			return err
		}
		logger.Warn().
			Str("source", payload.Source).
			Int("attempts", payload.Attempt).
			Str("error", payload.Error).
			Msg("bookings unavailable, waiting for /reload")
		return nil
	})
}

func startBot(ctx context.Context, cfg *config.Config, session *board.Session, logger *zerolog.Logger) error {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Error().Msg("Задайте токен бота в config.yaml")
		return os.ErrInvalid
	}

	botWrapper, err := bot.NewBotWrapper(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}

	telegramBot := bot.NewBot(botWrapper, session, 2*cfg.Source.Timeout, logging.Component(logger, "bot"))

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)
	return nil
}
