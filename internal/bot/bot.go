package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"mealboard/internal/board"
	"mealboard/internal/domain"
	"mealboard/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Bot answers day queries in Telegram chats from a board session.
type Bot struct {
	tgService   domain.TelegramSender
	session     *board.Session
	loadTimeout time.Duration
	logger      *zerolog.Logger

	wg sync.WaitGroup
}

func NewBot(tgService domain.TelegramSender, session *board.Session, loadTimeout time.Duration, logger *zerolog.Logger) *Bot {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if loadTimeout <= 0 {
		loadTimeout = 30 * time.Second
	}
	return &Bot{
		tgService:   tgService,
		session:     session,
		loadTimeout: loadTimeout,
		logger:      logger,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.tgService.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	requestID := uuid.New().String()
	l := b.logger.With().
		Str("request_id", requestID).
		Int64("chat_id", update.Message.Chat.ID).
		Logger()

	b.withRecovery(&l, func() {
		b.handleMessage(ctx, update.Message, &l)
	})
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message, l *zerolog.Logger) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, l, startMessage)
	case "today":
		b.replyDay(chatID, b.session.Today().Key(), l)
	case "date":
		arg := strings.TrimSpace(msg.CommandArguments())
		if arg == "" {
			b.reply(chatID, l, dateUsageMessage)
			return
		}
		b.replyDay(chatID, arg, l)
	case "reload":
		b.reload(ctx, chatID, l)
	case "":
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return
		}
		b.replyDay(chatID, text, l)
	default:
		b.reply(chatID, l, unknownCommandMessage)
	}
}

func (b *Bot) replyDay(chatID int64, date string, l *zerolog.Logger) {
	view, err := b.session.View(date)
	if err != nil {
		l.Debug().Err(err).Str("date", date).Msg("invalid date")
		b.reply(chatID, l, invalidDateMessage(date))
		return
	}
	metrics.IncView(string(view.State))
	b.reply(chatID, l, formatView(view, b.session.Location()))
}

// reload starts a load in the background and reports its outcome.
func (b *Bot) reload(ctx context.Context, chatID int64, l *zerolog.Logger) {
	if b.session.Loading() {
		b.reply(chatID, l, reloadBusyMessage)
		return
	}
	b.reply(chatID, l, reloadStartedMessage)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		loadCtx, cancel := context.WithTimeout(ctx, b.loadTimeout)
		defer cancel()

		err := b.session.Load(loadCtx)
		switch {
		case err == nil:
			b.reply(chatID, l, reloadDoneMessage(len(b.session.Records())))
		case isBusy(err):
			b.reply(chatID, l, reloadBusyMessage)
		default:
			l.Warn().Err(err).Msg("reload failed")
			b.reply(chatID, l, unavailableMessage)
		}
	}()
}

func (b *Bot) reply(chatID int64, l *zerolog.Logger, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.tgService.Send(msg); err != nil {
		l.Error().Err(err).Msg("send message")
	}
}

func (b *Bot) withRecovery(l *zerolog.Logger, handler func()) {
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}
