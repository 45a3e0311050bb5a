package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/copyscape-bot/internal/cache"
	"github.com/kitbuilder587/copyscape-bot/internal/metrics"
	"github.com/kitbuilder587/copyscape-bot/internal/ratelimit"
	"github.com/kitbuilder587/copyscape-bot/internal/service"
)

const frontendName = "telegram"

type BotConfig struct {
	Token             string
	Debug             bool
	RequestsPerMinute int
	// SessionTTL - сколько помнить последний ответ для /last
	SessionTTL time.Duration
}

// Sender - часть BotAPI, которой хватает для ответов; в тестах подменяется.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api          *tgbotapi.BotAPI
	sender       Sender
	checkService service.CheckService
	sessions     cache.Store[int64, []string]
	sessionTTL   time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
	handler      *Handler
	rateLimiter  *ratelimit.Limiter[int64]
	wg           sync.WaitGroup
}

func New(cfg BotConfig, checkSvc service.CheckService, sessions cache.Store[int64, []string], logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(cfg, api, checkSvc, sessions, logger, m)
	bot.api = api

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(cfg BotConfig, sender Sender, checkSvc service.CheckService, sessions cache.Store[int64, []string], logger *zap.Logger, m *metrics.Metrics) *Bot {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	bot := &Bot{
		sender:       sender,
		checkService: checkSvc,
		sessions:     sessions,
		sessionTTL:   ttl,
		logger:       logger,
		metrics:      m,
		rateLimiter: ratelimit.New[int64](ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
	}
	bot.handler = NewHandler(bot)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	go b.rateLimiter.Run(ctx, 0)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()

	if b.metrics != nil {
		b.metrics.IncRequestsInFlight()
		defer b.metrics.DecRequestsInFlight()
	}

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message != nil && update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			if b.metrics != nil {
				b.metrics.RecordRequest(frontendName, "panic", time.Since(startTime))
			}
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)

	if b.metrics != nil {
		b.metrics.RecordRequest(frontendName, "processed", time.Since(startTime))
	}
}

func (b *Bot) Send(chatID int64, text string) error {
	if b.sender == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	_, err := b.sender.Send(msg)
	return err
}

func (b *Bot) SendTyping(chatID int64) {
	if b.sender == nil {
		return
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	b.sender.Send(action)
}

func (b *Bot) RecordRateLimitHit() {
	if b.metrics != nil {
		b.metrics.RecordRateLimitHit(frontendName)
	}
}
