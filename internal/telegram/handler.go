package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.bot.Send(msg.Chat.ID, "Отправьте текст или используйте /help.")
		return
	}

	// обычный текст - поиск по интернету
	req := domain.CheckRequest{
		Text:     text,
		Encoding: messageEncoding,
		Scope:    domain.ScopeInternet,
	}
	h.handleCheck(ctx, msg, req, nil)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "balance":
		h.handleBalance(ctx, msg)
	case "check":
		h.handleCheckCommand(ctx, msg, domain.ScopeInternet)
	case "checkp":
		h.handleCheckCommand(ctx, msg, domain.ScopePrivate)
	case "checkall":
		h.handleCheckCommand(ctx, msg, domain.ScopeCombined)
	case "addurl":
		h.handleAddURL(ctx, msg)
	case "addtext":
		h.handleAddText(ctx, msg)
	case "docs":
		h.handleDocs(ctx, msg)
	case "del":
		h.handleDelete(ctx, msg)
	case "last":
		h.handleLast(ctx, msg)
	default:
		h.bot.Send(msg.Chat.ID, "Неизвестная команда. Используйте /help для справки.")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.Send(msg.Chat.ID, "Добро пожаловать! Я проверяю страницы и тексты на плагиат через Copyscape.\n\nИспользуйте /help для просмотра доступных команд.")
}

func (h *Handler) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	helpText := `<b>Доступные команды:</b>

/start - Приветствие
/help - Показать эту справку
/balance - Баланс аккаунта Copyscape
/last - Повторить последний ответ

<b>Проверка:</b>
/check URL [N] - Поиск копий страницы в интернете
/checkp URL [N] - Поиск по приватному индексу
/checkall URL [N] - Интернет и приватный индекс
Вместо URL можно передать текст. N - сколько результатов сравнить полностью (0-10).

<b>Приватный индекс:</b>
/addurl URL - Добавить страницу
/addtext заголовок | текст - Добавить текст
/docs - Список добавленных документов
/del N - Удалить документ по номеру

<b>Как использовать:</b>
Просто отправьте текст, и я найду его копии в интернете.`

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handleBalance(ctx context.Context, msg *tgbotapi.Message) {
	if !h.allow(msg) {
		return
	}
	h.bot.SendTyping(msg.Chat.ID)

	resp, err := h.bot.checkService.Balance(ctx)
	h.reply(msg, "Баланс аккаунта", resp, err)
}

func (h *Handler) handleCheckCommand(ctx context.Context, msg *tgbotapi.Message, scope domain.SearchScope) {
	req, err := ParseCheckCommand(msg.CommandArguments(), scope)
	h.handleCheck(ctx, msg, req, err)
}

func (h *Handler) handleCheck(ctx context.Context, msg *tgbotapi.Message, req domain.CheckRequest, parseErr error) {
	if parseErr != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(parseErr))
		return
	}
	if !h.allow(msg) {
		return
	}
	h.bot.SendTyping(msg.Chat.ID)

	req.UserID = msg.From.ID
	resp, err := h.bot.checkService.Check(ctx, req)
	if err != nil && resp == nil {
		h.bot.logger.Warn("check failed",
			zap.Error(err),
			zap.Int64("user_id", req.UserID),
			zap.String("scope", req.Scope.String()),
		)
	}

	h.reply(msg, checkTitle(req, resp), resp, err)
}

func (h *Handler) handleAddURL(ctx context.Context, msg *tgbotapi.Message) {
	url := strings.TrimSpace(msg.CommandArguments())
	if url == "" {
		h.bot.Send(msg.Chat.ID, "Укажите URL: /addurl https://example.com")
		return
	}
	if !h.allow(msg) {
		return
	}
	h.bot.SendTyping(msg.Chat.ID)

	doc, resp, err := h.bot.checkService.AddURL(ctx, msg.From.ID, url, "")
	h.replyAdded(msg, doc, resp, err)
}

func (h *Handler) handleAddText(ctx context.Context, msg *tgbotapi.Message) {
	title, text := ParseAddTextCommand(msg.CommandArguments())
	if text == "" {
		h.bot.Send(msg.Chat.ID, "Использование: /addtext заголовок | текст")
		return
	}
	if !h.allow(msg) {
		return
	}
	h.bot.SendTyping(msg.Chat.ID)

	doc, resp, err := h.bot.checkService.AddText(ctx, msg.From.ID, title, text, messageEncoding, "")
	h.replyAdded(msg, doc, resp, err)
}

func (h *Handler) handleDocs(ctx context.Context, msg *tgbotapi.Message) {
	docs, err := h.bot.checkService.ListDocuments(ctx, msg.From.ID)
	if err != nil {
		h.bot.logger.Error("failed to list documents", zap.Error(err))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	if len(docs) == 0 {
		h.bot.Send(msg.Chat.ID, "Приватный индекс пуст. Используйте /addurl или /addtext.")
		return
	}

	for _, part := range SplitMessage(FormatDocumentsList(docs), maxMessageLength) {
		h.bot.Send(msg.Chat.ID, part)
	}
}

func (h *Handler) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	n, err := ParseDocumentNumber(msg.CommandArguments())
	if err != nil {
		h.bot.Send(msg.Chat.ID, "Укажите номер документа из /docs: /del 1")
		return
	}
	if !h.allow(msg) {
		return
	}

	doc, resp, err := h.bot.checkService.DeleteDocument(ctx, msg.From.ID, n)
	if err != nil {
		if resp != nil {
			h.reply(msg, "Документ не удален", resp, err)
			return
		}
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.Send(msg.Chat.ID, fmt.Sprintf("Документ «%s» удален из приватного индекса.", html.EscapeString(shorten(doc.DisplayName(), maxNameRunes))))
}

func (h *Handler) handleLast(ctx context.Context, msg *tgbotapi.Message) {
	parts, ok := h.bot.sessions.Get(msg.Chat.ID)
	if !ok {
		h.bot.Send(msg.Chat.ID, "Нет сохраненного ответа.")
		return
	}
	h.sendParts(msg.Chat.ID, parts)
}

func (h *Handler) replyAdded(msg *tgbotapi.Message, doc *domain.PrivateDocument, resp *plagiarism.Response, err error) {
	if err != nil {
		if resp != nil {
			h.reply(msg, "Документ не добавлен", resp, err)
			return
		}
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}
	h.reply(msg, fmt.Sprintf("Документ «%s» добавлен в приватный индекс", shorten(doc.DisplayName(), maxNameRunes)), resp, nil)
}

// reply показывает дерево ответа, если оно есть, даже при ошибке API:
// текст ошибки Copyscape виден в самом дереве.
func (h *Handler) reply(msg *tgbotapi.Message, title string, resp *plagiarism.Response, err error) {
	if resp == nil {
		if err == nil {
			err = domain.ErrNoResult
		}
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	parts := FormatResponse(title, resp, maxMessageLength)
	if h.bot.sessions != nil {
		h.bot.sessions.Set(msg.Chat.ID, parts, h.bot.sessionTTL)
	}
	h.sendParts(msg.Chat.ID, parts)
}

func (h *Handler) sendParts(chatID int64, parts []string) {
	for _, p := range parts {
		if err := h.bot.Send(chatID, p); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func (h *Handler) allow(msg *tgbotapi.Message) bool {
	if h.bot.rateLimiter.Allow(msg.From.ID) {
		return true
	}

	resetTime := h.bot.rateLimiter.ResetTime(msg.From.ID)
	h.bot.logger.Warn("rate limit exceeded",
		zap.Int64("user_id", msg.From.ID),
		zap.Time("reset_at", resetTime),
	)
	h.bot.RecordRateLimitHit()
	h.bot.Send(msg.Chat.ID, "Слишком много запросов. Пожалуйста, подождите минуту.")
	return false
}

func checkTitle(req domain.CheckRequest, resp *plagiarism.Response) string {
	var where string
	switch req.Scope {
	case domain.ScopePrivate:
		where = "в приватном индексе"
	case domain.ScopeCombined:
		where = "в интернете и приватном индексе"
	default:
		where = "в интернете"
	}

	title := "Поиск копий текста " + where
	if !req.IsText() {
		title = "Поиск копий страницы " + where
	}
	if count := resp.Value("count"); count != "" {
		title += " (найдено: " + count + ")"
	}
	return title
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return "Некорректный URL."
	case errors.Is(err, domain.ErrEmptyText):
		return "Пустой текст. Отправьте текст для проверки."
	case errors.Is(err, domain.ErrTextTooLong):
		return fmt.Sprintf("Текст слишком длинный. Максимум %d символов.", domain.MaxTextLength)
	case errors.Is(err, domain.ErrInvalidFull):
		return fmt.Sprintf("Число полных сравнений должно быть от 0 до %d.", domain.MaxFullComparisons)
	case errors.Is(err, domain.ErrAmbiguousRequest):
		return "Укажите URL или текст для проверки."
	case errors.Is(err, domain.ErrNoResult):
		return "Copyscape не ответил. Попробуйте позже."
	case errors.Is(err, domain.ErrAPIError):
		return "Copyscape вернул ошибку."
	case errors.Is(err, domain.ErrMissingHandle):
		return "Copyscape не вернул идентификатор документа."
	case errors.Is(err, domain.ErrDuplicateDocument):
		return "Документ уже добавлен."
	case errors.Is(err, domain.ErrDocumentNotFound):
		return "Документ не найден."
	case errors.Is(err, domain.ErrDocumentLimitReached):
		return fmt.Sprintf("Достигнут лимит документов (%d).", domain.MaxDocumentsPerUser)
	case errors.Is(err, domain.ErrRegistryDisabled):
		return "Приватный индекс недоступен: хранилище не настроено."
	default:
		return "Произошла ошибка. Попробуйте позже."
	}
}
