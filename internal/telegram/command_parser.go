package telegram

import (
	"strconv"
	"strings"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
)

// Текст из Telegram всегда в UTF-8.
const messageEncoding = "UTF-8"

// ParseCheckCommand разбирает аргументы /check, /checkp, /checkall.
// "URL [full]" - проверка страницы, все остальное - проверка текста.
func ParseCheckCommand(args string, scope domain.SearchScope) (domain.CheckRequest, error) {
	req := domain.CheckRequest{Scope: scope, Encoding: messageEncoding}

	args = strings.TrimSpace(args)
	if args == "" {
		return req, domain.ErrAmbiguousRequest
	}

	fields := strings.Fields(args)
	if !looksLikeURL(fields[0]) {
		req.Text = args
		return req, nil
	}

	req.URL = fields[0]
	switch len(fields) {
	case 1:
	case 2:
		full, err := strconv.Atoi(fields[1])
		if err != nil {
			return req, domain.ErrInvalidFull
		}
		req.Full = full
	default:
		return req, domain.ErrAmbiguousRequest
	}

	return req, nil
}

// ParseAddTextCommand: "/addtext заголовок | текст". Без разделителя заголовка нет.
func ParseAddTextCommand(args string) (title, text string) {
	args = strings.TrimSpace(args)
	before, after, found := strings.Cut(args, "|")
	if !found {
		return "", args
	}
	return normalizeSpaces(before), strings.TrimSpace(after)
}

// ParseDocumentNumber - номер документа из /del, считается с 1
func ParseDocumentNumber(args string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 {
		return 0, domain.ErrDocumentNotFound
	}
	return n, nil
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
