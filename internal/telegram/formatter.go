package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
	"github.com/kitbuilder587/copyscape-bot/internal/render"
)

const (
	maxMessageLength = 4096 // лимит телеграма

	// заголовок и имя документа приходят от пользователя
	maxTitleRunes  = 256
	maxNameRunes   = 100
	minChunkLength = 256

	preOpen  = "<pre>"
	preClose = "</pre>"
)

// FormatResponse - заголовок и дерево ответа в блоках <pre>, нарезанное под лимит.
// Каждая часть - самостоятельный валидный HTML.
func FormatResponse(title string, resp *plagiarism.Response, maxLen int) []string {
	header := "<b>" + html.EscapeString(shorten(title, maxTitleRunes)) + "</b>"
	if resp == nil || resp.Root == nil {
		return []string{header}
	}

	body := telegramSafe(strings.TrimPrefix(render.Tree(resp.Root), "\n"))
	limit := maxLen - len(header) - len(preOpen) - len(preClose) - 1
	if limit < minChunkLength {
		limit = minChunkLength
	}

	chunks := SplitMessage(body, limit)
	messages := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		msg := preOpen + chunk + preClose
		if i == 0 {
			msg = header + "\n" + msg
		}
		messages = append(messages, msg)
	}
	return messages
}

func FormatDocumentsList(docs []domain.PrivateDocument) string {
	var sb strings.Builder
	sb.WriteString("<b>Документы в приватном индексе:</b>\n\n")

	for i, d := range docs {
		kind := "текст"
		if d.Kind == domain.KindURL {
			kind = "URL"
		}
		sb.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, html.EscapeString(shorten(d.DisplayName(), maxNameRunes)), kind))
		if d.URL != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", html.EscapeString(truncateURL(d.URL, 50))))
		}
		sb.WriteString(fmt.Sprintf("   <code>%s</code>\n\n", html.EscapeString(d.Handle)))
	}

	sb.WriteString(fmt.Sprintf("Всего: %d из %d", len(docs), domain.MaxDocumentsPerUser))
	return sb.String()
}

// telegramSafe экранирует & для HTML-режима Telegram, не трогая
// числовые ссылки &#N;, которые оставляет render.
func telegramSafe(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !isNumericRef(s[i:]) {
			sb.WriteString("&amp;")
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isNumericRef(s string) bool {
	if len(s) < 4 || s[0] != '&' || s[1] != '#' {
		return false
	}
	j := 2
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	return j > 2 && j < len(s) && s[j] == ';'
}

func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// ищем пробел или перевод строки, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// внутри тега - ищем конец
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return entityBoundary(text, maxLen)
}

// entityBoundary сдвигает точку разреза назад, если она попала внутрь &#N;
func entityBoundary(text string, pos int) int {
	for i := pos - 1; i >= 0 && i > pos-12; i-- {
		if text[i] == ';' {
			return pos
		}
		if text[i] == '&' {
			if i > 0 {
				return i
			}
			return pos
		}
	}
	return pos
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}

func truncateURL(url string, maxLen int) string {
	if utf8.RuneCountInString(url) <= maxLen {
		return url
	}
	return string([]rune(url)[:maxLen-3]) + "..."
}

// shorten режет по рунам, чтобы не разорвать UTF-8.
func shorten(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes-1]) + "…"
}
