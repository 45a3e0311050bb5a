package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
)

func TestFormatResponse(t *testing.T) {
	resp := &plagiarism.Response{
		Operation: plagiarism.OpBalance,
		Root: &plagiarism.Node{Name: "response", Children: []*plagiarism.Node{
			{Name: "value", Children: []*plagiarism.Node{{Name: plagiarism.TextNodeName, Text: "<12 & 5>"}}},
		}},
	}

	parts := FormatResponse("Баланс <аккаунта>", resp, maxMessageLength)
	if len(parts) != 1 {
		t.Fatalf("FormatResponse() parts = %d, want 1", len(parts))
	}

	want := "<b>Баланс &lt;аккаунта&gt;</b>\n<pre>response: \n\tvalue: &#60;12 &amp; 5&#62;</pre>"
	if parts[0] != want {
		t.Errorf("FormatResponse() =\n%q\nwant\n%q", parts[0], want)
	}
}

func TestFormatResponse_NilResponse(t *testing.T) {
	parts := FormatResponse("Пусто", nil, maxMessageLength)
	if len(parts) != 1 || parts[0] != "<b>Пусто</b>" {
		t.Errorf("FormatResponse(nil) = %q", parts)
	}
}

func TestFormatResponse_SplitsLongTree(t *testing.T) {
	root := &plagiarism.Node{Name: "response"}
	for i := 0; i < 400; i++ {
		root.Children = append(root.Children, &plagiarism.Node{
			Name:     "result",
			Children: []*plagiarism.Node{{Name: plagiarism.TextNodeName, Text: "Привет мир"}},
		})
	}
	resp := &plagiarism.Response{Operation: plagiarism.OpInternetSearch, Root: root}

	parts := FormatResponse("Результаты", resp, 1000)
	if len(parts) < 2 {
		t.Fatalf("FormatResponse() parts = %d, want several", len(parts))
	}

	for i, p := range parts {
		if len(p) > 1000 {
			t.Errorf("part %d length = %d, exceeds limit", i, len(p))
		}
		if !strings.HasSuffix(p, "</pre>") || strings.Count(p, "<pre>") != 1 {
			t.Errorf("part %d is not a closed pre block: %q", i, p[max(0, len(p)-40):])
		}
		body := p[strings.Index(p, "<pre>")+len("<pre>") : len(p)-len("</pre>")]
		if strings.Count(body, "&") != strings.Count(body, ";") {
			t.Errorf("part %d splits a character reference", i)
		}
	}
	if !strings.HasPrefix(parts[0], "<b>Результаты</b>") {
		t.Errorf("first part should carry the title")
	}
}

func TestFormatResponse_LongTitle(t *testing.T) {
	resp := &plagiarism.Response{
		Operation: plagiarism.OpPrivateAdd,
		Root: &plagiarism.Node{Name: "response", Children: []*plagiarism.Node{
			{Name: "handle", Children: []*plagiarism.Node{{Name: plagiarism.TextNodeName, Text: "h1"}}},
		}},
	}
	title := "Документ «" + strings.Repeat("я", 2100) + "» добавлен в приватный индекс"

	parts := FormatResponse(title, resp, maxMessageLength)
	if len(parts) != 1 {
		t.Fatalf("FormatResponse() parts = %d, want 1", len(parts))
	}
	if len(parts[0]) > maxMessageLength {
		t.Errorf("part length = %d, exceeds limit", len(parts[0]))
	}
	if !utf8.ValidString(parts[0]) {
		t.Error("part is not valid UTF-8")
	}
	if !strings.Contains(parts[0], "…</b>") || !strings.Contains(parts[0], "handle: h1") {
		t.Errorf("FormatResponse() = %q", parts[0][len(parts[0])-60:])
	}
}

func TestFormatResponse_TinyLimit(t *testing.T) {
	root := &plagiarism.Node{Name: "response"}
	for i := 0; i < 50; i++ {
		root.Children = append(root.Children, &plagiarism.Node{
			Name:     "result",
			Children: []*plagiarism.Node{{Name: plagiarism.TextNodeName, Text: "text"}},
		})
	}

	parts := FormatResponse(strings.Repeat("заголовок ", 20), &plagiarism.Response{Root: root}, 100)
	if len(parts) < 2 {
		t.Fatalf("FormatResponse() parts = %d, want several", len(parts))
	}
	for i, p := range parts {
		if !strings.HasSuffix(p, "</pre>") {
			t.Errorf("part %d is not a closed pre block", i)
		}
	}
}

func TestShorten(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "Декларация", 20, "Декларация"},
		{"exact", "абв", 3, "абв"},
		{"cyrillic", "абвгдеж", 4, "абв…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shorten(tt.in, tt.max); got != tt.want {
				t.Errorf("shorten(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTelegramSafe(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a & b", "a &amp; b"},
		{"&#233;t&#233;", "&#233;t&#233;"},
		{"&#;", "&amp;#;"},
		{"&#12", "&amp;#12"},
		{"trailing &", "trailing &amp;"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := telegramSafe(tt.in); got != tt.want {
			t.Errorf("telegramSafe(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDocumentsList(t *testing.T) {
	docs := []domain.PrivateDocument{
		{Title: "<Declaration>", Handle: "h-1", Kind: domain.KindText},
		{URL: "https://www.example.com/very/long/path/that/goes/on/and/on/forever.html", Handle: "h-2", Kind: domain.KindURL},
	}

	result := FormatDocumentsList(docs)

	if !strings.Contains(result, "1. &lt;Declaration&gt; [текст]") {
		t.Errorf("FormatDocumentsList() should escape title: %q", result)
	}
	if !strings.Contains(result, "2. example.com [URL]") {
		t.Error("FormatDocumentsList() should fall back to domain")
	}
	if !strings.Contains(result, "<code>h-2</code>") {
		t.Error("FormatDocumentsList() should show handles")
	}
	if !strings.Contains(result, "...") {
		t.Error("FormatDocumentsList() should truncate long urls")
	}
	if !strings.HasSuffix(result, "Всего: 2 из 100") {
		t.Errorf("FormatDocumentsList() footer = %q", result[len(result)-30:])
	}
}

func TestEntityBoundary(t *testing.T) {
	text := "abc&#1055;def"
	if got := entityBoundary(text, 6); got != 3 {
		t.Errorf("entityBoundary(inside) = %d, want 3", got)
	}
	if got := entityBoundary(text, 10); got != 10 {
		t.Errorf("entityBoundary(after) = %d, want 10", got)
	}
	if got := entityBoundary("abcdef", 3); got != 3 {
		t.Errorf("entityBoundary(plain) = %d, want 3", got)
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int // number of parts
	}{
		{"short message", "Hello", 100, 1},
		{"exact length", "Hello", 5, 1},
		{"split needed", "Hello World Test", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.maxLen)
			if len(got) != tt.want {
				t.Errorf("SplitMessage() parts = %v, want %v", len(got), tt.want)
			}
		})
	}
}

func TestSplitMessage_HTMLTags(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "link tag",
			text: `Text before <a href="https://example.com/very/long/url">link text</a> text after`,
		},
		{
			name: "bold tag",
			text: `Some text <b>bold text here</b> more text`,
		},
		{
			name: "multiple tags",
			text: `<b>Title</b>\n<a href="https://example.com">Link</a>\nMore text here`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitMessage(tt.text, 30)

			for i, part := range parts {
				openCount := strings.Count(part, "<")
				closeCount := strings.Count(part, ">")

				if openCount != closeCount {
					t.Errorf("Part %d has unbalanced tags (open=%d, close=%d): %q",
						i, openCount, closeCount, part)
				}
			}
		})
	}
}

func TestIsInsideHTMLTag(t *testing.T) {
	tests := []struct {
		text string
		pos  int
		want bool
	}{
		{`<a href="url">text</a>`, 5, true},   // inside <a href="...">
		{`<a href="url">text</a>`, 15, false}, // in "text"
		{`text <b>bold</b>`, 0, false},        // before any tag
		{`text <b>bold</b>`, 6, true},         // inside <b>
		{`text <b>bold</b>`, 9, false},        // in "bold"
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := isInsideHTMLTag(tt.text, tt.pos)
			if got != tt.want {
				t.Errorf("isInsideHTMLTag(%q, %d) = %v, want %v", tt.text, tt.pos, got, tt.want)
			}
		})
	}
}

func TestTruncateURL(t *testing.T) {
	tests := []struct {
		url    string
		maxLen int
		want   string
	}{
		{"https://example.com", 50, "https://example.com"},
		{"https://example.com/very/long/path", 20, "https://example.c..."},
		{"https://пример.рф/статья/очень-длинная", 20, "https://пример.рф..."},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := truncateURL(tt.url, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateURL() = %v, want %v", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateURL() = %q is not valid UTF-8", got)
			}
		})
	}
}
