package domain

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxDocumentsPerUser = 100
	MaxTextLength       = 100000
	MaxFullComparisons  = 10
)

type DocumentKind string

const (
	KindURL  DocumentKind = "url"
	KindText DocumentKind = "text"
)

func (k DocumentKind) IsValid() bool {
	switch k {
	case KindURL, KindText:
		return true
	default:
		return false
	}
}

func (k DocumentKind) String() string {
	return string(k)
}

// PrivateDocument - документ, добавленный пользователем в приватный индекс.
// Handle выдает Copyscape, по нему документ потом удаляется.
type PrivateDocument struct {
	ID         int64
	UserID     int64
	Handle     string
	ExternalID string
	Title      string
	Kind       DocumentKind
	URL        string
	CreatedAt  time.Time
}

func (d *PrivateDocument) Validate() error {
	if d.Handle == "" {
		return ErrMissingHandle
	}
	if !d.Kind.IsValid() {
		return ErrInvalidKind
	}
	if d.Kind == KindURL {
		return ValidateURL(d.URL)
	}
	return nil
}

// DisplayName - заголовок, иначе домен, иначе handle.
func (d *PrivateDocument) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	if host := Domain(d.URL); host != "" {
		return host
	}
	return d.Handle
}

// только http/https с валидным хостом
func ValidateURL(raw string) error {
	if raw == "" {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}

	if u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}

func Domain(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(u.Host, "www.")
}
