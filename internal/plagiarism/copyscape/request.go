package copyscape

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/google/go-querystring/query"
	"golang.org/x/text/encoding"

	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
)

var (
	ErrMissingCredentials = errors.New("copyscape username and api key are required")
	ErrInvalidOperation   = errors.New("unknown copyscape operation")
	ErrNegativeFull       = errors.New("full comparison count must be non-negative")
)

// Credentials - учетка Copyscape, задается один раз при старте.
type Credentials struct {
	Username string
	APIKey   string
}

func (c Credentials) Validate() error {
	if c.Username == "" || c.APIKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Body - текст для POST-запросов и кодировка, в которой он уходит.
type Body struct {
	Text     string
	Encoding string
}

// Request - собранный запрос к API. URL содержит ключ, в логи его не писать.
type Request struct {
	Method   string
	URL      string
	Body     []byte
	Encoding string

	enc encoding.Encoding
}

// DecodeResponse переводит тело ответа из кодировки запроса в UTF-8.
func (r *Request) DecodeResponse(raw []byte) (string, error) {
	return decodeBytes(r.enc, raw)
}

// параметры API: q - url, e - кодировка, c - full, a - title, i - id, h - handle
type urlSearchParams struct {
	Query string `url:"q"`
	Full  int    `url:"c,omitempty"`
}

type textSearchParams struct {
	Encoding string `url:"e"`
	Full     int    `url:"c,omitempty"`
}

type urlAddParams struct {
	Query string `url:"q"`
	ID    string `url:"i,omitempty"`
}

type textAddParams struct {
	Encoding string `url:"e"`
	Title    string `url:"a,omitempty"`
	ID       string `url:"i,omitempty"`
}

type deleteParams struct {
	Handle string `url:"h"`
}

func paramValues(v interface{}) (url.Values, error) {
	if v == nil {
		return nil, nil
	}
	values, err := query.Values(v)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return values, nil
}

// BuildRequest собирает запрос: u, k, o идут первыми, дальше параметры по алфавиту.
// Все ключи и значения кодируются в кодировке тела (UTF-8, если тела нет).
// POST - только когда передан body.
func BuildRequest(baseURL string, creds Credentials, op plagiarism.Operation, params url.Values, body *Body) (*Request, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if !op.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}

	charset := DefaultEncoding
	if body != nil && body.Encoding != "" {
		charset = body.Encoding
	}
	enc, err := lookupEncoding(charset)
	if err != nil {
		return nil, err
	}

	var qs strings.Builder
	add := func(key, value string) error {
		k, err := encodeString(enc, key)
		if err != nil {
			return err
		}
		v, err := encodeString(enc, value)
		if err != nil {
			return err
		}
		if qs.Len() > 0 {
			qs.WriteByte('&')
		}
		qs.WriteString(url.QueryEscape(k))
		qs.WriteByte('=')
		qs.WriteString(url.QueryEscape(v))
		return nil
	}

	if err := add("u", creds.Username); err != nil {
		return nil, err
	}
	if err := add("k", creds.APIKey); err != nil {
		return nil, err
	}
	if err := add("o", op.String()); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range params[k] {
			if err := add(k, v); err != nil {
				return nil, err
			}
		}
	}

	req := &Request{
		Method:   http.MethodGet,
		URL:      baseURL + "?" + qs.String(),
		Encoding: charset,
		enc:      enc,
	}

	if body != nil {
		data, err := encodeString(enc, body.Text)
		if err != nil {
			return nil, err
		}
		req.Method = http.MethodPost
		req.Body = []byte(data)
	}

	return req, nil
}
