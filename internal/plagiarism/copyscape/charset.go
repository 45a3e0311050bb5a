package copyscape

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

const DefaultEncoding = "UTF-8"

var ErrUnsupportedEncoding = errors.New("unsupported character encoding")

// lookupEncoding ищет кодировку по IANA-имени (ISO-8859-1, windows-1251...),
// затем по WHATWG-меткам.
func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return unicode.UTF8, nil
	}

	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
}

// символы, которых нет в целевой кодировке, заменяются, а не роняют запрос
func encodeString(enc encoding.Encoding, s string) (string, error) {
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).String(s)
	if err != nil {
		return "", fmt.Errorf("encode text: %w", err)
	}
	return out, nil
}

func decodeBytes(enc encoding.Encoding, b []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return string(out), nil
}

func IsSupportedEncoding(name string) bool {
	_, err := lookupEncoding(name)
	return err == nil
}
