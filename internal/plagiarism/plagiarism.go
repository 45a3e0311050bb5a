package plagiarism

import (
	"context"
	"errors"
)

// ErrNoResult - вызов не дал разбираемого ответа (сеть, таймаут, битый XML).
// Ошибки самого API сюда не попадают, они приходят внутри Response.
var ErrNoResult = errors.New("no result")

type Operation string

const (
	OpInternetSearch Operation = "csearch"
	OpPrivateSearch  Operation = "psearch"
	OpCombinedSearch Operation = "cpsearch"
	OpBalance        Operation = "balance"
	OpPrivateAdd     Operation = "pindexadd"
	OpPrivateDelete  Operation = "pindexdel"
)

func (o Operation) IsValid() bool {
	switch o {
	case OpInternetSearch, OpPrivateSearch, OpCombinedSearch, OpBalance, OpPrivateAdd, OpPrivateDelete:
		return true
	}
	return false
}

func (o Operation) String() string {
	return string(o)
}

// Checker - клиент Copyscape Premium API.
// full - сколько первых результатов вернуть с полным сравнением, 0 - без сравнения.
// Пустые id и title считаются неуказанными.
type Checker interface {
	URLSearchInternet(ctx context.Context, url string, full int) (*Response, error)
	TextSearchInternet(ctx context.Context, text, encoding string, full int) (*Response, error)
	CheckBalance(ctx context.Context) (*Response, error)

	URLSearchPrivate(ctx context.Context, url string, full int) (*Response, error)
	URLSearchInternetAndPrivate(ctx context.Context, url string, full int) (*Response, error)
	TextSearchPrivate(ctx context.Context, text, encoding string, full int) (*Response, error)
	TextSearchInternetAndPrivate(ctx context.Context, text, encoding string, full int) (*Response, error)

	URLAddToPrivate(ctx context.Context, url, id string) (*Response, error)
	TextAddToPrivate(ctx context.Context, text, encoding, title, id string) (*Response, error)
	DeleteFromPrivate(ctx context.Context, handle string) (*Response, error)
}

type Response struct {
	Operation Operation
	Root      *Node
}

// APIError возвращает текст элемента error, если API вернул ошибку.
func (r *Response) APIError() (string, bool) {
	if r == nil {
		return "", false
	}
	n := r.Root.Find("error")
	if n == nil {
		return "", false
	}
	return n.TextContent(), true
}

// Value - текст первого элемента с таким именем (handle, count, value...).
func (r *Response) Value(name string) string {
	if r == nil {
		return ""
	}
	return r.Root.Find(name).TextContent()
}
