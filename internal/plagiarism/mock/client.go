package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
)

type Call struct {
	Operation plagiarism.Operation
	URL       string
	Text      string
	Encoding  string
	Full      int
	Title     string
	ID        string
	Handle    string
}

type Client struct {
	Responses map[plagiarism.Operation]*plagiarism.Response
	Error     error
	Delay     time.Duration

	CallCount int
	LastCall  Call
	AllCalls  []Call

	mu sync.Mutex
}

var _ plagiarism.Checker = (*Client)(nil)

func New() *Client {
	return &Client{
		Responses: make(map[plagiarism.Operation]*plagiarism.Response),
	}
}

// WithXML задает ответ для операции; невалидный XML - паника, это тестовый код.
func (c *Client) WithXML(op plagiarism.Operation, xml string) *Client {
	root, err := plagiarism.Parse(strings.NewReader(xml))
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.Responses[op] = &plagiarism.Response{Operation: op, Root: root}
	c.mu.Unlock()
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) URLSearchInternet(ctx context.Context, url string, full int) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpInternetSearch, URL: url, Full: full})
}

func (c *Client) TextSearchInternet(ctx context.Context, text, encoding string, full int) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpInternetSearch, Text: text, Encoding: encoding, Full: full})
}

func (c *Client) CheckBalance(ctx context.Context) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpBalance})
}

func (c *Client) URLSearchPrivate(ctx context.Context, url string, full int) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpPrivateSearch, URL: url, Full: full})
}

func (c *Client) URLSearchInternetAndPrivate(ctx context.Context, url string, full int) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpCombinedSearch, URL: url, Full: full})
}

func (c *Client) TextSearchPrivate(ctx context.Context, text, encoding string, full int) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpPrivateSearch, Text: text, Encoding: encoding, Full: full})
}

func (c *Client) TextSearchInternetAndPrivate(ctx context.Context, text, encoding string, full int) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpCombinedSearch, Text: text, Encoding: encoding, Full: full})
}

func (c *Client) URLAddToPrivate(ctx context.Context, url, id string) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpPrivateAdd, URL: url, ID: id})
}

func (c *Client) TextAddToPrivate(ctx context.Context, text, encoding, title, id string) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpPrivateAdd, Text: text, Encoding: encoding, Title: title, ID: id})
}

func (c *Client) DeleteFromPrivate(ctx context.Context, handle string) (*plagiarism.Response, error) {
	return c.handle(ctx, Call{Operation: plagiarism.OpPrivateDelete, Handle: handle})
}

func (c *Client) handle(ctx context.Context, call Call) (*plagiarism.Response, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastCall = call
	c.AllCalls = append(c.AllCalls, call)
	delay := c.Delay
	err := c.Error
	resp := c.Responses[call.Operation]
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	if resp == nil {
		return &plagiarism.Response{
			Operation: call.Operation,
			Root:      &plagiarism.Node{Name: "response"},
		}, nil
	}
	return resp, nil
}

func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.AllCalls))
	copy(out, c.AllCalls)
	return out
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastCall = Call{}
	c.AllCalls = nil
}
