package copyscape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/copyscape-bot/internal/metrics"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
)

const (
	DefaultBaseURL        = "https://www.copyscape.com/api/"
	DefaultConnectTimeout = 5 * time.Second

	maxResponseSize = 16 << 20
)

type Config struct {
	BaseURL        string
	Credentials    Credentials
	ConnectTimeout time.Duration
	// DefaultEncoding подставляется, когда вызов не указал кодировку текста.
	DefaultEncoding string

	// Transport подменяется в тестах; по умолчанию - одно соединение на вызов.
	Transport http.RoundTripper
}

type Client struct {
	baseURL         string
	creds           Credentials
	defaultEncoding string
	client          *http.Client
	logger          *zap.Logger
	metrics         *metrics.Metrics
}

var _ plagiarism.Checker = (*Client)(nil)

func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if strings.TrimSpace(cfg.DefaultEncoding) == "" {
		cfg.DefaultEncoding = DefaultEncoding
	}

	transport := cfg.Transport
	if transport == nil {
		transport = newTransport(cfg.ConnectTimeout)
	}

	return &Client{
		baseURL:         cfg.BaseURL,
		creds:           cfg.Credentials,
		defaultEncoding: cfg.DefaultEncoding,
		client:          &http.Client{Transport: transport},
		logger:          logger,
		metrics:         m,
	}
}

// newTransport - без пула: каждое соединение закрывается после ответа.
func newTransport(connectTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
		DisableKeepAlives:   true,
	}
}

func (c *Client) URLSearchInternet(ctx context.Context, u string, full int) (*plagiarism.Response, error) {
	return c.urlSearch(ctx, plagiarism.OpInternetSearch, u, full)
}

func (c *Client) TextSearchInternet(ctx context.Context, text, encoding string, full int) (*plagiarism.Response, error) {
	return c.textSearch(ctx, plagiarism.OpInternetSearch, text, encoding, full)
}

func (c *Client) CheckBalance(ctx context.Context) (*plagiarism.Response, error) {
	return c.call(ctx, plagiarism.OpBalance, nil, nil)
}

func (c *Client) URLSearchPrivate(ctx context.Context, u string, full int) (*plagiarism.Response, error) {
	return c.urlSearch(ctx, plagiarism.OpPrivateSearch, u, full)
}

func (c *Client) URLSearchInternetAndPrivate(ctx context.Context, u string, full int) (*plagiarism.Response, error) {
	return c.urlSearch(ctx, plagiarism.OpCombinedSearch, u, full)
}

func (c *Client) TextSearchPrivate(ctx context.Context, text, encoding string, full int) (*plagiarism.Response, error) {
	return c.textSearch(ctx, plagiarism.OpPrivateSearch, text, encoding, full)
}

func (c *Client) TextSearchInternetAndPrivate(ctx context.Context, text, encoding string, full int) (*plagiarism.Response, error) {
	return c.textSearch(ctx, plagiarism.OpCombinedSearch, text, encoding, full)
}

func (c *Client) URLAddToPrivate(ctx context.Context, u, id string) (*plagiarism.Response, error) {
	return c.call(ctx, plagiarism.OpPrivateAdd, urlAddParams{Query: u, ID: id}, nil)
}

func (c *Client) TextAddToPrivate(ctx context.Context, text, encoding, title, id string) (*plagiarism.Response, error) {
	encoding = c.normalizeEncoding(encoding)
	params := textAddParams{Encoding: encoding, Title: title, ID: id}
	return c.call(ctx, plagiarism.OpPrivateAdd, params, &Body{Text: text, Encoding: encoding})
}

func (c *Client) DeleteFromPrivate(ctx context.Context, handle string) (*plagiarism.Response, error) {
	return c.call(ctx, plagiarism.OpPrivateDelete, deleteParams{Handle: handle}, nil)
}

func (c *Client) urlSearch(ctx context.Context, op plagiarism.Operation, u string, full int) (*plagiarism.Response, error) {
	if full < 0 {
		return nil, c.fail(op, ErrNegativeFull, time.Now())
	}
	return c.call(ctx, op, urlSearchParams{Query: u, Full: full}, nil)
}

func (c *Client) textSearch(ctx context.Context, op plagiarism.Operation, text, encoding string, full int) (*plagiarism.Response, error) {
	if full < 0 {
		return nil, c.fail(op, ErrNegativeFull, time.Now())
	}
	encoding = c.normalizeEncoding(encoding)
	params := textSearchParams{Encoding: encoding, Full: full}
	return c.call(ctx, op, params, &Body{Text: text, Encoding: encoding})
}

// call - один запрос к API. Любой сбой до разобранного дерева сводится к ErrNoResult,
// причина уходит в лог. Ошибка API внутри XML - это нормальный ответ.
func (c *Client) call(ctx context.Context, op plagiarism.Operation, params interface{}, body *Body) (*plagiarism.Response, error) {
	start := time.Now()

	values, err := paramValues(params)
	if err != nil {
		return nil, c.fail(op, err, start)
	}

	resp, err := c.do(ctx, op, values, body)
	if err != nil {
		return nil, c.fail(op, err, start)
	}

	status := "ok"
	if msg, ok := resp.APIError(); ok {
		status = "api_error"
		c.logger.Info("copyscape api returned error",
			zap.String("operation", op.String()),
			zap.String("error", msg),
		)
	}
	c.record(op, status, start)

	c.logger.Debug("copyscape call completed",
		zap.String("operation", op.String()),
		zap.Duration("duration", time.Since(start)),
	)

	return resp, nil
}

func (c *Client) do(ctx context.Context, op plagiarism.Operation, params url.Values, body *Body) (*plagiarism.Response, error) {
	req, err := BuildRequest(c.baseURL, c.creds, op, params, body)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if req.Body != nil {
		reqBody = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", stripURL(err))
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", stripURL(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	text, err := req.DecodeResponse(raw)
	if err != nil {
		return nil, err
	}

	root, err := plagiarism.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &plagiarism.Response{Operation: op, Root: root}, nil
}

func (c *Client) fail(op plagiarism.Operation, err error, start time.Time) error {
	c.logger.Warn("copyscape call failed",
		zap.String("operation", op.String()),
		zap.Error(err),
	)
	c.record(op, "no_result", start)
	return fmt.Errorf("%w: %v", plagiarism.ErrNoResult, err)
}

func (c *Client) record(op plagiarism.Operation, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordAPICall(op.String(), status, time.Since(start))
	}
}

func (c *Client) normalizeEncoding(encoding string) string {
	if strings.TrimSpace(encoding) == "" {
		return c.defaultEncoding
	}
	return encoding
}

// url.Error печатает полный URL вместе с ключом API
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
