package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
	"github.com/kitbuilder587/copyscape-bot/internal/metrics"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
	"github.com/kitbuilder587/copyscape-bot/internal/ratelimit"
	"github.com/kitbuilder587/copyscape-bot/internal/render"
	"github.com/kitbuilder587/copyscape-bot/internal/service"
)

const (
	frontendName    = "web"
	shutdownTimeout = 10 * time.Second
)

type Config struct {
	Addr              string
	RunExamples       bool
	RequestsPerMinute int
}

type Server struct {
	cfg          Config
	router       *gin.Engine
	checker      plagiarism.Checker
	checkService service.CheckService
	limiter      *ratelimit.Limiter[string]
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// gatherer нужен для /metrics; nil - глобальный реестр.
func NewServer(cfg Config, checker plagiarism.Checker, checkSvc service.CheckService, logger *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:          cfg,
		router:       gin.New(),
		checker:      checker,
		checkService: checkSvc,
		limiter: ratelimit.New[string](ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		logger:  logger,
		metrics: m,
	}

	s.router.Use(gin.Recovery(), s.requestLogger())

	metricsHandler := metrics.Handler()
	if gatherer != nil {
		metricsHandler = metrics.HandlerFor(gatherer)
	}
	s.router.GET("/metrics", gin.WrapH(metricsHandler))

	limited := s.router.Group("/", s.rateLimit())
	limited.GET("/", s.handleExamples)
	limited.GET("/api/balance", s.handleBalance)
	limited.GET("/api/search", s.handleSearch)
	limited.POST("/api/search", s.handleSearch)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает Addr до отмены ctx, потом мягко останавливается.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.limiter.Run(ctx, 0)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return ctx.Err()
}

// handleExamples - демо-страница; без RUN_EXAMPLES отдается пустой HTML.
func (s *Server) handleExamples(c *gin.Context) {
	page := ""
	if s.cfg.RunExamples {
		page = RunExamples(c.Request.Context(), s.checker)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (s *Server) handleBalance(c *gin.Context) {
	resp, err := s.checkService.Balance(c.Request.Context())
	s.writeResponse(c, resp, err)
}

func (s *Server) handleSearch(c *gin.Context) {
	full := 0
	if raw := c.Query("full"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.String(http.StatusBadRequest, domain.ErrInvalidFull.Error())
			return
		}
		full = n
	}

	scope := domain.SearchScope(c.DefaultQuery("scope", string(domain.ScopeInternet)))

	req := domain.CheckRequest{
		URL:      c.Query("url"),
		Text:     c.PostForm("text"),
		Encoding: c.PostForm("encoding"),
		Scope:    scope,
		Full:     full,
	}

	resp, err := s.checkService.Check(c.Request.Context(), req)
	s.writeResponse(c, resp, err)
}

// writeResponse отдает дерево текстом. Ошибка API внутри XML - тоже ответ, 200.
func (s *Server) writeResponse(c *gin.Context, resp *plagiarism.Response, err error) {
	if resp != nil {
		c.String(http.StatusOK, render.Tree(resp.Root))
		return
	}
	c.String(statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoResult):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrEmptyText),
		errors.Is(err, domain.ErrTextTooLong),
		errors.Is(err, domain.ErrInvalidFull),
		errors.Is(err, domain.ErrInvalidScope),
		errors.Is(err, domain.ErrAmbiguousRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			if s.metrics != nil {
				s.metrics.RecordRateLimitHit(frontendName)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if s.metrics != nil {
			s.metrics.IncRequestsInFlight()
		}

		c.Next()

		status := c.Writer.Status()
		duration := time.Since(start)
		if s.metrics != nil {
			s.metrics.DecRequestsInFlight()
			s.metrics.RecordRequest(frontendName, strconv.Itoa(status), duration)
		}

		// query не логируется: в нем может быть проверяемый URL пользователя
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		)
	}
}
