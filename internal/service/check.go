package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
	"github.com/kitbuilder587/copyscape-bot/internal/metrics"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
	"github.com/kitbuilder587/copyscape-bot/internal/repository"
)

// CheckService - сценарии бота и веб-демо поверх клиента Copyscape.
// Ответ с элементом error возвращается вместе с ошибкой ErrAPIError, чтобы его можно было показать.
type CheckService interface {
	Balance(ctx context.Context) (*plagiarism.Response, error)
	Check(ctx context.Context, req domain.CheckRequest) (*plagiarism.Response, error)

	// Пустой externalID заменяется сгенерированным UUID, он уходит в Copyscape как i.
	AddURL(ctx context.Context, userID int64, url, externalID string) (*domain.PrivateDocument, *plagiarism.Response, error)
	AddText(ctx context.Context, userID int64, title, text, encoding, externalID string) (*domain.PrivateDocument, *plagiarism.Response, error)
	ListDocuments(ctx context.Context, userID int64) ([]domain.PrivateDocument, error)
	// DeleteDocument удаляет n-й (с 1) документ из списка ListDocuments.
	DeleteDocument(ctx context.Context, userID int64, n int) (*domain.PrivateDocument, *plagiarism.Response, error)
}

type checkService struct {
	newID   func() string
	checker plagiarism.Checker
	docs    repository.DocumentRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// docs может быть nil: тогда работают только поиск и баланс.
func NewCheckService(checker plagiarism.Checker, docs repository.DocumentRepository, m *metrics.Metrics, logger *zap.Logger) CheckService {
	return &checkService{
		newID:   uuid.NewString,
		checker: checker,
		docs:    docs,
		metrics: m,
		logger:  logger,
	}
}

func (s *checkService) Balance(ctx context.Context) (*plagiarism.Response, error) {
	resp, err := s.checker.CheckBalance(ctx)
	return s.result(resp, err)
}

func (s *checkService) Check(ctx context.Context, req domain.CheckRequest) (*plagiarism.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		resp *plagiarism.Response
		err  error
	)

	if req.IsText() {
		switch req.Scope {
		case domain.ScopeInternet:
			resp, err = s.checker.TextSearchInternet(ctx, req.Text, req.Encoding, req.Full)
		case domain.ScopePrivate:
			resp, err = s.checker.TextSearchPrivate(ctx, req.Text, req.Encoding, req.Full)
		case domain.ScopeCombined:
			resp, err = s.checker.TextSearchInternetAndPrivate(ctx, req.Text, req.Encoding, req.Full)
		}
	} else {
		switch req.Scope {
		case domain.ScopeInternet:
			resp, err = s.checker.URLSearchInternet(ctx, req.URL, req.Full)
		case domain.ScopePrivate:
			resp, err = s.checker.URLSearchPrivate(ctx, req.URL, req.Full)
		case domain.ScopeCombined:
			resp, err = s.checker.URLSearchInternetAndPrivate(ctx, req.URL, req.Full)
		}
	}

	s.logger.Debug("check done",
		zap.Int64("user_id", req.UserID),
		zap.String("scope", req.Scope.String()),
		zap.Bool("text", req.IsText()),
		zap.Int("full", req.Full),
	)

	return s.result(resp, err)
}

func (s *checkService) AddURL(ctx context.Context, userID int64, url, externalID string) (*domain.PrivateDocument, *plagiarism.Response, error) {
	if err := domain.ValidateURL(url); err != nil {
		return nil, nil, err
	}
	if err := s.checkLimit(ctx, userID); err != nil {
		return nil, nil, err
	}
	if externalID == "" {
		externalID = s.newID()
	}

	resp, err := s.result(s.checker.URLAddToPrivate(ctx, url, externalID))
	if err != nil {
		return nil, resp, err
	}

	doc := &domain.PrivateDocument{
		UserID:     userID,
		ExternalID: externalID,
		Title:      resp.Value("title"),
		Kind:       domain.KindURL,
		URL:        url,
	}
	return s.store(ctx, doc, resp)
}

func (s *checkService) AddText(ctx context.Context, userID int64, title, text, encoding, externalID string) (*domain.PrivateDocument, *plagiarism.Response, error) {
	if err := domain.ValidateText(text); err != nil {
		return nil, nil, err
	}
	if err := s.checkLimit(ctx, userID); err != nil {
		return nil, nil, err
	}
	if externalID == "" {
		externalID = s.newID()
	}

	resp, err := s.result(s.checker.TextAddToPrivate(ctx, text, encoding, title, externalID))
	if err != nil {
		return nil, resp, err
	}

	if title == "" {
		title = resp.Value("title")
	}
	doc := &domain.PrivateDocument{
		UserID:     userID,
		ExternalID: externalID,
		Title:      title,
		Kind:       domain.KindText,
	}
	return s.store(ctx, doc, resp)
}

func (s *checkService) ListDocuments(ctx context.Context, userID int64) ([]domain.PrivateDocument, error) {
	if s.docs == nil {
		return nil, domain.ErrRegistryDisabled
	}
	return s.docs.ListByUser(ctx, userID)
}

func (s *checkService) DeleteDocument(ctx context.Context, userID int64, n int) (*domain.PrivateDocument, *plagiarism.Response, error) {
	docs, err := s.ListDocuments(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if n < 1 || n > len(docs) {
		return nil, nil, domain.ErrDocumentNotFound
	}
	doc := docs[n-1]

	resp, err := s.result(s.checker.DeleteFromPrivate(ctx, doc.Handle))
	if err != nil {
		msg, _ := resp.APIError()
		if !isUnknownHandle(msg) {
			return &doc, resp, err
		}
		s.logger.Info("handle already gone from private index, dropping record",
			zap.Int64("user_id", userID),
			zap.Int64("doc_id", doc.ID),
			zap.String("api_error", msg),
		)
	}

	if err := s.docs.Delete(ctx, userID, doc.ID); err != nil {
		return &doc, resp, fmt.Errorf("delete document record: %w", err)
	}
	s.recordRemoved()

	s.logger.Info("document removed from private index",
		zap.Int64("user_id", userID),
		zap.Int64("doc_id", doc.ID),
	)

	return &doc, resp, nil
}

var unknownHandlePhrases = []string{"not found", "unknown", "invalid", "does not exist", "no such"}

// isUnknownHandle - pindexdel не нашел документ: в индексе его уже нет.
func isUnknownHandle(apiError string) bool {
	msg := strings.ToLower(apiError)
	if !strings.Contains(msg, "handle") {
		return false
	}
	for _, p := range unknownHandlePhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (s *checkService) checkLimit(ctx context.Context, userID int64) error {
	if s.docs == nil {
		return domain.ErrRegistryDisabled
	}
	count, err := s.docs.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count >= domain.MaxDocumentsPerUser {
		return domain.ErrDocumentLimitReached
	}
	return nil
}

// store сохраняет handle из ответа pindexadd. Если запись не удалась,
// документ убирается из индекса, иначе его уже не удалить через бота.
func (s *checkService) store(ctx context.Context, doc *domain.PrivateDocument, resp *plagiarism.Response) (*domain.PrivateDocument, *plagiarism.Response, error) {
	doc.Handle = resp.Value("handle")
	if doc.Handle == "" {
		return nil, resp, domain.ErrMissingHandle
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		if !errors.Is(err, domain.ErrDuplicateDocument) {
			if _, delErr := s.checker.DeleteFromPrivate(ctx, doc.Handle); delErr != nil {
				s.logger.Warn("failed to roll back private index add",
					zap.Int64("user_id", doc.UserID),
					zap.Error(delErr),
				)
			}
		}
		return nil, resp, err
	}
	s.recordAdded()

	s.logger.Info("document added to private index",
		zap.Int64("user_id", doc.UserID),
		zap.Int64("doc_id", doc.ID),
		zap.String("kind", doc.Kind.String()),
	)

	return doc, resp, nil
}

func (s *checkService) result(resp *plagiarism.Response, err error) (*plagiarism.Response, error) {
	if err != nil {
		if errors.Is(err, plagiarism.ErrNoResult) {
			return nil, fmt.Errorf("%w: %w", domain.ErrNoResult, err)
		}
		return nil, err
	}
	if resp == nil || resp.Root == nil {
		return nil, domain.ErrNoResult
	}
	if msg, ok := resp.APIError(); ok {
		return resp, fmt.Errorf("%w: %s", domain.ErrAPIError, msg)
	}
	return resp, nil
}

func (s *checkService) recordAdded() {
	if s.metrics != nil {
		s.metrics.RecordDocumentAdded()
	}
}

func (s *checkService) recordRemoved() {
	if s.metrics != nil {
		s.metrics.RecordDocumentRemoved()
	}
}
