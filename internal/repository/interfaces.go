package repository

import (
	"context"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
)

// DocumentRepository - документы пользователя в приватном индексе Copyscape.
// ListByUser отдает в порядке добавления, на этом держится нумерация в /docs и /del.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.PrivateDocument) error
	Delete(ctx context.Context, userID, docID int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.PrivateDocument, error)
	GetByID(ctx context.Context, docID int64) (*domain.PrivateDocument, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
}
