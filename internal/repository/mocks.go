package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
)

type MockDocumentRepository struct {
	mu     sync.RWMutex
	docs   map[int64]*domain.PrivateDocument // key: document ID
	nextID int64

	// если задан, все методы возвращают эту ошибку
	Err error
}

func NewMockDocumentRepository() *MockDocumentRepository {
	return &MockDocumentRepository{
		docs:   make(map[int64]*domain.PrivateDocument),
		nextID: 1,
	}
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *domain.PrivateDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	for _, d := range m.docs {
		if d.UserID == doc.UserID && d.Handle == doc.Handle {
			return domain.ErrDuplicateDocument
		}
	}

	doc.ID = m.nextID
	m.nextID++
	doc.CreatedAt = time.Now()
	stored := *doc
	m.docs[doc.ID] = &stored
	return nil
}

func (m *MockDocumentRepository) Delete(ctx context.Context, userID, docID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	doc, exists := m.docs[docID]
	if !exists || doc.UserID != userID {
		return domain.ErrDocumentNotFound
	}

	delete(m.docs, docID)
	return nil
}

func (m *MockDocumentRepository) ListByUser(ctx context.Context, userID int64) ([]domain.PrivateDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	var result []domain.PrivateDocument
	for _, d := range m.docs {
		if d.UserID == userID {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, docID int64) (*domain.PrivateDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	if doc, exists := m.docs[docID]; exists {
		found := *doc
		return &found, nil
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *MockDocumentRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return 0, m.Err
	}

	count := 0
	for _, d := range m.docs {
		if d.UserID == userID {
			count++
		}
	}
	return count, nil
}
