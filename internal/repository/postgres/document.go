package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *domain.PrivateDocument) error {
	query := `
        INSERT INTO private_documents (user_id, handle, external_id, title, kind, url)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `

	err := r.db.Pool.QueryRow(ctx, query,
		doc.UserID,
		doc.Handle,
		doc.ExternalID,
		doc.Title,
		doc.Kind.String(),
		doc.URL,
	).Scan(&doc.ID, &doc.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateDocument
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, userID, docID int64) error {
	query := `DELETE FROM private_documents WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, docID, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}

	return nil
}

func (r *DocumentRepo) ListByUser(ctx context.Context, userID int64) ([]domain.PrivateDocument, error) {
	query := `
        SELECT id, user_id, handle, external_id, title, kind, url, created_at
        FROM private_documents
        WHERE user_id = $1
        ORDER BY id
    `

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.PrivateDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return docs, nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID int64) (*domain.PrivateDocument, error) {
	query := `
        SELECT id, user_id, handle, external_id, title, kind, url, created_at
        FROM private_documents
        WHERE id = $1
    `

	doc, err := scanDocument(r.db.Pool.QueryRow(ctx, query, docID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}

	return doc, nil
}

func (r *DocumentRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM private_documents WHERE user_id = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}

	return count, nil
}

func scanDocument(row pgx.Row) (*domain.PrivateDocument, error) {
	var doc domain.PrivateDocument
	var kind string
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Handle,
		&doc.ExternalID,
		&doc.Title,
		&kind,
		&doc.URL,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Kind = domain.DocumentKind(kind)
	return &doc, nil
}
