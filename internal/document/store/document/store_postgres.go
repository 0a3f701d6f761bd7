package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"govportal/internal/document/models"
	"govportal/internal/platform/database"
	id "govportal/pkg/domain"
	"govportal/pkg/platform/sentinel"
	txcontext "govportal/pkg/platform/tx"
)

// PostgresStore persists documents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, application_id, user_id, kind, file_name, content_type, size_bytes, storage_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		uuid.UUID(doc.ApplicationID),
		uuid.UUID(doc.UserID),
		string(doc.Kind),
		doc.FileName,
		doc.ContentType,
		doc.SizeBytes,
		doc.StorageKey,
		string(doc.Status),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const selectDocument = `
	SELECT id, application_id, user_id, kind, file_name, content_type, size_bytes, storage_key, status, created_at, updated_at
	FROM documents
`

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID, docID id.DocumentID) (*models.Document, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		selectDocument+` WHERE id = $1 AND user_id = $2`,
		uuid.UUID(docID), uuid.UUID(userID),
	)
	return scanDocument(row)
}

func (s *PostgresStore) MarkUploaded(ctx context.Context, docID id.DocumentID, now time.Time) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE documents SET status = 'UPLOADED', updated_at = $2 WHERE id = $1`,
		uuid.UUID(docID), now,
	)
	if err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Document, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		selectDocument+` WHERE user_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		doc                   models.Document
		rawID, rawApp, rawUsr uuid.UUID
		kind, status          string
	)
	err := row.Scan(&rawID, &rawApp, &rawUsr, &kind, &doc.FileName, &doc.ContentType, &doc.SizeBytes,
		&doc.StorageKey, &status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.ID = id.DocumentID(rawID)
	doc.ApplicationID = id.ApplicationID(rawApp)
	doc.UserID = id.UserID(rawUsr)
	doc.Kind = models.Kind(kind)
	doc.Status = models.Status(status)
	return &doc, nil
}
