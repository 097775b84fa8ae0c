package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// Repository describes persistence for approval documents. The conditional
// status updates are the commit boundary for state transitions: they report
// whether the expected-state precondition still held when the write landed.
type Repository interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	ListPending(ctx context.Context, docType DocType) ([]Document, error)
	// MarkPending moves a draft to pending; false when the document was not
	// in Draft at write time.
	MarkPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// MarkDecided applies a decision; false when the document was not in
	// Pending at write time (the race was lost).
	MarkDecided(ctx context.Context, id uuid.UUID, status Status, decidedBy int64, decidedAt time.Time, remarks string) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const documentColumns = `id, doc_type, number, status, remarks, requested_by, decided_by, decided_at, created_at, updated_at`

// Create inserts a new approval document.
func (r *PGRepository) Create(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `INSERT INTO approval_documents (id, doc_type, number, status, remarks, requested_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.Type, doc.Number, doc.Status, doc.Remarks, doc.RequestedBy, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		// Duplicate document number.
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Document{}, shared.ErrConflict
		}
		return Document{}, err
	}
	return doc, nil
}

// Get fetches one document.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM approval_documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, shared.ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListPending returns pending documents, optionally restricted to one type.
func (r *PGRepository) ListPending(ctx context.Context, docType DocType) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM approval_documents WHERE status='PENDING'`
	args := []any{}
	if docType != "" {
		query += ` AND doc_type=$1`
		args = append(args, docType)
	}
	query += ` ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// MarkPending transitions Draft -> Pending.
func (r *PGRepository) MarkPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE approval_documents SET status='PENDING', updated_at=$2
WHERE id=$1 AND status='DRAFT'`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkDecided transitions Pending -> Approved/Rejected at most once.
func (r *PGRepository) MarkDecided(ctx context.Context, id uuid.UUID, status Status, decidedBy int64, decidedAt time.Time, remarks string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE approval_documents
SET status=$2, decided_by=$3, decided_at=$4, remarks=$5, updated_at=$4
WHERE id=$1 AND status='PENDING'`, id, status, decidedBy, decidedAt, remarks)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	err := row.Scan(&doc.ID, &doc.Type, &doc.Number, &doc.Status, &doc.Remarks,
		&doc.RequestedBy, &doc.DecidedBy, &doc.DecidedAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

var _ Repository = (*PGRepository)(nil)
