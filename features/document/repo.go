package document

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (id, namespace_id, display_name, status, source_path) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, doc.ID, doc.NamespaceID, doc.DisplayName, doc.Status, doc.SourcePath).Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	query := `SELECT id, namespace_id, display_name, status, chunk_count, source_path, error, created_at, updated_at FROM documents WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.NamespaceID, &d.DisplayName, &d.Status, &d.ChunkCount, &d.SourcePath, &d.Error, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepo) List(ctx context.Context, namespaceID string) ([]Document, error) {
	query := `SELECT id, namespace_id, display_name, status, chunk_count, source_path, error, created_at, updated_at FROM documents WHERE namespace_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, namespaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.NamespaceID, &d.DisplayName, &d.Status, &d.ChunkCount, &d.SourcePath, &d.Error, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) Claim(ctx context.Context, id string) (bool, error) {
	query := `UPDATE documents SET status = 'PROCESSING', error = '', updated_at = NOW() WHERE id = $1 AND status IN ('PENDING', 'FAILED')`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Complete only moves a PROCESSING document. ErrNotFound means the row was
// deleted while it was being indexed.
func (r *PostgresRepo) Complete(ctx context.Context, id string, chunkCount int) error {
	query := `UPDATE documents SET status = 'COMPLETED', chunk_count = $2, error = '', updated_at = NOW() WHERE id = $1 AND status = 'PROCESSING'`
	res, err := r.db.ExecContext(ctx, query, id, chunkCount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Fail(ctx context.Context, id, reason string) error {
	query := `UPDATE documents SET status = 'FAILED', chunk_count = 0, error = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, reason)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, namespaceID, id string) error {
	query := `DELETE FROM documents WHERE id = $1 AND namespace_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, namespaceID)
	return err
}

func (r *PostgresRepo) DeleteByNamespace(ctx context.Context, namespaceID string) (int64, error) {
	query := `DELETE FROM documents WHERE namespace_id = $1`
	res, err := r.db.ExecContext(ctx, query, namespaceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	query := `SELECT status, COUNT(*) FROM documents GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[Status]int{
		StatusPending:    0,
		StatusProcessing: 0,
		StatusCompleted:  0,
		StatusFailed:     0,
	}
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *PostgresRepo) SumChunks(ctx context.Context) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(chunk_count), 0) FROM documents WHERE status = 'COMPLETED'`
	err := r.db.QueryRowContext(ctx, query).Scan(&total)
	return total, err
}
