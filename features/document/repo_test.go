package document_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
)

var docColumns = []string{"id", "namespace_id", "display_name", "status", "chunk_count", "source_path", "error", "created_at", "updated_at"}

func TestPostgresRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)
	now := time.Now()
	doc := &document.Document{ID: "d1", NamespaceID: "acme", DisplayName: "report.txt", Status: document.StatusPending, SourcePath: "/tmp/report.txt"}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO documents (id, namespace_id, display_name, status, source_path) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at")).
		WithArgs("d1", "acme", "report.txt", document.StatusPending, "/tmp/report.txt").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), doc))
	assert.Equal(t, now, doc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)
	query := regexp.QuoteMeta("SELECT id, namespace_id, display_name, status, chunk_count, source_path, error, created_at, updated_at FROM documents WHERE id = $1")

	t.Run("Found", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(query).WithArgs("d1").
			WillReturnRows(sqlmock.NewRows(docColumns).AddRow("d1", "acme", "report.txt", "COMPLETED", 12, "", "", now, now))

		doc, err := repo.Get(context.Background(), "d1")
		require.NoError(t, err)
		assert.Equal(t, document.StatusCompleted, doc.Status)
		assert.Equal(t, 12, doc.ChunkCount)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, document.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Claim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)
	query := regexp.QuoteMeta("UPDATE documents SET status = 'PROCESSING', error = '', updated_at = NOW() WHERE id = $1 AND status IN ('PENDING', 'FAILED')")

	t.Run("Won", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("d1").WillReturnResult(sqlmock.NewResult(0, 1))
		ok, err := repo.Claim(context.Background(), "d1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("AlreadyClaimed", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("d1").WillReturnResult(sqlmock.NewResult(0, 0))
		ok, err := repo.Claim(context.Background(), "d1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("d1").WillReturnError(errors.New("conn reset"))
		_, err := repo.Claim(context.Background(), "d1")
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_CompleteAndFail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = 'COMPLETED', chunk_count = $2, error = '', updated_at = NOW() WHERE id = $1 AND status = 'PROCESSING'")).
		WithArgs("d1", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = 'FAILED', chunk_count = 0, error = $2, updated_at = NOW() WHERE id = $1")).
		WithArgs("d2", "no content").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Complete(context.Background(), "d1", 7))
	require.NoError(t, repo.Fail(context.Background(), "d2", "no content"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Complete_DeletedDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = 'COMPLETED'")).
		WithArgs("gone", 3).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Complete(context.Background(), "gone", 3)
	assert.ErrorIs(t, err, document.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1 AND namespace_id = $2")).
		WithArgs("d1", "acme").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE namespace_id = $1")).
		WithArgs("acme").WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.Delete(context.Background(), "acme", "d1"))
	n, err := repo.DeleteByNamespace(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM documents GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("COMPLETED", 4).
			AddRow("FAILED", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(chunk_count), 0) FROM documents WHERE status = 'COMPLETED'")).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(120))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[document.StatusCompleted])
	assert.Equal(t, 1, counts[document.StatusFailed])
	assert.Equal(t, 0, counts[document.StatusPending])

	total, err := repo.SumChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
