package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

// PostgresDocumentRepository stores documents through a pgx pool, one
// transaction per record.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

func NewPostgresDocumentRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDocumentRepository{pool: pool, logger: logger, now: time.Now}
}

func (r *PostgresDocumentRepository) Save(ctx context.Context, rec *entity.StructuredRecord, meta SaveMeta) (string, error) {
	doc, err := NewStoredDocument(rec, meta, r.now())
	if err != nil {
		return "", err
	}
	query, args := insertQuery(dialect.Postgres, doc)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error("failed to begin transaction", "error", err)
		return "", common.PersistenceError("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		r.logger.Error("failed to save document", "patient_id", meta.PatientID, "file", meta.OriginalFilename, "error", err)
		return "", common.PersistenceError("saving document", err)
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("failed to commit document", "patient_id", meta.PatientID, "error", err)
		return "", common.PersistenceError("committing document", err)
	}
	r.logger.Debug("document saved", "id", doc.ID, "patient_id", doc.PatientID, "type", doc.Type)
	return doc.ID.String(), nil
}

func (r *PostgresDocumentRepository) Get(ctx context.Context, id string) (*entity.StoredDocument, error) {
	u, err := parseID(id)
	if err != nil {
		return nil, err
	}
	query, args := selectByIDQuery(dialect.Postgres, u.String())
	doc, err := scanDocument(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		r.logger.Error("failed to get document", "id", id, "error", err)
		return nil, common.PersistenceError("loading document", err)
	}
	return doc, nil
}

func (r *PostgresDocumentRepository) ListByPatient(ctx context.Context, patientID int64, limit int) ([]*entity.StoredDocument, error) {
	query, args := selectByPatientQuery(dialect.Postgres, patientID, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list documents", "patient_id", patientID, "error", err)
		return nil, common.PersistenceError("listing documents", err)
	}
	defer rows.Close()

	var out []*entity.StoredDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, common.PersistenceError("scanning document", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, common.PersistenceError("listing documents", err)
	}
	return out, nil
}

func (r *PostgresDocumentRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
