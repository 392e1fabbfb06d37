package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

// SQLDocumentRepository stores documents through database/sql. It serves both
// SQLite (batch --inmem, tests) and Postgres via lib/pq.
type SQLDocumentRepository struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
	now     func() time.Time
}

func NewSQLDocumentRepository(db *sql.DB, dialect string, logger *slog.Logger) *SQLDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLDocumentRepository{db: db, dialect: dialect, logger: logger, now: time.Now}
}

func (r *SQLDocumentRepository) Save(ctx context.Context, rec *entity.StructuredRecord, meta SaveMeta) (string, error) {
	doc, err := NewStoredDocument(rec, meta, r.now())
	if err != nil {
		return "", err
	}
	query, args := insertQuery(r.dialect, doc)
	err = InTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		r.logger.Error("failed to save document", "patient_id", meta.PatientID, "file", meta.OriginalFilename, "error", err)
		return "", common.PersistenceError("saving document", err)
	}
	r.logger.Debug("document saved", "id", doc.ID, "patient_id", doc.PatientID, "type", doc.Type)
	return doc.ID.String(), nil
}

func (r *SQLDocumentRepository) Get(ctx context.Context, id string) (*entity.StoredDocument, error) {
	u, err := parseID(id)
	if err != nil {
		return nil, err
	}
	query, args := selectByIDQuery(r.dialect, u.String())
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		r.logger.Error("failed to get document", "id", id, "error", err)
		return nil, common.PersistenceError("loading document", err)
	}
	return doc, nil
}

func (r *SQLDocumentRepository) ListByPatient(ctx context.Context, patientID int64, limit int) ([]*entity.StoredDocument, error) {
	query, args := selectByPatientQuery(r.dialect, patientID, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
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

// Ping reports whether the database is reachable.
func (r *SQLDocumentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
