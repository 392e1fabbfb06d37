package repository

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/meddocs/internal/common"
)

var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS documents (
	id                UUID PRIMARY KEY,
	patient_id        BIGINT NOT NULL,
	checkin_id        BIGINT,
	type              TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	file_path         TEXT NOT NULL,
	extracted_text    TEXT NOT NULL,
	structured_data   JSONB NOT NULL,
	language          VARCHAR(16) NOT NULL,
	status            VARCHAR(16) NOT NULL,
	uploaded_on       TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS documents_patient_uploaded_idx ON documents (patient_id, uploaded_on DESC)`,
}

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	patient_id        INTEGER NOT NULL,
	checkin_id        INTEGER,
	type              TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	file_path         TEXT NOT NULL,
	extracted_text    TEXT NOT NULL,
	structured_data   TEXT NOT NULL,
	language          TEXT NOT NULL,
	status            TEXT NOT NULL,
	uploaded_on       TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS documents_patient_uploaded_idx ON documents (patient_id, uploaded_on)`,
}

func ddlFor(dial string) ([]string, error) {
	switch dial {
	case dialect.Postgres:
		return postgresDDL, nil
	case dialect.SQLite:
		return sqliteDDL, nil
	}
	return nil, fmt.Errorf("no schema for dialect %q", dial)
}

// Migrate creates the documents table on a database/sql handle.
func Migrate(ctx context.Context, db *sql.DB, dial string) error {
	stmts, err := ddlFor(dial)
	if err != nil {
		return err
	}
	return InTx(ctx, db, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return common.PersistenceError("migrating documents schema", err)
			}
		}
		return nil
	})
}

// MigratePool creates the documents table through a pgx pool.
func MigratePool(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range postgresDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return common.PersistenceError("migrating documents schema", err)
		}
	}
	return nil
}
