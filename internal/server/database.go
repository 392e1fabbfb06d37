package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/meddocs/internal/common"
	repo "github.com/joseph-ayodele/meddocs/internal/repository"
)

// Store is the document repository selected by DB_DRIVER plus its ping and close hooks.
type Store struct {
	Documents repo.DocumentRepository

	pool    *pgxpool.Pool
	db      *sql.DB
	dialect string
	fs      *firestore.Client
	logger  *slog.Logger
}

// ConnectStore opens the configured store. SQLite databases are migrated on
// open since they are usually in-memory.
func ConnectStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db := cfg.Database
	s := &Store{logger: logger}

	logger.Info("connecting to database", "driver", db.Driver)
	switch db.Driver {
	case "pgx":
		pool, err := repo.Open(ctx, repo.Config{
			DSN:              db.DSN,
			MaxConns:         db.MaxConns,
			MinConns:         db.MinConns,
			MaxConnLifetime:  db.MaxConnLifetime,
			MaxConnIdleTime:  db.MaxConnIdleTime,
			DialTimeout:      db.DialTimeout,
			StatementTimeout: db.StatementTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		s.pool = pool
		s.Documents = repo.NewPostgresDocumentRepository(pool, logger)
	case "postgres", "sqlite":
		sqlDB, dial, err := repo.OpenSQL(ctx, db.Driver, db.DSN, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		if db.Driver == "sqlite" {
			if err := repo.Migrate(ctx, sqlDB, dial); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
		}
		s.db, s.dialect = sqlDB, dial
		s.Documents = repo.NewSQLDocumentRepository(sqlDB, dial, logger)
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.Generative.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("firestore.NewClient: %w", err)
		}
		s.fs = client
		s.Documents = repo.NewFirestoreDocumentRepository(client, cfg.Storage.Collection, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown DB_DRIVER %q", db.Driver), common.ErrInvalidInput)
	}

	logger.Info("successfully connected to database")
	return s, nil
}

// Ping checks the store is responsive. Firestore has no cheap ping and always passes.
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	s.logger.Debug("pinging database")
	var err error
	switch {
	case s.pool != nil:
		return repo.HealthCheck(ctx, s.pool, timeout, s.logger)
	case s.db != nil:
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err = s.db.PingContext(pctx)
	}
	if err != nil {
		s.logger.Error("database ping failed", "error", err)
		return err
	}
	s.logger.Debug("database ping successful")
	return nil
}

// Migrate applies the documents DDL. Firestore needs none.
func (s *Store) Migrate(ctx context.Context) error {
	switch {
	case s.pool != nil:
		return repo.MigratePool(ctx, s.pool)
	case s.db != nil:
		return repo.Migrate(ctx, s.db, s.dialect)
	}
	return nil
}

// Close closes the database connections gracefully.
func (s *Store) Close() {
	if s.pool != nil {
		repo.Close(s.pool, s.logger)
		return
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("failed to close database", "error", err)
		}
	}
	if s.fs != nil {
		if err := s.fs.Close(); err != nil {
			s.logger.Error("failed to close firestore client", "error", err)
		}
	}
}
