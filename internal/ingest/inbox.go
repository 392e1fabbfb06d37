package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/meddocs/internal/async"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

// InboxConfig wires a watched inbox directory to a processing queue.
type InboxConfig struct {
	Watch            WatchConfig
	DefaultPatientID int64
	DeclaredType     string
}

// RunInbox watches the inbox and enqueues every new document until ctx is done.
func RunInbox(ctx context.Context, cfg InboxConfig, q async.Queue, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Watch.Logger == nil {
		cfg.Watch.Logger = logger
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = time.Second
	}
	paths, errs, err := StartWatcher(ctx, cfg.Watch)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("inbox watcher error", "error", err)
		case path, ok := <-paths:
			if !ok {
				return nil
			}
			job, err := inboxJob(path, cfg)
			if err != nil {
				logger.Warn("skipping inbox file", "path", path, "error", err)
				continue
			}
			if err := q.Enqueue(ctx, job); err != nil {
				logger.Error("failed to enqueue inbox file", "path", path, "error", err)
			}
		}
	}
}

func inboxJob(path string, cfg InboxConfig) (async.Job, error) {
	raw, err := entity.NewRawDocumentFromPath(path, cfg.DeclaredType)
	if err != nil {
		return async.Job{}, err
	}
	if err := raw.Validate(); err != nil {
		return async.Job{}, err
	}
	patientID, ok := PatientIDFromFilename(path)
	if !ok {
		patientID = cfg.DefaultPatientID
	}
	if patientID <= 0 {
		return async.Job{}, errNoPatient
	}
	return async.Job{
		Document:     raw,
		DeclaredType: cfg.DeclaredType,
		PatientID:    patientID,
		SubmittedAt:  time.Now(),
		TraceID:      uuid.NewString(),
	}, nil
}
