package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/meddocs/internal/entity"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting for the pipeline.
type Job struct {
	Document     entity.RawDocument
	DeclaredType string
	PatientID    int64
	CheckinID    *int64
	SubmittedAt  time.Time
	TraceID      string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
