package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/events"
	"github.com/joseph-ayodele/meddocs/internal/metrics"
	"github.com/joseph-ayodele/meddocs/internal/repository"
)

// Assembler turns one raw document into a record or a failure payload.
type Assembler interface {
	Assemble(ctx context.Context, raw entity.RawDocument, declaredType string, patientID int64, checkinID *int64) entity.Result
}

// Publisher announces processed documents.
type Publisher interface {
	PublishProcessed(ctx context.Context, ev events.DocumentProcessed) error
}

// ProcessOutcome is what one Process call produced. RecordID is empty when
// nothing was stored.
type ProcessOutcome struct {
	RecordID string
	Result   entity.Result
}

// Processor coordinates the pipeline run, schema check, persistence and event.
type Processor struct {
	logger    *slog.Logger
	assembler Assembler
	sink      repository.DocumentSink
	publisher Publisher
	metrics   *metrics.Metrics
	validate  bool
}

type Option func(*Processor)

func WithPublisher(p Publisher) Option {
	return func(pr *Processor) { pr.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(pr *Processor) { pr.metrics = m }
}

// WithValidation toggles the JSON-schema check before persistence.
func WithValidation(on bool) Option {
	return func(pr *Processor) { pr.validate = on }
}

// NewProcessor builds a processor. A nil sink runs the pipeline without storing anything.
func NewProcessor(logger *slog.Logger, assembler Assembler, sink repository.DocumentSink, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:    logger,
		assembler: assembler,
		sink:      sink,
		validate:  true,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile stats path and processes it.
func (p *Processor) ProcessFile(ctx context.Context, path, declaredType string, patientID int64, checkinID *int64) (ProcessOutcome, error) {
	raw, err := entity.NewRawDocumentFromPath(path, declaredType)
	if err != nil {
		return ProcessOutcome{}, err
	}
	return p.Process(ctx, raw, declaredType, patientID, checkinID)
}

// Process runs raw through the pipeline and stores the record. A pipeline
// failure is reported in the outcome, not as an error; errors are reserved for
// unusable input and persistence failures.
func (p *Processor) Process(ctx context.Context, raw entity.RawDocument, declaredType string, patientID int64, checkinID *int64) (ProcessOutcome, error) {
	log := common.LoggerFromContext(ctx, p.logger).With("file", raw.Filename, "patient_id", patientID)
	if err := raw.Validate(); err != nil {
		return ProcessOutcome{}, err
	}
	if patientID <= 0 {
		return ProcessOutcome{}, common.NewAppError("VALIDATION_ERROR", "patient_id must be positive", common.ErrInvalidInput)
	}
	start := time.Now()

	// 1) pipeline
	res := p.assembler.Assemble(ctx, raw, declaredType, patientID, checkinID)
	out := ProcessOutcome{Result: res}

	// 2) schema check
	if res.OK() && p.validate {
		if err := entity.ValidateRecord(res.Record); err != nil {
			log.Error("record failed schema validation", "error", err)
			out.Result = entity.Result{Failure: entity.NewFailure(fmt.Errorf("record failed schema validation: %w", err), res.Record.OriginalText())}
		}
	}

	if !out.Result.OK() {
		p.metrics.IncProcessed(string(constants.Unknown), "", "failure")
		p.publish(ctx, log, p.event(out, raw, patientID, checkinID))
		return out, nil
	}
	rec := out.Result.Record

	// 3) persistence
	if p.sink != nil {
		id, err := p.sink.Save(ctx, rec, repository.SaveMeta{
			PatientID:        patientID,
			CheckinID:        checkinID,
			OriginalFilename: raw.Filename,
			FilePath:         raw.Path,
			ExtractedText:    rec.OriginalText(),
		})
		if err != nil {
			p.metrics.IncProcessed(string(rec.DocumentType), string(rec.SummaryStrategy), "persist_error")
			log.Error("failed to persist record", "error", err)
			return out, err
		}
		out.RecordID = id
	}

	// 4) best-effort event
	p.publish(ctx, log, p.event(out, raw, patientID, checkinID))

	p.metrics.IncProcessed(string(rec.DocumentType), string(rec.SummaryStrategy), "ok")
	log.Info("document processed",
		"record_id", out.RecordID,
		"document_type", rec.DocumentType,
		"language", rec.OriginalLanguage.Code,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (p *Processor) event(out ProcessOutcome, raw entity.RawDocument, patientID int64, checkinID *int64) events.DocumentProcessed {
	ev := events.DocumentProcessed{
		RecordID:  out.RecordID,
		PatientID: patientID,
		CheckinID: checkinID,
		Filename:  raw.Filename,
	}
	if rec := out.Result.Record; rec != nil {
		ev.DocumentType = string(rec.DocumentType)
		ev.Language = rec.OriginalLanguage.Code
		ev.Strategy = string(rec.SummaryStrategy)
		ev.Status = string(constants.RecordStatusProcessed)
		ev.ProcessedAt = rec.GeneratedAt
	} else if f := out.Result.Failure; f != nil {
		ev.DocumentType = string(f.DocumentType)
		ev.Status = string(constants.RecordStatusFailed)
		ev.Error = f.Error
	}
	return ev
}

func (p *Processor) publish(ctx context.Context, log *slog.Logger, ev events.DocumentProcessed) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishProcessed(ctx, ev); err != nil {
		log.Warn("failed to publish document event", "record_id", ev.RecordID, "error", err)
	}
}
