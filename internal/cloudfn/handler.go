// Package cloudfn processes documents dropped into a GCS bucket, triggered by
// an object-finalized CloudEvent.
package cloudfn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/core"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/ingest"
	"github.com/joseph-ayodele/meddocs/internal/storage"
)

// GCSEvent is the payload of a storage object event.
type GCSEvent struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Size        string            `json:"size"`
	Metadata    map[string]string `json:"metadata"`
}

// Downloader copies an object to a local file.
type Downloader func(ctx context.Context, bucket, object, dst string) (int64, error)

// DocumentProcessor is satisfied by *core.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, raw entity.RawDocument, declaredType string, patientID int64, checkinID *int64) (core.ProcessOutcome, error)
}

type Handler struct {
	proc             DocumentProcessor
	download         Downloader
	defaultPatientID int64
	logger           *slog.Logger
}

func NewHandler(proc DocumentProcessor, download Downloader, defaultPatientID int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{proc: proc, download: download, defaultPatientID: defaultPatientID, logger: logger}
}

// HandleEvent decodes a CloudEvent and processes the object it names.
func (h *Handler) HandleEvent(ctx context.Context, e cloudevents.Event) error {
	var ev GCSEvent
	if err := json.Unmarshal(e.Data(), &ev); err != nil {
		h.logger.Error("failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return h.Process(ctx, ev)
}

// Process downloads the object and runs it through the processor. Only
// persistence errors are returned, so the runtime retries just those;
// unusable objects and pipeline failures are logged and acknowledged.
func (h *Handler) Process(ctx context.Context, e GCSEvent) error {
	log := h.logger.With("gcs_bucket", e.Bucket, "gcs_object", e.Name)

	base := path.Base(e.Name)
	if !constants.AllowedExt(filepath.Ext(base)) {
		log.Info("skipping unsupported object")
		return nil
	}
	if err := common.NewValidator().
		Field("patient_id", e.Metadata["patient_id"], common.PositiveInt).
		Field("checkin_id", e.Metadata["checkin_id"], common.PositiveInt).
		Error(); err != nil {
		log.Warn("ignoring invalid object metadata", "error", err)
	}
	patientID, ok := h.patientID(e)
	if !ok {
		log.Warn("skipping object without patient id")
		return nil
	}
	checkinID, _ := common.ParseOptionalID(e.Metadata["checkin_id"])
	declared := e.Metadata["file_type"]

	tmp, err := os.MkdirTemp("", "meddocs-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	local := filepath.Join(tmp, storage.SafeName(base))
	n, err := h.download(ctx, e.Bucket, e.Name, local)
	if err != nil {
		log.Error("failed to download object", "error", err)
		return err
	}
	log.Info("object downloaded", "bytes", n, "patient_id", patientID)

	raw, err := entity.NewRawDocumentFromPath(local, declared)
	if err != nil {
		log.Warn("object is not processable", "error", err)
		return nil
	}

	out, err := h.proc.Process(ctx, raw, declared, patientID, checkinID)
	if err != nil {
		if errors.Is(err, common.ErrEmptyDocument) {
			log.Warn("object is empty", "error", err)
			return nil
		}
		return err
	}
	if f := out.Result.Failure; f != nil {
		log.Warn("document processing failed", "error", f.Error)
		return nil
	}
	log.Info("document stored", "record_id", out.RecordID, "document_type", out.Result.Record.DocumentType)
	return nil
}

// patientID prefers object metadata, then the <id>_ filename prefix, then the default.
func (h *Handler) patientID(e GCSEvent) (int64, bool) {
	if v, err := strconv.ParseInt(e.Metadata["patient_id"], 10, 64); err == nil && v > 0 {
		return v, true
	}
	if id, ok := ingest.PatientIDFromFilename(e.Name); ok {
		return id, true
	}
	return h.defaultPatientID, h.defaultPatientID > 0
}
