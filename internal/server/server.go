// Package server exposes the document pipeline over HTTP and a gRPC health service.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/meddocs/internal/async"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/core"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/metrics"
	"github.com/joseph-ayodele/meddocs/internal/storage"
)

const defaultMaxUploadBytes = 32 << 20

// DocumentProcessor is satisfied by *core.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, raw entity.RawDocument, declaredType string, patientID int64, checkinID *int64) (core.ProcessOutcome, error)
}

// DocumentReader is the read side of the document repository.
type DocumentReader interface {
	Get(ctx context.Context, id string) (*entity.StoredDocument, error)
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]*entity.StoredDocument, error)
}

// Exporter renders a patient's documents as a spreadsheet.
type Exporter interface {
	ExportPatientXLSX(ctx context.Context, patientID int64, from, to *time.Time) ([]byte, error)
}

var _ DocumentProcessor = (*core.Processor)(nil)

type Server struct {
	proc     DocumentProcessor
	docs     DocumentReader
	uploads  *storage.LocalArchive
	mirror   storage.Archive
	queue    async.Queue
	exporter Exporter
	health   *HealthChecker
	metrics  *metrics.Metrics
	maxBytes int64
	logger   *slog.Logger
}

type Option func(*Server)

// WithQueue enables ?async=true uploads.
func WithQueue(q async.Queue) Option {
	return func(s *Server) { s.queue = q }
}

// WithMirror copies every upload to a second archive, typically GCS.
func WithMirror(a storage.Archive) Option {
	return func(s *Server) { s.mirror = a }
}

func WithExporter(e Exporter) Option {
	return func(s *Server) { s.exporter = e }
}

func WithHealth(h *HealthChecker) Option {
	return func(s *Server) { s.health = h }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func NewServer(proc DocumentProcessor, docs DocumentReader, uploads *storage.LocalArchive, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		proc:     proc,
		docs:     docs,
		uploads:  uploads,
		maxBytes: defaultMaxUploadBytes,
		logger:   logger,
	}
	for _, o := range opts {
		o(s)
	}
	if s.health == nil {
		s.health = NewHealthChecker(0, logger)
	}
	return s
}

// Handler builds the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/upload", s.handleUpload)
	mux.HandleFunc("GET /documents/{id}", s.handleGetDocument)
	mux.HandleFunc("GET /patients/{patientID}/documents", s.handleListDocuments)
	if s.exporter != nil {
		mux.HandleFunc("GET /patients/{patientID}/export", s.handleExport)
	}
	mux.Handle("GET /healthz", s.health.LiveHandler())
	mux.Handle("GET /readyz", s.health.ReadyHandler())
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return chain(mux, RequestID(s.logger), Metrics(s.metrics), AccessLog(s.logger))
}

// NewHTTPServer wraps h with the configured timeouts.
func NewHTTPServer(cfg common.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

type errorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Message: msg})
}

// writeError maps err onto a status code. Internal causes are logged, not returned.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := common.HTTPStatus(err)
	resp := errorResponse{Message: err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		if status >= http.StatusInternalServerError {
			resp.Error = appErr.Code
		}
	} else if status >= http.StatusInternalServerError {
		resp.Message = "internal server error"
	}
	if status >= http.StatusInternalServerError {
		common.LoggerFromContext(ctx, s.logger).Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}
