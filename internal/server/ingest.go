package server

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/async"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

const multipartMemory = 8 << 20

type uploadResponse struct {
	Message        string                   `json:"message"`
	FilePath       string                   `json:"file_path"`
	ExtractedText  string                   `json:"extracted_text,omitempty"`
	AIResponse     string                   `json:"ai_response,omitempty"`
	StructuredData *entity.StructuredRecord `json:"structured_data,omitempty"`
	RecordID       string                   `json:"record_id,omitempty"`
}

type failureResponse struct {
	Error        string             `json:"error"`
	Message      string             `json:"message"`
	OriginalText string             `json:"original_text"`
	DocumentType constants.Category `json:"document_type"`
}

// uploadForm is the validated multipart request.
type uploadForm struct {
	file         multipart.File
	header       *multipart.FileHeader
	patientID    int64
	checkinID    *int64
	declaredType string
}

// handleUpload implements POST /documents/upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := common.LoggerFromContext(ctx, s.logger)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	form, status, msg := parseUpload(r)
	if status != 0 {
		log.Warn("upload rejected", "reason", msg)
		writeJSON(w, status, errorResponse{Message: msg})
		return
	}
	defer form.file.Close()
	log = log.With("patient_id", form.patientID, "file", form.header.Filename)

	path, err := s.uploads.Save(ctx, form.header.Filename, form.file)
	if err != nil {
		s.writeError(ctx, w, common.NewAppError("UPLOAD_ERROR", "could not store upload", err))
		return
	}
	s.mirrorUpload(r, log, path)

	raw, err := entity.NewRawDocumentFromPath(path, form.declaredType)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	if r.URL.Query().Get("async") == "true" && s.queue != nil {
		job := async.Job{
			Document:     raw,
			DeclaredType: form.declaredType,
			PatientID:    form.patientID,
			CheckinID:    form.checkinID,
			SubmittedAt:  time.Now().UTC(),
			TraceID:      common.RequestIDFromContext(ctx),
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			log.Error("enqueue failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: "processing queue unavailable"})
			return
		}
		log.Info("upload queued", "file_path", path)
		writeJSON(w, http.StatusAccepted, uploadResponse{Message: "Document uploaded and queued for processing", FilePath: path})
		return
	}

	out, err := s.proc.Process(ctx, raw, form.declaredType, form.patientID, form.checkinID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if f := out.Result.Failure; f != nil {
		writeJSON(w, http.StatusInternalServerError, failureResponse{
			Error:        f.Error,
			Message:      "Document processing failed",
			OriginalText: f.OriginalText,
			DocumentType: f.DocumentType,
		})
		return
	}

	rec := out.Result.Record
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:        "Document uploaded and processed successfully",
		FilePath:       path,
		ExtractedText:  rec.OriginalText(),
		AIResponse:     rec.EnglishSummary(),
		StructuredData: rec,
		RecordID:       out.RecordID,
	})
}

// parseUpload returns a non-zero status with a message when the request is unusable.
func parseUpload(r *http.Request) (uploadForm, int, string) {
	var form uploadForm
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, http.StatusRequestEntityTooLarge, "File exceeds the upload limit"
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return form, http.StatusBadRequest, "No file part"
		}
		return form, http.StatusBadRequest, "Invalid multipart form"
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return form, http.StatusBadRequest, "No file part"
	}
	reject := func(msg string) (uploadForm, int, string) {
		_ = file.Close()
		return uploadForm{}, http.StatusBadRequest, msg
	}
	if header.Filename == "" {
		return reject("No selected file")
	}

	pid := strings.TrimSpace(r.FormValue("patient_id"))
	if pid == "" {
		return reject("Patient ID is required")
	}
	patientID, err := strconv.ParseInt(pid, 10, 64)
	if err != nil || patientID <= 0 {
		return reject("patient_id must be a positive integer")
	}

	var checkinID *int64
	if cid := strings.TrimSpace(r.FormValue("checkin_id")); cid != "" {
		v, err := strconv.ParseInt(cid, 10, 64)
		if err != nil || v <= 0 {
			return reject("checkin_id must be a positive integer")
		}
		checkinID = &v
	}

	ext := filepath.Ext(header.Filename)
	if !constants.AllowedExt(ext) {
		return reject("Unsupported file type: " + strings.ToLower(ext))
	}
	if header.Size == 0 {
		return reject("Uploaded file is empty")
	}

	form = uploadForm{
		file:         file,
		header:       header,
		patientID:    patientID,
		checkinID:    checkinID,
		declaredType: strings.TrimSpace(r.FormValue("file_type")),
	}
	return form, 0, ""
}

func (s *Server) mirrorUpload(r *http.Request, log *slog.Logger, path string) {
	if s.mirror == nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		log.Warn("mirror open failed", "file_path", path, "error", err)
		return
	}
	defer f.Close()
	dst, err := s.mirror.Save(r.Context(), filepath.Base(path), f)
	if err != nil {
		log.Warn("mirror upload failed", "file_path", path, "error", err)
		return
	}
	log.Debug("upload mirrored", "file_path", path, "mirror", dst)
}
