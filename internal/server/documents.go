package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/meddocs/internal/common"
)

const (
	defaultListLimit = 50
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func patientIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("patientID"), 10, 64)
	return id, err == nil && id > 0
}

// handleGetDocument implements GET /documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleListDocuments implements GET /patients/{patientID}/documents?limit=N.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientIDParam(r)
	if !ok {
		badRequest(w, "patientID must be a positive integer")
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	docs, err := s.docs.ListByPatient(r.Context(), patientID, limit)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patient_id": patientID,
		"count":      len(docs),
		"documents":  docs,
	})
}

// handleExport implements GET /patients/{patientID}/export?from=YYYY-MM-DD&to=YYYY-MM-DD.
// - only from -> from..today (inclusive)
// - only to   -> beginning..to (inclusive)
// - none      -> all.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientIDParam(r)
	if !ok {
		badRequest(w, "patientID must be a positive integer")
		return
	}

	var fromPtr, toPtr *time.Time
	if fd := strings.TrimSpace(r.URL.Query().Get("from")); fd != "" {
		t, err := time.Parse("2006-01-02", fd)
		if err != nil {
			badRequest(w, "from must be YYYY-MM-DD")
			return
		}
		fromPtr = &t
	}
	if td := strings.TrimSpace(r.URL.Query().Get("to")); td != "" {
		t, err := time.Parse("2006-01-02", td)
		if err != nil {
			badRequest(w, "to must be YYYY-MM-DD")
			return
		}
		toPtr = &t
	}

	xlsx, err := s.exporter.ExportPatientXLSX(r.Context(), patientID, fromPtr, toPtr)
	if err != nil {
		common.LoggerFromContext(r.Context(), s.logger).Error("export.xlsx.failed", "patient_id", patientID, "err", err)
		s.writeError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="patient-%d-documents.xlsx"`, patientID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}
