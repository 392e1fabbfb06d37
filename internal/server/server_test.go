package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/async"
	"github.com/joseph-ayodele/meddocs/internal/core"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/export"
	"github.com/joseph-ayodele/meddocs/internal/metrics"
	"github.com/joseph-ayodele/meddocs/internal/repository"
	"github.com/joseph-ayodele/meddocs/internal/storage"
)

type stubAssembler struct{ res entity.Result }

func (s stubAssembler) Assemble(context.Context, entity.RawDocument, string, int64, *int64) entity.Result {
	return s.res
}

func labRecord() *entity.StructuredRecord {
	tr := entity.TranslationSet{}
	sum := entity.SummarySet{}
	fmtd := entity.FormattedSet{}
	for _, role := range constants.AvailableRoles() {
		tr[role] = entity.TranslationEntry{Code: "en", Name: "English", Text: "Hemoglobin: 10.1 g/dL (12.0-16.0)"}
		sum[role] = "LABORATORY REPORT\nABNORMAL FINDINGS:\n- Hemoglobin: 10.1 g/dL"
		fmtd[role] = "DOCUMENT TYPE: Laboratory Report"
	}
	return &entity.StructuredRecord{
		DocumentType:       constants.LaboratoryReport,
		OriginalLanguage:   entity.LanguageTag{Code: "en", Name: "English"},
		Translations:       tr,
		Summaries:          sum,
		Formatted:          fmtd,
		AvailableLanguages: constants.AvailableRoles(),
		SummaryStrategy:    constants.StrategyRuleBased,
		GeneratedAt:        time.Now().UTC(),
	}
}

type fixture struct {
	handler http.Handler
	repo    *repository.SQLDocumentRepository
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, res entity.Result, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()
	db, dial, err := repository.OpenSQL(ctx, "sqlite", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := repository.Migrate(ctx, db, dial); err != nil {
		t.Fatal(err)
	}
	repo := repository.NewSQLDocumentRepository(db, dial, nil)
	uploads, err := storage.NewLocalArchive(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(nil)
	proc := core.NewProcessor(nil, stubAssembler{res: res}, repo, core.WithMetrics(m))

	opts = append([]Option{WithMetrics(m), WithExporter(export.NewService(repo, nil))}, opts...)
	srv := NewServer(proc, repo, uploads, nil, opts...)
	return fixture{handler: srv.Handler(), repo: repo, metrics: m}
}

func uploadRequest(t *testing.T, target string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUploadProcessesAndStores(t *testing.T) {
	f := newFixture(t, entity.Result{Record: labRecord()})

	req := uploadRequest(t, "/documents/upload", map[string]string{
		"patient_id": "12",
		"checkin_id": "4",
		"file_type":  "lab_result",
	}, "blood panel.pdf", "%PDF-1.4 fake")
	rec := serve(f.handler, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
	body := decode(t, rec)
	if body["message"] != "Document uploaded and processed successfully" {
		t.Fatalf("message = %v", body["message"])
	}
	if !strings.HasSuffix(body["file_path"].(string), "_blood_panel.pdf") {
		t.Fatalf("file_path = %v", body["file_path"])
	}
	if !strings.HasPrefix(body["ai_response"].(string), "LABORATORY REPORT") {
		t.Fatalf("ai_response = %v", body["ai_response"])
	}
	sd := body["structured_data"].(map[string]any)
	if sd["document_type"] != string(constants.LaboratoryReport) {
		t.Fatalf("structured_data = %v", sd)
	}
	id := body["record_id"].(string)

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d body = %s", rec.Code, rec.Body)
	}
	doc := decode(t, rec)
	if doc["patient_id"].(float64) != 12 || doc["checkin_id"].(float64) != 4 {
		t.Fatalf("stored = %v", doc)
	}

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/patients/12/documents", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["count"].(float64) != 1 {
		t.Fatalf("list status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t, entity.Result{Record: labRecord()})

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		content  string
		want     string
	}{
		{"no file", map[string]string{"patient_id": "1"}, "", "", "No file part"},
		{"no patient", nil, "a.pdf", "x", "Patient ID is required"},
		{"bad patient", map[string]string{"patient_id": "abc"}, "a.pdf", "x", "patient_id must be a positive integer"},
		{"bad checkin", map[string]string{"patient_id": "1", "checkin_id": "-2"}, "a.pdf", "x", "checkin_id must be a positive integer"},
		{"unsupported", map[string]string{"patient_id": "1"}, "notes.docx", "x", "Unsupported file type: .docx"},
		{"empty", map[string]string{"patient_id": "1"}, "a.pdf", "", "Uploaded file is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(f.handler, uploadRequest(t, "/documents/upload", tt.fields, tt.filename, tt.content))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
			}
			if got := decode(t, rec)["message"]; got != tt.want {
				t.Fatalf("message = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestUploadFailureReturns500(t *testing.T) {
	f := newFixture(t, entity.Result{Failure: entity.NewFailure(errors.New("ocr engine unavailable"), "partial text")})

	rec := serve(f.handler, uploadRequest(t, "/documents/upload", map[string]string{"patient_id": "3"}, "scan.png", "img"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	body := decode(t, rec)
	if body["error"] != "ocr engine unavailable" || body["document_type"] != "Unknown" || body["original_text"] != "partial text" {
		t.Fatalf("body = %v", body)
	}

	docs, err := f.repo.ListByPatient(context.Background(), 3, 0)
	if err != nil || len(docs) != 0 {
		t.Fatalf("failures must not be stored: %v %v", docs, err)
	}
}

type chanQueue struct{ jobs chan async.Job }

func (q chanQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs <- job
	return nil
}

func (q chanQueue) Shutdown(context.Context) {}

func TestUploadAsyncQueues(t *testing.T) {
	q := chanQueue{jobs: make(chan async.Job, 1)}
	f := newFixture(t, entity.Result{Record: labRecord()}, WithQueue(q))

	req := uploadRequest(t, "/documents/upload?async=true", map[string]string{"patient_id": "5", "file_type": "prescription"}, "rx.jpg", "jpeg")
	req.Header.Set(requestIDHeader, "req-123")
	rec := serve(f.handler, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	job := <-q.jobs
	if job.PatientID != 5 || job.DeclaredType != "prescription" || job.TraceID != "req-123" || job.Document.Ext != "jpg" {
		t.Fatalf("job = %+v", job)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	f := newFixture(t, entity.Result{Record: labRecord()})
	for _, id := range []string{"8d7d3f64-4c59-4b2a-9a43-2f8f3ad4c0a1", "not-a-uuid"} {
		rec := serve(f.handler, httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d", id, rec.Code)
		}
	}
	rec := serve(f.handler, httptest.NewRequest(http.MethodGet, "/patients/zero/documents", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad patient id status = %d", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	f := newFixture(t, entity.Result{Record: labRecord()})
	rec := serve(f.handler, uploadRequest(t, "/documents/upload", map[string]string{"patient_id": "7"}, "lab.pdf", "%PDF"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/patients/7/export", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != xlsxContentType || rec.Body.Len() == 0 {
		t.Fatalf("export status = %d type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/patients/7/export?from=03-01-2024", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	checker := NewHealthChecker(time.Second, nil)
	checker.Register("db", true, func(context.Context) error { return nil })
	checker.Register("redis", false, func(context.Context) error { return errors.New("connection refused") })
	f := newFixture(t, entity.Result{Record: labRecord()}, WithHealth(checker))

	rec := serve(f.handler, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != string(StatusDegraded) {
		t.Fatalf("readyz = %d %s", rec.Code, rec.Body)
	}

	checker.Register("db", true, func(context.Context) error { return errors.New("down") })
	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with db down = %d", rec.Code)
	}

	rec = serve(f.handler, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("metrics = %d", rec.Code)
	}
}
