package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/async"
	"github.com/joseph-ayodele/meddocs/internal/core"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPatientIDFromFilename(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		ok   bool
	}{
		{"42_lab.pdf", 42, true},
		{"/inbox/7-scan.heic", 7, true},
		{"lab_42.pdf", 0, false},
		{"0_lab.pdf", 0, false},
		{"42.pdf", 0, false},
	}
	for _, tt := range tests {
		id, ok := PatientIDFromFilename(tt.name)
		if id != tt.id || ok != tt.ok {
			t.Errorf("%s: got %d/%v, want %d/%v", tt.name, id, ok, tt.id, tt.ok)
		}
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "1_a.pdf"), "x")
	touch(t, filepath.Join(root, "sub", "2_b.HEIC"), "x")
	touch(t, filepath.Join(root, "notes.txt"), "x")
	touch(t, filepath.Join(root, ".hidden", "3_c.png"), "x")

	paths, stats, err := ScanDirectory(root, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || stats.Matched != 2 || stats.Scanned != 3 {
		t.Fatalf("paths = %v stats = %+v", paths, stats)
	}

	all, _, err := ScanDirectory(root, false)
	if err != nil || len(all) != 3 {
		t.Fatalf("with hidden: %v %v", all, err)
	}

	if _, _, err := ScanDirectory("  ", false); err == nil {
		t.Fatal("blank root must fail")
	}
}

type fakeProcessor struct {
	mu       sync.Mutex
	patients map[string]int64
}

func (f *fakeProcessor) Process(_ context.Context, raw entity.RawDocument, _ string, patientID int64, _ *int64) (core.ProcessOutcome, error) {
	f.mu.Lock()
	f.patients[raw.Filename] = patientID
	f.mu.Unlock()
	switch raw.Filename {
	case "9_broken.pdf":
		return core.ProcessOutcome{Result: entity.Result{Failure: entity.NewFailure(errors.New("ocr engine unavailable"), "")}}, nil
	case "9_db.pdf":
		return core.ProcessOutcome{}, errors.New("PERSISTENCE_ERROR: saving document")
	}
	return core.ProcessOutcome{
		RecordID: "id-" + raw.Filename,
		Result: entity.Result{Record: &entity.StructuredRecord{
			DocumentType:     constants.LaboratoryReport,
			OriginalLanguage: entity.LanguageTag{Code: "de", Name: "German"},
			Summaries:        entity.SummarySet{constants.RoleEnglish: "LABORATORY REPORT"},
		}},
	}, nil
}

func TestDirectoryIngestor(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"5_lab.pdf", "scan.png", "9_broken.pdf", "9_db.pdf"} {
		touch(t, filepath.Join(root, name), "content")
	}
	proc := &fakeProcessor{patients: map[string]int64{}}
	ing := NewDirectoryIngestor(proc, 3, "", 2, nil)

	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Matched != 4 || stats.Succeeded != 2 || stats.Failed != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if proc.patients["5_lab.pdf"] != 5 || proc.patients["scan.png"] != 3 {
		t.Fatalf("patients = %v", proc.patients)
	}

	sort.Slice(results, func(a, b int) bool { return results[a].Path < results[b].Path })
	byName := map[string]FileResult{}
	for _, r := range results {
		byName[filepath.Base(r.Path)] = r
	}
	if r := byName["5_lab.pdf"]; r.RecordID != "id-5_lab.pdf" || r.Language != "de" || r.Summary != "LABORATORY REPORT" {
		t.Fatalf("lab result = %+v", r)
	}
	if r := byName["9_broken.pdf"]; r.Err != "ocr engine unavailable" || r.DocumentType != string(constants.Unknown) {
		t.Fatalf("broken result = %+v", r)
	}

	noDefault := NewDirectoryIngestor(proc, 0, "", 1, nil)
	results, _, err = noDefault.IngestDirectory(context.Background(), root, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if filepath.Base(r.Path) == "scan.png" && r.Err == "" {
			t.Fatal("file without patient id must fail when there is no default")
		}
	}
}

type chanQueue struct{ jobs chan async.Job }

func (q chanQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs <- job
	return nil
}

func (q chanQueue) Shutdown(context.Context) {}

func TestRunInboxEnqueuesNewFiles(t *testing.T) {
	inbox := t.TempDir()
	touch(t, filepath.Join(inbox, "11_existing.pdf"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := chanQueue{jobs: make(chan async.Job, 4)}
	done := make(chan error, 1)
	go func() {
		done <- RunInbox(ctx, InboxConfig{
			Watch: WatchConfig{Roots: []string{inbox}, InitialScan: true, Debounce: 50 * time.Millisecond},
		}, q, nil)
	}()

	select {
	case job := <-q.jobs:
		if job.PatientID != 11 || job.Document.Filename != "11_existing.pdf" || job.TraceID == "" {
			t.Fatalf("job = %+v", job)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("initial file was not enqueued")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunInbox did not stop")
	}
}
