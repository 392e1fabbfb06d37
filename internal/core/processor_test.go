package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/events"
	"github.com/joseph-ayodele/meddocs/internal/repository"
)

type stubAssembler struct {
	res   entity.Result
	calls int
}

func (s *stubAssembler) Assemble(context.Context, entity.RawDocument, string, int64, *int64) entity.Result {
	s.calls++
	return s.res
}

type recordingSink struct {
	meta []repository.SaveMeta
	err  error
}

func (r *recordingSink) Save(_ context.Context, _ *entity.StructuredRecord, meta repository.SaveMeta) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.meta = append(r.meta, meta)
	return "rec-1", nil
}

type recordingPublisher struct {
	events []events.DocumentProcessed
	err    error
}

func (p *recordingPublisher) PublishProcessed(_ context.Context, ev events.DocumentProcessed) error {
	p.events = append(p.events, ev)
	return p.err
}

func validRecord() *entity.StructuredRecord {
	tr := entity.TranslationSet{}
	sum := entity.SummarySet{}
	fmtd := entity.FormattedSet{}
	for _, role := range constants.AvailableRoles() {
		tr[role] = entity.TranslationEntry{Code: "en", Name: "English", Text: "Glucose: 90 mg/dL"}
		sum[role] = "LABORATORY REPORT"
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

func writeFile(t *testing.T, name, content string) entity.RawDocument {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err := entity.NewRawDocumentFromPath(path, "")
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestProcessStoresAndPublishes(t *testing.T) {
	asm := &stubAssembler{res: entity.Result{Record: validRecord()}}
	sink := &recordingSink{}
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := NewProcessor(nil, asm, sink, WithPublisher(pub))

	checkin := int64(9)
	raw := writeFile(t, "lab.pdf", "%PDF")
	out, err := p.Process(context.Background(), raw, "lab_result", 4, &checkin)
	if err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if out.RecordID != "rec-1" || !out.Result.OK() {
		t.Fatalf("outcome = %+v", out)
	}
	if len(sink.meta) != 1 || sink.meta[0].PatientID != 4 || *sink.meta[0].CheckinID != 9 || sink.meta[0].OriginalFilename != "lab.pdf" {
		t.Fatalf("meta = %+v", sink.meta)
	}
	if len(pub.events) != 1 || pub.events[0].Status != string(constants.RecordStatusProcessed) || pub.events[0].RecordID != "rec-1" {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestProcessFailureIsNotAnError(t *testing.T) {
	asm := &stubAssembler{res: entity.Result{Failure: entity.NewFailure(errors.New("ocr engine unavailable"), "")}}
	sink := &recordingSink{}
	pub := &recordingPublisher{}
	p := NewProcessor(nil, asm, sink, WithPublisher(pub))

	out, err := p.Process(context.Background(), writeFile(t, "x.png", "img"), "", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.OK() || out.RecordID != "" || len(sink.meta) != 0 {
		t.Fatalf("failure must not be stored: %+v", out)
	}
	if len(pub.events) != 1 || pub.events[0].Status != string(constants.RecordStatusFailed) || pub.events[0].Error == "" {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestProcessSchemaViolationBecomesFailure(t *testing.T) {
	rec := validRecord()
	delete(rec.Summaries, constants.RoleGerman)
	p := NewProcessor(nil, &stubAssembler{res: entity.Result{Record: rec}}, &recordingSink{})

	out, err := p.Process(context.Background(), writeFile(t, "a.pdf", "x"), "", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.OK() || out.Result.Failure.DocumentType != constants.Unknown {
		t.Fatalf("outcome = %+v", out.Result)
	}

	p = NewProcessor(nil, &stubAssembler{res: entity.Result{Record: rec}}, &recordingSink{}, WithValidation(false))
	if out, _ := p.Process(context.Background(), writeFile(t, "a.pdf", "x"), "", 1, nil); !out.Result.OK() {
		t.Fatal("validation disabled should store the record as is")
	}
}

func TestProcessErrors(t *testing.T) {
	asm := &stubAssembler{res: entity.Result{Record: validRecord()}}
	empty := writeFile(t, "empty.pdf", "")

	p := NewProcessor(nil, asm, &recordingSink{})
	if _, err := p.Process(context.Background(), empty, "", 1, nil); !errors.Is(err, common.ErrEmptyDocument) {
		t.Fatalf("empty file: %v", err)
	}
	if _, err := p.Process(context.Background(), writeFile(t, "a.pdf", "x"), "", 0, nil); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("missing patient: %v", err)
	}
	if asm.calls != 0 {
		t.Fatal("assembler must not run on rejected input")
	}

	dbErr := common.PersistenceError("saving document", errors.New("connection reset"))
	p = NewProcessor(nil, asm, &recordingSink{err: dbErr})
	out, err := p.Process(context.Background(), writeFile(t, "a.pdf", "x"), "", 1, nil)
	if !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("persistence error: %v", err)
	}
	if !out.Result.OK() {
		t.Fatal("the record is still returned alongside a persistence error")
	}
}

func TestProcessFileWithSQLiteSink(t *testing.T) {
	ctx := context.Background()
	db, dial, err := repository.OpenSQL(ctx, "sqlite", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db, dial); err != nil {
		t.Fatal(err)
	}
	repo := repository.NewSQLDocumentRepository(db, dial, nil)
	p := NewProcessor(nil, &stubAssembler{res: entity.Result{Record: validRecord()}}, repo)

	path := filepath.Join(t.TempDir(), "lab.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := p.ProcessFile(ctx, path, "", 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := repo.Get(ctx, out.RecordID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.FilePath != path || doc.Type != string(constants.LaboratoryReport) {
		t.Fatalf("stored = %+v", doc)
	}
}
