package cloudfn

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/core"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

type call struct {
	raw       entity.RawDocument
	declared  string
	patientID int64
	checkinID *int64
}

type recordingProcessor struct {
	calls []call
	res   entity.Result
	err   error
}

func (r *recordingProcessor) Process(_ context.Context, raw entity.RawDocument, declared string, patientID int64, checkinID *int64) (core.ProcessOutcome, error) {
	r.calls = append(r.calls, call{raw, declared, patientID, checkinID})
	return core.ProcessOutcome{RecordID: "rec-1", Result: r.res}, r.err
}

func fakeDownload(content string) Downloader {
	return func(_ context.Context, _, _, dst string) (int64, error) {
		return int64(len(content)), os.WriteFile(dst, []byte(content), 0o644)
	}
}

func okResult() entity.Result {
	return entity.Result{Record: &entity.StructuredRecord{DocumentType: "Laboratory Report"}}
}

func TestProcessUsesMetadataAndFilename(t *testing.T) {
	proc := &recordingProcessor{res: okResult()}
	h := NewHandler(proc, fakeDownload("%PDF"), 0, nil)

	err := h.Process(context.Background(), GCSEvent{
		Bucket:   "intake",
		Name:     "uploads/42_befund.pdf",
		Metadata: map[string]string{"checkin_id": "6", "file_type": "lab_result"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(proc.calls) != 1 {
		t.Fatalf("calls = %d", len(proc.calls))
	}
	c := proc.calls[0]
	if c.patientID != 42 || *c.checkinID != 6 || c.declared != "lab_result" || c.raw.Filename != "42_befund.pdf" || c.raw.Ext != "pdf" {
		t.Fatalf("call = %+v", c)
	}

	if err := h.Process(context.Background(), GCSEvent{
		Bucket:   "intake",
		Name:     "scan.png",
		Metadata: map[string]string{"patient_id": "9"},
	}); err != nil {
		t.Fatal(err)
	}
	if proc.calls[1].patientID != 9 {
		t.Fatalf("metadata patient id ignored: %+v", proc.calls[1])
	}
}

func TestProcessSkipsUnusableObjects(t *testing.T) {
	proc := &recordingProcessor{res: okResult()}
	h := NewHandler(proc, fakeDownload("x"), 0, nil)

	for _, name := range []string{"notes.txt", "scan.png"} {
		if err := h.Process(context.Background(), GCSEvent{Bucket: "b", Name: name}); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if len(proc.calls) != 0 {
		t.Fatalf("unsupported or unassigned objects must be skipped: %+v", proc.calls)
	}
}

func TestProcessRetriesOnlyPersistenceErrors(t *testing.T) {
	dbErr := common.PersistenceError("saving document", errors.New("connection reset"))
	h := NewHandler(&recordingProcessor{res: okResult(), err: dbErr}, fakeDownload("x"), 1, nil)
	if err := h.Process(context.Background(), GCSEvent{Bucket: "b", Name: "a.pdf"}); !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("err = %v", err)
	}

	failed := &recordingProcessor{res: entity.Result{Failure: entity.NewFailure(errors.New("ocr failed"), "")}}
	h = NewHandler(failed, fakeDownload("x"), 1, nil)
	if err := h.Process(context.Background(), GCSEvent{Bucket: "b", Name: "a.pdf"}); err != nil {
		t.Fatalf("pipeline failure must be acknowledged: %v", err)
	}

	download := func(context.Context, string, string, string) (int64, error) { return 0, errors.New("403") }
	h = NewHandler(failed, download, 1, nil)
	if err := h.Process(context.Background(), GCSEvent{Bucket: "b", Name: "a.pdf"}); err == nil {
		t.Fatal("download errors must be returned")
	}
}

func TestHandleEvent(t *testing.T) {
	proc := &recordingProcessor{res: okResult()}
	h := NewHandler(proc, fakeDownload("img"), 0, nil)

	e := cloudevents.NewEvent()
	e.SetID("evt-1")
	e.SetSource("//storage.googleapis.com/projects/_/buckets/intake")
	e.SetType("google.cloud.storage.object.v1.finalized")
	data, _ := json.Marshal(GCSEvent{Bucket: "intake", Name: "3-xray.jpg"})
	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		t.Fatal(err)
	}
	if err := h.HandleEvent(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if len(proc.calls) != 1 || proc.calls[0].patientID != 3 {
		t.Fatalf("calls = %+v", proc.calls)
	}

	bad := cloudevents.NewEvent()
	_ = bad.SetData(cloudevents.TextPlain, []byte("not json"))
	if err := h.HandleEvent(context.Background(), bad); err == nil {
		t.Fatal("malformed payload must fail")
	}
}
