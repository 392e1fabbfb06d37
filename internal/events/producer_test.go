package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishProcessedKeysByPatient(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, nil)

	checkin := int64(5)
	err := p.PublishProcessed(context.Background(), DocumentProcessed{
		RecordID:     "0b7c",
		PatientID:    42,
		CheckinID:    &checkin,
		Filename:     "befund.pdf",
		DocumentType: "Laboratory Report",
		Status:       "PROCESSED",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "42" {
		t.Fatalf("messages = %+v", w.msgs)
	}
	var ev DocumentProcessed
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.RecordID != "0b7c" || ev.ProcessedAt.IsZero() || ev.CheckinID == nil || *ev.CheckinID != 5 {
		t.Fatalf("event = %+v", ev)
	}
}

func TestPublishProcessedWrapsWriterError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := NewProducerWithWriter(&recordingWriter{err: boom}, nil, nil)
	if err := p.PublishProcessed(context.Background(), DocumentProcessed{PatientID: 1}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
