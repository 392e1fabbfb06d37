package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

const documentsTable = "documents"

var documentColumns = []string{
	"id",
	"patient_id",
	"checkin_id",
	"type",
	"original_filename",
	"file_path",
	"extracted_text",
	"structured_data",
	"language",
	"status",
	"uploaded_on",
}

// SaveMeta is the upload context stored next to a record.
type SaveMeta struct {
	PatientID        int64
	CheckinID        *int64
	OriginalFilename string
	FilePath         string
	ExtractedText    string
}

// DocumentSink persists a finished record and returns its id.
type DocumentSink interface {
	Save(ctx context.Context, rec *entity.StructuredRecord, meta SaveMeta) (string, error)
}

// DocumentRepository is a sink that can also read back what it stored.
type DocumentRepository interface {
	DocumentSink
	Get(ctx context.Context, id string) (*entity.StoredDocument, error)
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]*entity.StoredDocument, error)
}

// NewStoredDocument builds the row for rec. The id and upload time are assigned here.
func NewStoredDocument(rec *entity.StructuredRecord, meta SaveMeta, now time.Time) (*entity.StoredDocument, error) {
	if rec == nil {
		return nil, common.NewAppError("VALIDATION_ERROR", "record is nil", common.ErrInvalidInput)
	}
	if meta.PatientID <= 0 {
		return nil, common.NewAppError("VALIDATION_ERROR", "patient_id must be positive", common.ErrInvalidInput)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding structured record: %w", err)
	}
	text := meta.ExtractedText
	if text == "" {
		text = rec.OriginalText()
	}
	return &entity.StoredDocument{
		ID:               uuid.New(),
		PatientID:        meta.PatientID,
		CheckinID:        meta.CheckinID,
		Type:             string(rec.DocumentType),
		OriginalFilename: meta.OriginalFilename,
		FilePath:         meta.FilePath,
		ExtractedText:    text,
		StructuredData:   data,
		Language:         rec.OriginalLanguage.Code,
		Status:           string(constants.RecordStatusProcessed),
		UploadedOn:       now.UTC(),
	}, nil
}

func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("document %q", id), common.ErrNotFound)
	}
	return u, nil
}

func notFound(id string) error {
	return common.NewAppError("NOT_FOUND", fmt.Sprintf("document %q", id), common.ErrNotFound)
}

// insertQuery renders the insert for doc in the given dialect.
func insertQuery(dial string, doc *entity.StoredDocument) (string, []any) {
	return entsql.Dialect(dial).
		Insert(documentsTable).
		Columns(documentColumns...).
		Values(
			doc.ID.String(),
			doc.PatientID,
			doc.CheckinID,
			doc.Type,
			doc.OriginalFilename,
			doc.FilePath,
			doc.ExtractedText,
			string(doc.StructuredData),
			doc.Language,
			doc.Status,
			timeArg(dial, doc.UploadedOn),
		).
		Query()
}

func selectByIDQuery(dial, id string) (string, []any) {
	b := entsql.Dialect(dial)
	return b.Select(documentColumns...).
		From(b.Table(documentsTable)).
		Where(entsql.EQ("id", id)).
		Query()
}

func selectByPatientQuery(dial string, patientID int64, limit int) (string, []any) {
	b := entsql.Dialect(dial)
	s := b.Select(documentColumns...).
		From(b.Table(documentsTable)).
		Where(entsql.EQ("patient_id", patientID)).
		OrderBy(entsql.Desc("uploaded_on"))
	if limit > 0 {
		s.Limit(limit)
	}
	return s.Query()
}

// SQLite has no native timestamp type; times are stored as fixed-width
// RFC 3339 text so they sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeArg(dial string, t time.Time) any {
	if dial == dialect.SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.StoredDocument, error) {
	var (
		id       string
		checkin  *int64
		data     []byte
		uploaded any
		doc      entity.StoredDocument
	)
	if err := row.Scan(
		&id,
		&doc.PatientID,
		&checkin,
		&doc.Type,
		&doc.OriginalFilename,
		&doc.FilePath,
		&doc.ExtractedText,
		&data,
		&doc.Language,
		&doc.Status,
		&uploaded,
	); err != nil {
		return nil, err
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("stored id %q: %w", id, err)
	}
	ts, err := asTime(uploaded)
	if err != nil {
		return nil, err
	}
	doc.ID = u
	doc.CheckinID = checkin
	doc.StructuredData = json.RawMessage(data)
	doc.UploadedOn = ts
	return &doc, nil
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unexpected uploaded_on type %T", v)
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable uploaded_on %q", s)
}
