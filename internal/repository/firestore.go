package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

// firestoreDocument is the Firestore shape of a documents row.
type firestoreDocument struct {
	PatientID        int64     `firestore:"patientId"`
	CheckinID        *int64    `firestore:"checkinId,omitempty"`
	Type             string    `firestore:"type"`
	OriginalFilename string    `firestore:"originalFilename"`
	FilePath         string    `firestore:"filePath"`
	ExtractedText    string    `firestore:"extractedText"`
	StructuredData   string    `firestore:"structuredData"`
	Language         string    `firestore:"language"`
	Status           string    `firestore:"status"`
	UploadedOn       time.Time `firestore:"uploadedOn"`
}

// FirestoreDocumentRepository stores documents in a Firestore collection keyed by record id.
type FirestoreDocumentRepository struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
	now        func() time.Time
}

func NewFirestoreDocumentRepository(client *firestore.Client, collection string, logger *slog.Logger) *FirestoreDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if collection == "" {
		collection = documentsTable
	}
	return &FirestoreDocumentRepository{client: client, collection: collection, logger: logger, now: time.Now}
}

func (r *FirestoreDocumentRepository) Save(ctx context.Context, rec *entity.StructuredRecord, meta SaveMeta) (string, error) {
	doc, err := NewStoredDocument(rec, meta, r.now())
	if err != nil {
		return "", err
	}
	ref := r.client.Collection(r.collection).Doc(doc.ID.String())
	if _, err := ref.Create(ctx, toFirestore(doc)); err != nil {
		r.logger.Error("failed to save document", "patient_id", meta.PatientID, "file", meta.OriginalFilename, "error", err)
		return "", common.PersistenceError("saving document to firestore", err)
	}
	r.logger.Debug("document saved", "id", doc.ID, "collection", r.collection)
	return doc.ID.String(), nil
}

func (r *FirestoreDocumentRepository) Get(ctx context.Context, id string) (*entity.StoredDocument, error) {
	u, err := parseID(id)
	if err != nil {
		return nil, err
	}
	snap, err := r.client.Collection(r.collection).Doc(u.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, notFound(id)
	}
	if err != nil {
		r.logger.Error("failed to get document", "id", id, "error", err)
		return nil, common.PersistenceError("loading document from firestore", err)
	}
	return fromSnapshot(snap)
}

func (r *FirestoreDocumentRepository) ListByPatient(ctx context.Context, patientID int64, limit int) ([]*entity.StoredDocument, error) {
	q := r.client.Collection(r.collection).
		Where("patientId", "==", patientID).
		OrderBy("uploadedOn", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		r.logger.Error("failed to list documents", "patient_id", patientID, "error", err)
		return nil, common.PersistenceError("listing documents from firestore", err)
	}
	out := make([]*entity.StoredDocument, 0, len(snaps))
	for _, snap := range snaps {
		doc, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func toFirestore(doc *entity.StoredDocument) firestoreDocument {
	return firestoreDocument{
		PatientID:        doc.PatientID,
		CheckinID:        doc.CheckinID,
		Type:             doc.Type,
		OriginalFilename: doc.OriginalFilename,
		FilePath:         doc.FilePath,
		ExtractedText:    doc.ExtractedText,
		StructuredData:   string(doc.StructuredData),
		Language:         doc.Language,
		Status:           doc.Status,
		UploadedOn:       doc.UploadedOn,
	}
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*entity.StoredDocument, error) {
	var fd firestoreDocument
	if err := snap.DataTo(&fd); err != nil {
		return nil, common.PersistenceError("decoding firestore document", err)
	}
	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return nil, common.PersistenceError(fmt.Sprintf("firestore document id %q", snap.Ref.ID), err)
	}
	return &entity.StoredDocument{
		ID:               id,
		PatientID:        fd.PatientID,
		CheckinID:        fd.CheckinID,
		Type:             fd.Type,
		OriginalFilename: fd.OriginalFilename,
		FilePath:         fd.FilePath,
		ExtractedText:    fd.ExtractedText,
		StructuredData:   []byte(fd.StructuredData),
		Language:         fd.Language,
		Status:           fd.Status,
		UploadedOn:       fd.UploadedOn.UTC(),
	}, nil
}
