package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StoredDocument represents a persisted documents row for data transfer between layers.
type StoredDocument struct {
	ID               uuid.UUID       `json:"id"`
	PatientID        int64           `json:"patient_id"`
	CheckinID        *int64          `json:"checkin_id,omitempty"`
	Type             string          `json:"type"`
	OriginalFilename string          `json:"original_filename"`
	FilePath         string          `json:"file_path"`
	ExtractedText    string          `json:"extracted_text"`
	StructuredData   json.RawMessage `json:"structured_data"`
	Language         string          `json:"language"`
	Status           string          `json:"status"`
	UploadedOn       time.Time       `json:"uploaded_on"`
}

// Record decodes StructuredData.
func (d StoredDocument) Record() (*StructuredRecord, error) {
	if len(d.StructuredData) == 0 {
		return nil, nil
	}
	var rec StructuredRecord
	if err := json.Unmarshal(d.StructuredData, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
