// Package ingest discovers documents on disk and feeds them to the processor.
package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/meddocs/internal/core"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path         string
	PatientID    int64
	RecordID     string
	DocumentType string
	Language     string
	Summary      string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// DocumentProcessor is satisfied by *core.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, raw entity.RawDocument, declaredType string, patientID int64, checkinID *int64) (core.ProcessOutcome, error)
}

var errNoPatient = errors.New("no patient id in filename and no default patient")

var patientPrefix = regexp.MustCompile(`^(\d+)[_-]`)

// PatientIDFromFilename reads the patient id from a "<patientID>_<anything>.<ext>" name.
func PatientIDFromFilename(name string) (int64, bool) {
	m := patientPrefix.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
