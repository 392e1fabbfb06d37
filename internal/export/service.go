package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/utils"
)

const (
	sheet         = "Documents"
	maxSummaryLen = 300
)

// DocumentRow is one spreadsheet line.
type DocumentRow struct {
	UploadedOn   time.Time
	PatientID    int64
	CheckinID    *int64
	DocumentType string
	Language     string
	Summary      string
	FilePath     string
}

// Lister reads a patient's stored documents, newest first.
type Lister interface {
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]*entity.StoredDocument, error)
}

// Service produces XLSX bytes for document exports.
type Service struct {
	docs   Lister
	logger *slog.Logger
}

func NewService(docs Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// RowFromStored flattens a stored document; the summary comes from its record.
func RowFromStored(doc *entity.StoredDocument) DocumentRow {
	row := DocumentRow{
		UploadedOn:   doc.UploadedOn,
		PatientID:    doc.PatientID,
		CheckinID:    doc.CheckinID,
		DocumentType: doc.Type,
		Language:     doc.Language,
		FilePath:     doc.FilePath,
	}
	if rec, err := doc.Record(); err == nil && rec != nil {
		row.Summary = rec.EnglishSummary()
	}
	return row
}

// ExportPatientXLSX exports a patient's documents uploaded in the date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all documents for the patient.
func (s *Service) ExportPatientXLSX(ctx context.Context, patientID int64, from, to *time.Time) ([]byte, error) {
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	docs, err := s.docs.ListByPatient(ctx, patientID, 0)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	rows := make([]DocumentRow, 0, len(docs))
	for _, d := range docs {
		day := d.UploadedOn.UTC()
		if fromDate != nil && day.Before(*fromDate) {
			continue
		}
		if toDate != nil && !day.Before(toDate.AddDate(0, 0, 1)) {
			continue
		}
		rows = append(rows, RowFromStored(d))
	}
	return s.ExportDocumentsXLSX(rows)
}

// ExportDocumentsXLSX returns an XLSX workbook (as bytes) with one row per document.
func (s *Service) ExportDocumentsXLSX(rows []DocumentRow) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Uploaded On",
		"Patient",
		"Check-in",
		"Document Type",
		"Language",
		"English Summary",
		"File Path",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if !r.UploadedOn.IsZero() {
			write(1, r.UploadedOn.UTC().Format("2006-01-02 15:04"))
		}
		write(2, r.PatientID)
		if r.CheckinID != nil {
			write(3, *r.CheckinID)
		}
		write(4, r.DocumentType)
		write(5, r.Language)
		write(6, utils.Truncate(utils.CollapseWhitespace(r.Summary), maxSummaryLen))
		write(7, r.FilePath)
	}

	_ = f.SetColWidth(sheet, "A", "A", 18) // uploaded
	_ = f.SetColWidth(sheet, "B", "C", 10) // ids
	_ = f.SetColWidth(sheet, "D", "D", 36) // type
	_ = f.SetColWidth(sheet, "E", "E", 10) // language
	_ = f.SetColWidth(sheet, "F", "F", 80) // summary
	_ = f.SetColWidth(sheet, "G", "G", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
