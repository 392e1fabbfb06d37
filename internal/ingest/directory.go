package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

// ScanDirectory walks root and returns the supported files under it, in walk order.
func ScanDirectory(root string, skipHidden bool) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var paths []string
	var stats DirStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !constants.AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, stats, nil
}

// DirectoryIngestor processes every supported file under a directory.
type DirectoryIngestor struct {
	proc             DocumentProcessor
	defaultPatientID int64
	declaredType     string
	workers          int
	logger           *slog.Logger
}

// NewDirectoryIngestor builds an ingestor. Files without a patient prefix are
// filed under defaultPatientID; when that is 0 they are reported as failed.
func NewDirectoryIngestor(proc DocumentProcessor, defaultPatientID int64, declaredType string, workers int, logger *slog.Logger) *DirectoryIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 2
	}
	return &DirectoryIngestor{
		proc:             proc,
		defaultPatientID: defaultPatientID,
		declaredType:     declaredType,
		workers:          workers,
		logger:           logger,
	}
}

// IngestDirectory runs the processor over root with bounded concurrency.
// Results keep the scan order. Per-file problems are recorded in the results;
// the returned error is for walk failures and cancellation only.
func (i *DirectoryIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	paths, stats, err := ScanDirectory(root, skipHidden)
	if err != nil {
		return nil, stats, err
	}
	i.logger.Info("ingesting directory", "root", root, "files", len(paths), "workers", i.workers)

	results := make([]FileResult, len(paths))
	var succeeded, failed atomic.Uint32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for idx, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := i.ingestOne(gctx, path)
			results[idx] = r
			if r.Err != "" {
				failed.Add(1)
				i.logger.Warn("ingest failed", "path", path, "error", r.Err)
			} else {
				succeeded.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	stats.Succeeded = succeeded.Load()
	stats.Failed += failed.Load()
	if err != nil {
		return results, stats, err
	}
	i.logger.Info("directory ingest complete", "root", root, "succeeded", stats.Succeeded, "failed", stats.Failed)
	return results, stats, nil
}

func (i *DirectoryIngestor) ingestOne(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}
	patientID, ok := PatientIDFromFilename(path)
	if !ok {
		patientID = i.defaultPatientID
	}
	res.PatientID = patientID
	if patientID <= 0 {
		res.Err = errNoPatient.Error()
		return res
	}

	raw, err := entity.NewRawDocumentFromPath(path, i.declaredType)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	out, err := i.proc.Process(ctx, raw, i.declaredType, patientID, nil)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.RecordID = out.RecordID
	if f := out.Result.Failure; f != nil {
		res.Err = f.Error
		res.DocumentType = string(f.DocumentType)
		return res
	}
	rec := out.Result.Record
	res.DocumentType = string(rec.DocumentType)
	res.Language = rec.OriginalLanguage.Code
	res.Summary = rec.EnglishSummary()
	return res
}
