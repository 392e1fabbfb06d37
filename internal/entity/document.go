package entity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/common"
)

// RawDocument identifies one source file for the duration of a pipeline run.
type RawDocument struct {
	Path         string `json:"path"`
	Filename     string `json:"filename"`
	Ext          string `json:"ext"`
	Size         int64  `json:"size"`
	DeclaredType string `json:"declared_type,omitempty"`
}

// NewRawDocumentFromPath stats path and fills in name, extension and size.
func NewRawDocumentFromPath(path, declaredType string) (RawDocument, error) {
	doc := RawDocument{
		Path:         path,
		Filename:     filepath.Base(path),
		Ext:          constants.NormalizeExt(filepath.Ext(path)),
		DeclaredType: declaredType,
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, common.NewAppError("EMPTY_DOCUMENT", fmt.Sprintf("file %s does not exist", path), common.ErrEmptyDocument)
		}
		return doc, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return doc, common.NewAppError("INVALID_DOCUMENT", fmt.Sprintf("%s is a directory", path), common.ErrInvalidInput)
	}
	doc.Size = info.Size()
	return doc, nil
}

// Validate rejects documents with no usable bytes.
func (d RawDocument) Validate() error {
	if d.Path == "" {
		return common.NewAppError("EMPTY_DOCUMENT", "document path is empty", common.ErrEmptyDocument)
	}
	info, err := os.Stat(d.Path)
	if err != nil || info.Size() == 0 {
		return common.NewAppError("EMPTY_DOCUMENT", fmt.Sprintf("%s has no content", d.Filename), common.ErrEmptyDocument)
	}
	return nil
}

// Sentinel tags extraction results the caller must not feed into the pipeline as text.
type Sentinel string

const (
	SentinelNone           Sentinel = ""
	SentinelUnsupported    Sentinel = "unsupported"
	SentinelHEICConversion Sentinel = "heic_conversion_failed"
)

// ExtractedText is the text recovered from a RawDocument. Text is never empty:
// failures produce a placeholder and set Degraded or Sentinel.
type ExtractedText struct {
	Text     string        `json:"text"`
	Method   string        `json:"method"`
	Pages    int           `json:"pages,omitempty"`
	Degraded bool          `json:"degraded,omitempty"`
	Sentinel Sentinel      `json:"sentinel,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"-"`
}

// Unsupported reports whether extraction refused the file type.
func (e ExtractedText) Unsupported() bool {
	return e.Sentinel == SentinelUnsupported
}
