package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

const (
	MethodPDFText     = "pdf-text"
	MethodPDFOCR      = "pdf-ocr"
	MethodImageOCR    = "image-ocr"
	MethodHEICOCR     = "heic-ocr"
	MethodPlaceholder = "placeholder"
	MethodUnsupported = "unsupported"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng+deu"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir   string
	HeicConverter string // sips | heif-convert | magick; default sips

	PSM int
	OEM int
}

// TextExtractor is the capability the assembler depends on.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.RawDocument) (entity.ExtractedText, error)
}

// Extractor routes a document to the PDF, image or HEIC path. Every failure
// degrades to a placeholder; Extract never returns a non-nil error.
type Extractor struct {
	cfg    Config
	runner Runner
	images ImageEngine
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the os/exec runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithImageEngine replaces the default tesseract engine.
func WithImageEngine(engine ImageEngine) Option {
	return func(e *Extractor) { e.images = engine }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng+deu"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "sips"
	}
	e := &Extractor{cfg: cfg, runner: ExecRunner{Logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.images == nil {
		e.images = NewTesseractEngine(cfg, e.runner)
	}
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, doc entity.RawDocument) (entity.ExtractedText, error) {
	start := time.Now()
	ext := doc.Ext
	if ext == "" {
		ext = filepath.Ext(doc.Path)
	}
	ext = constants.NormalizeExt(ext)
	if doc.Filename == "" {
		doc.Filename = filepath.Base(doc.Path)
	}
	e.logger.Debug("starting ocr extraction", "path", doc.Path, "ext", ext, "size", doc.Size)

	var res entity.ExtractedText
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res = e.extractPDF(ctx, doc)
	case constants.IMAGE:
		res = e.extractImage(ctx, doc, doc.Path, MethodImageOCR)
	case constants.HEIC:
		res = e.extractHEIC(ctx, doc)
	default:
		e.logger.Warn("unsupported ocr extension", "extension", ext, "path", doc.Path)
		res = entity.ExtractedText{
			Text:     UnsupportedText(ext),
			Method:   MethodUnsupported,
			Sentinel: entity.SentinelUnsupported,
		}
	}
	res.Duration = time.Since(start)
	e.logger.Info("ocr extraction finished",
		"path", doc.Path,
		"method", res.Method,
		"pages", res.Pages,
		"degraded", res.Degraded,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractImage(ctx context.Context, doc entity.RawDocument, path, method string) entity.ExtractedText {
	txt, err := e.images.ImageToText(ctx, path)
	if err == nil {
		txt = Normalize(txt)
		if txt == "" {
			err = ErrNoText
		}
	}
	if err != nil {
		e.logger.Warn("image ocr failed, using placeholder", "path", doc.Path, "error", err)
		return entity.ExtractedText{
			Text:     ImagePlaceholder(doc.Filename, doc.Size),
			Method:   MethodPlaceholder,
			Pages:    1,
			Degraded: true,
			Warnings: []string{err.Error()},
		}
	}
	return entity.ExtractedText{Text: txt, Method: method, Pages: 1}
}

func (e *Extractor) extractHEIC(ctx context.Context, doc entity.RawDocument) entity.ExtractedText {
	jpg, cleanup, err := convertHEICtoJPEG(ctx, e.runner, e.cfg.HeicConverter, doc.Path)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		e.logger.Error("heic conversion failed", "path", doc.Path, "converter", e.cfg.HeicConverter, "error", err)
		return entity.ExtractedText{
			Text:     HEICFailureText(doc.Filename, err),
			Method:   MethodPlaceholder,
			Degraded: true,
			Sentinel: entity.SentinelHEICConversion,
			Warnings: []string{err.Error()},
		}
	}
	return e.extractImage(ctx, doc, jpg, MethodHEICOCR)
}

// UnsupportedText is the sentinel text for extensions the extractor cannot route.
func UnsupportedText(ext string) string {
	return fmt.Sprintf("Unsupported file type: .%s", ext)
}

// ImagePlaceholder is used when image OCR fails or reads nothing.
func ImagePlaceholder(name string, size int64) string {
	return fmt.Sprintf("[Image document %q (%d bytes): OCR failed]", name, size)
}

// PDFPlaceholder is used when neither the text layer nor page OCR yields text.
func PDFPlaceholder(name string, size int64) string {
	return fmt.Sprintf("[Unreadable PDF document %q (%d bytes): no text could be extracted]", name, size)
}

// HEICFailureText is the sentinel text for a failed HEIC conversion.
func HEICFailureText(name string, cause error) string {
	return fmt.Sprintf("Error: HEIC conversion failed for %q: %v", name, cause)
}
