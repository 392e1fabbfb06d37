package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/meddocs/internal/entity"
)

// extractPDF tries the text layer, then render-and-OCR, then the placeholder.
func (e *Extractor) extractPDF(ctx context.Context, doc entity.RawDocument) entity.ExtractedText {
	var warns []string

	pageCount, err := pdfPageCount(doc.Path)
	if err != nil {
		warns = append(warns, "pdf page count: "+err.Error())
	}

	text, pages, w, err := e.pdfToText(ctx, doc.Path)
	warns = append(warns, w...)
	if err == nil && strings.TrimSpace(text) != "" {
		if pageCount > 0 {
			pages = pageCount
		}
		return entity.ExtractedText{Text: Normalize(text), Method: MethodPDFText, Pages: pages, Warnings: warns}
	}
	if err != nil {
		e.logger.Warn("pdf text layer failed, falling back to ocr", "path", doc.Path, "error", err)
	} else {
		e.logger.Debug("pdf text layer empty, falling back to ocr", "path", doc.Path)
	}

	if e.cfg.MaxPages > 0 && pageCount > e.cfg.MaxPages {
		warns = append(warns, fmt.Sprintf("rendering first %d of %d pages", e.cfg.MaxPages, pageCount))
	}
	text, pages, w, err = e.pdfToOCR(ctx, doc.Path)
	warns = append(warns, w...)
	if err == nil && strings.TrimSpace(text) != "" {
		return entity.ExtractedText{Text: text, Method: MethodPDFOCR, Pages: pages, Warnings: warns}
	}
	if err != nil {
		warns = append(warns, err.Error())
	}

	e.logger.Warn("pdf extraction failed, using placeholder", "path", doc.Path, "error", err)
	return entity.ExtractedText{
		Text:     PDFPlaceholder(doc.Filename, doc.Size),
		Method:   MethodPlaceholder,
		Pages:    pageCount,
		Degraded: true,
		Warnings: warns,
	}
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftotext: %w", err)
	}
	text = string(out)
	// form feed separates pages
	pages = 1 + strings.Count(strings.TrimRight(text, "\f\n"), "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "meddocs-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sortPages(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, ErrNoPagesRendered
	}

	var b strings.Builder
	var warns []string
	for i, img := range matches {
		txt, err := e.images.ImageToText(ctx, img)
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", i+1, err))
			continue
		}
		txt = Normalize(txt)
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n", i+1)
		b.WriteString(txt)
	}
	return b.String(), len(matches), warns, nil
}

// sortPages orders pdftoppm output numerically (page-2 before page-10).
func sortPages(paths []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		return n
	}
	sort.SliceStable(paths, func(i, j int) bool { return num(paths[i]) < num(paths[j]) })
}

// pdfPageCount reads the page tree with pdfcpu; corrupt files report an error.
func pdfPageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdfcpu: %v", r)
		}
	}()
	return api.PageCountFile(path)
}
