package ocr

import (
	"context"
	"fmt"
	"strings"
)

// ImageEngine turns one image file into text.
type ImageEngine interface {
	ImageToText(ctx context.Context, path string) (string, error)
}

// TesseractEngine shells out to the tesseract CLI.
type TesseractEngine struct {
	runner      Runner
	bin         string
	lang        string
	tessdataDir string
	psm         int
	oem         int
}

func NewTesseractEngine(cfg Config, runner Runner) *TesseractEngine {
	bin := cfg.Tesseract
	if bin == "" {
		bin = "tesseract"
	}
	lang := cfg.TesseractLang
	if lang == "" {
		lang = "eng"
	}
	return &TesseractEngine{
		runner:      runner,
		bin:         bin,
		lang:        lang,
		tessdataDir: cfg.TessdataDir,
		psm:         cfg.PSM,
		oem:         cfg.OEM,
	}
}

func (t *TesseractEngine) ImageToText(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", t.lang}
	if t.psm > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", t.psm))
	}
	if t.oem > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", t.oem))
	}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", WrapOCRError("tesseract", fmt.Errorf("%w: %v", ErrOCRFailed, err), strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}
