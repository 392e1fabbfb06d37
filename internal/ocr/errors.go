package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrOCRFailed is returned when an engine could not read an image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrNoText is returned when an engine succeeded but produced no text.
	ErrNoText = errors.New("document contains no readable text")

	// ErrNoPagesRendered is returned when pdftoppm wrote no page images.
	ErrNoPagesRendered = errors.New("no pages rendered")

	// ErrHEICConversion is returned when the HEIC converter fails or writes nothing.
	ErrHEICConversion = errors.New("HEIC conversion failed")

	// ErrMissingCredentials is returned when the vision engine has no Google credentials.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
)

// OCRError wraps errors with the operation that failed.
type OCRError struct {
	Op      string
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}
	return &OCRError{Op: op, Err: err, Details: details}
}
