package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// convertHEICtoJPEG converts a HEIC/HEIF file to a temporary JPEG.
// converter: "sips" | "heif-convert" | "magick"
//
// Returns (outPath, cleanup, err). cleanup is non-nil whenever a temp dir was
// created and must be called once OCR on the JPEG is done.
func convertHEICtoJPEG(ctx context.Context, r Runner, converter, in string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "meddocs-heic-*")
	if err != nil {
		return "", nil, WrapOCRError("heic", ErrHEICConversion, err.Error())
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "converted.jpg")

	var errb []byte
	switch converter {
	case "sips":
		_, errb, err = r.Run(ctx, "sips", "-s", "format", "jpeg", in, "--out", out)
	case "heif-convert":
		_, errb, err = r.Run(ctx, "heif-convert", in, out)
	case "magick":
		_, errb, err = r.Run(ctx, "magick", in, out)
	default:
		return "", cleanup, WrapOCRError("heic", ErrHEICConversion, fmt.Sprintf("unknown converter %q: use one of sips | heif-convert | magick", converter))
	}
	if err != nil {
		details := strings.TrimSpace(string(errb))
		if details == "" {
			details = err.Error()
		}
		return "", cleanup, WrapOCRError("heic", ErrHEICConversion, converter+": "+details)
	}

	if st, statErr := os.Stat(out); statErr != nil || st.Size() == 0 {
		return "", cleanup, WrapOCRError("heic", ErrHEICConversion, "converter produced no output")
	}
	return out, cleanup, nil
}
