package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/meddocs/internal/entity"
)

type stubRunner struct {
	calls []string
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	return s.fn(name, args)
}

func writeFile(t *testing.T, dir, name, content string) entity.RawDocument {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := entity.NewRawDocumentFromPath(path, "")
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractPDFTextLayer(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		if name == "pdftotext" {
			return []byte("Glucose: 90 mg/dL\fHemoglobin: 14 g/dL\n"), nil, nil
		}
		t.Fatalf("unexpected command %s", name)
		return nil, nil, nil
	}}
	doc := writeFile(t, t.TempDir(), "lab.pdf", "not really a pdf")
	res, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodPDFText || res.Degraded {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Text, "Glucose: 90 mg/dL") || !strings.Contains(res.Text, "Hemoglobin") {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Pages != 2 {
		t.Fatalf("pages = %d", res.Pages)
	}
}

func TestExtractPDFFallsBackToPageOCR(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("  \n\f"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, p := range []string{"-1.png", "-2.png", "-10.png"} {
				_ = os.WriteFile(prefix+p, []byte("png"), 0o644)
			}
			return nil, nil, nil
		case "tesseract":
			return []byte("text of " + filepath.Base(args[0])), nil, nil
		}
		return nil, nil, errors.New("unexpected")
	}}
	doc := writeFile(t, t.TempDir(), "scan.pdf", "x")
	res, _ := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
	if res.Method != MethodPDFOCR || res.Pages != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := "--- Page 1 ---\ntext of page-1.png\n\n--- Page 2 ---\ntext of page-2.png\n\n--- Page 3 ---\ntext of page-10.png"
	if res.Text != want {
		t.Fatalf("text = %q\nwant %q", res.Text, want)
	}
}

func TestExtractPDFPlaceholder(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		return nil, []byte("boom"), errors.New("exit status 1")
	}}
	doc := writeFile(t, t.TempDir(), "corrupt.pdf", "garbage!")
	res, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Degraded || res.Method != MethodPlaceholder {
		t.Fatalf("expected placeholder, got %+v", res)
	}
	if res.Text != `[Unreadable PDF document "corrupt.pdf" (8 bytes): no text could be extracted]` {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestExtractImage(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		if args[1] != "stdout" || args[3] != "eng+deu" {
			t.Fatalf("args = %v", args)
		}
		return []byte("Rx:\tAmoxicillin 500 mg\r\n\n\n\nTake twice daily  "), nil, nil
	}}
	doc := writeFile(t, t.TempDir(), "rx.JPG", "jpeg")
	res, _ := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
	if res.Method != MethodImageOCR {
		t.Fatalf("method = %s", res.Method)
	}
	if res.Text != "Rx: Amoxicillin 500 mg\n\nTake twice daily" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestExtractImageOCRFailureDegrades(t *testing.T) {
	for name, out := range map[string]func() ([]byte, error){
		"error": func() ([]byte, error) { return nil, errors.New("exit 1") },
		"empty": func() ([]byte, error) { return []byte("  \n"), nil },
	} {
		t.Run(name, func(t *testing.T) {
			r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) {
				b, err := out()
				return b, nil, err
			}}
			doc := writeFile(t, t.TempDir(), "photo.png", "abcd")
			res, _ := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
			if res.Text != `[Image document "photo.png" (4 bytes): OCR failed]` || !res.Degraded {
				t.Fatalf("unexpected result: %+v", res)
			}
		})
	}
}

func TestExtractHEIC(t *testing.T) {
	var converted string
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "sips":
			if strings.Join(args[:3], " ") != "-s format jpeg" {
				t.Fatalf("sips args = %v", args)
			}
			converted = args[len(args)-1]
			return nil, nil, os.WriteFile(converted, []byte("jpeg"), 0o644)
		case "tesseract":
			return []byte("Member ID: ABC123"), nil, nil
		}
		return nil, nil, errors.New("unexpected")
	}}
	doc := writeFile(t, t.TempDir(), "card.heic", "heic")
	res, _ := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
	if res.Method != MethodHEICOCR || res.Text != "Member ID: ABC123" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, err := os.Stat(converted); !os.IsNotExist(err) {
		t.Fatalf("temporary jpeg not removed: %v", err)
	}
}

func TestExtractHEICConversionFailure(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		return nil, []byte("sips: unsupported"), errors.New("exit 1")
	}}
	doc := writeFile(t, t.TempDir(), "card.heic", "heic")
	res, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if res.Sentinel != entity.SentinelHEICConversion {
		t.Fatalf("sentinel = %q", res.Sentinel)
	}
	if !strings.HasPrefix(res.Text, `Error: HEIC conversion failed for "card.heic"`) {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestExtractUnsupported(t *testing.T) {
	r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) {
		t.Fatal("no command should run")
		return nil, nil, nil
	}}
	doc := writeFile(t, t.TempDir(), "notes.docx", "zip")
	res, _ := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
	if !res.Unsupported() || !strings.Contains(res.Text, "Unsupported file type") {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExtractNeverReturnsEmptyText(t *testing.T) {
	r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, nil, errors.New("down")
	}}
	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.jpg", "c.jpeg", "d.png", "e.tiff", "f.tif", "g.heic", "h.heif", "i.txt"} {
		doc := writeFile(t, dir, name, "data")
		res, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), doc)
		if err != nil || strings.TrimSpace(res.Text) == "" {
			t.Errorf("%s: text=%q err=%v", name, res.Text, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	in := "Date: 05/03/2024\r\n-----\nWBC:\t7.2  x10^9/L   \n\n\n\nEnd"
	want := "Date: 05/03/2024\n\nWBC: 7.2 x10^9/L\n\nEnd"
	if got := Normalize(in); got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}
