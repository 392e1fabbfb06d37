// Package translate converts document text between languages, best-effort.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/meddocs/internal/langdetect"
	"github.com/joseph-ayodele/meddocs/internal/metrics"
)

// ErrNoBackend is returned by Passthrough.
var ErrNoBackend = errors.New("no translation backend configured")

// Backend translates a single chunk.
type Backend interface {
	Translate(ctx context.Context, text, src, dst string) (string, error)
}

// Passthrough is the backend used when none is configured. It always fails so
// the Translator reports translated=false.
type Passthrough struct{}

func (Passthrough) Translate(context.Context, string, string, string) (string, error) {
	return "", ErrNoBackend
}

// Translator chunks text, calls the backend per chunk and never fails: on any
// error it returns the input unchanged with translated=false.
type Translator struct {
	backend   Backend
	chunkSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewTranslator(backend Backend, m *metrics.Metrics, logger *slog.Logger) *Translator {
	if backend == nil {
		backend = Passthrough{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{backend: backend, chunkSize: DefaultChunkSize, metrics: m, logger: logger}
}

// Translate returns (text, true) only when every chunk was translated.
func (t *Translator) Translate(ctx context.Context, text, src, dst string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		t.metrics.IncPassthrough("empty")
		return text, false
	}
	if langdetect.BaseCode(src) == langdetect.BaseCode(dst) {
		t.metrics.IncPassthrough("same_language")
		return text, false
	}

	start := time.Now()
	chunks := Chunk(text, t.chunkSize)
	out := make([]string, 0, len(chunks))
	for i, c := range chunks {
		tr, err := t.translateChunk(ctx, c, src, dst)
		if err != nil {
			reason := "backend_error"
			if errors.Is(err, ErrNoBackend) {
				reason = "no_backend"
				t.logger.Debug("translation skipped", "src", src, "dst", dst, "reason", reason)
			} else {
				t.logger.Warn("translation failed, returning original text",
					"src", src, "dst", dst,
					"chunk", i+1, "chunks", len(chunks),
					"error", err,
				)
			}
			t.metrics.IncPassthrough(reason)
			return text, false
		}
		out = append(out, strings.TrimSpace(tr))
	}

	t.logger.Debug("translation complete",
		"src", src, "dst", dst,
		"chunks", len(chunks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.Join(out, " "), true
}

func (t *Translator) translateChunk(ctx context.Context, chunk, src, dst string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("translation backend panicked: %v", r)
		}
	}()
	out, err = t.backend.Translate(ctx, chunk, src, dst)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("backend returned empty translation")
	}
	return out, err
}
