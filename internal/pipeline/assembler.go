// Package pipeline composes extraction, detection, translation, classification
// and summarization into one structured record per document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/classify"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/langdetect"
	"github.com/joseph-ayodele/meddocs/internal/metrics"
	"github.com/joseph-ayodele/meddocs/internal/ocr"
	"github.com/joseph-ayodele/meddocs/internal/summarize"
)

var (
	ErrNoText              = errors.New("no text extracted from document")
	ErrGenerativeNotConfig = errors.New("generative summarizer not configured")
)

// LanguageDetector returns the language of text; it never fails.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) entity.LanguageTag
}

// Translator is best-effort: on failure it returns text unchanged and false.
type Translator interface {
	Translate(ctx context.Context, text, src, dst string) (string, bool)
}

// GenerativeSummarizer produces a free-text clinical summary from raw text.
type GenerativeSummarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Assembler runs one document end to end. It holds no per-run state and is
// safe for concurrent use.
type Assembler struct {
	extractor  ocr.TextExtractor
	detector   LanguageDetector
	translator Translator
	registry   *summarize.Registry
	generative GenerativeSummarizer
	strategy   constants.SummaryStrategy
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Assembler)

func WithStrategy(s constants.SummaryStrategy) Option {
	return func(a *Assembler) { a.strategy = s }
}

// WithGenerative sets the summarizer used by StrategyGenerative.
func WithGenerative(g GenerativeSummarizer) Option {
	return func(a *Assembler) { a.generative = g }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

func NewAssembler(extractor ocr.TextExtractor, detector LanguageDetector, translator Translator, opts ...Option) *Assembler {
	a := &Assembler{
		extractor:  extractor,
		detector:   detector,
		translator: translator,
		strategy:   constants.StrategyRuleBased,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = summarize.NewRegistry()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Strategy reports the configured summary strategy.
func (a *Assembler) Strategy() constants.SummaryStrategy { return a.strategy }

// run carries the text seen so far so a failure can report it.
type run struct {
	text string
}

// Assemble produces a StructuredRecord or a Failure. It never panics and never
// returns an error: stage failures become the Failure payload.
func (a *Assembler) Assemble(ctx context.Context, raw entity.RawDocument, declaredType string, patientID int64, checkinID *int64) (res entity.Result) {
	start := time.Now()
	log := common.LoggerFromContext(ctx, a.logger).With("file", raw.Filename, "patient_id", patientID)
	if checkinID != nil {
		log = log.With("checkin_id", *checkinID)
	}
	st := &run{}

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", "panic", r)
			res = entity.Result{Failure: entity.NewFailure(fmt.Errorf("pipeline panicked: %v", r), st.text)}
		}
		a.metrics.ObserveStage("assemble", time.Since(start))
	}()

	rec, err := a.assemble(ctx, log, st, raw, declaredType)
	if err != nil {
		log.Warn("pipeline failed", "error", err)
		return entity.Result{Failure: entity.NewFailure(err, st.text)}
	}
	log.Info("pipeline complete",
		"document_type", rec.DocumentType,
		"language", rec.OriginalLanguage.Code,
		"strategy", rec.SummaryStrategy,
		"method", rec.ExtractionMethod,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.Result{Record: rec}
}

func (a *Assembler) assemble(ctx context.Context, log *slog.Logger, st *run, raw entity.RawDocument, declaredType string) (*entity.StructuredRecord, error) {
	// 1. extract
	t := time.Now()
	if a.extractor == nil {
		return nil, errors.New("text extractor not configured")
	}
	extracted, err := a.extractor.Extract(ctx, raw)
	a.metrics.ObserveStage("extract", time.Since(t))
	if err != nil {
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}
	st.text = extracted.Text
	if extracted.Unsupported() {
		return nil, common.NewAppError("UNSUPPORTED_FILE", extracted.Text, common.ErrUnsupportedFile)
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return nil, ErrNoText
	}
	if extracted.Degraded {
		reason := string(extracted.Sentinel)
		if reason == "" {
			reason = extracted.Method
		}
		a.metrics.IncDegraded(reason)
		log.Warn("extraction degraded", "method", extracted.Method, "sentinel", extracted.Sentinel)
	}
	text := extracted.Text

	// 2. detect
	t = time.Now()
	source := langdetect.Tag(constants.LangEnglish)
	if a.detector != nil {
		source = a.detector.Detect(ctx, text)
	}
	a.metrics.ObserveStage("detect", time.Since(t))
	srcBase := langdetect.BaseCode(source.Code)

	// 3-4. translate text to english and german
	t = time.Now()
	english := entity.TranslationEntry{Code: constants.LangEnglish, Name: langdetect.Name(constants.LangEnglish), Text: text}
	if srcBase != constants.LangEnglish {
		english.Text, english.Translated = a.translate(ctx, text, source.Code, constants.LangEnglish)
	}

	german := entity.TranslationEntry{Code: constants.LangGerman, Name: langdetect.Name(constants.LangGerman), Text: text}
	germanFrom := ""
	if srcBase != constants.LangGerman {
		// translate from English when we have it, otherwise straight from the source
		from, fromText := constants.LangEnglish, english.Text
		if srcBase != constants.LangEnglish && !english.Translated {
			from, fromText = source.Code, text
		}
		german.Text, german.Translated = a.translate(ctx, fromText, from, constants.LangGerman)
		if german.Translated {
			germanFrom = langdetect.Name(from)
		}
	}
	a.metrics.ObserveStage("translate", time.Since(t))

	// 5. classify
	t = time.Now()
	category := classify.Classify(english.Text)
	a.metrics.ObserveStage("classify", time.Since(t))
	if hint, ok := constants.CanonicalizeHint(declaredType); ok && hint != category {
		log.Info("declared type differs from classification", "declared_type", declaredType, "hint", hint, "category", category)
	}

	// 6. english summary
	t = time.Now()
	summaryEN, err := a.summarize(ctx, category, text, english.Text)
	a.metrics.ObserveStage("summarize", time.Since(t))
	if err != nil {
		return nil, err
	}

	// 7-8. original and german summaries
	t = time.Now()
	summaryOrig := summaryEN
	if srcBase != constants.LangEnglish {
		summaryOrig, _ = a.translate(ctx, summaryEN, constants.LangEnglish, source.Code)
	}
	summaryDE, _ := a.translate(ctx, summaryEN, constants.LangEnglish, constants.LangGerman)
	a.metrics.ObserveStage("translate_summary", time.Since(t))

	// 9. assemble
	original := entity.TranslationEntry{Code: source.Code, Name: source.Name, Text: text}
	englishFrom := ""
	if english.Translated {
		englishFrom = source.Name
	}
	rec := &entity.StructuredRecord{
		DocumentType:     category,
		DeclaredType:     declaredType,
		OriginalLanguage: source,
		Translations: entity.TranslationSet{
			constants.RoleOriginal: original,
			constants.RoleEnglish:  english,
			constants.RoleGerman:   german,
		},
		Summaries: entity.SummarySet{
			constants.RoleOriginal: summaryOrig,
			constants.RoleEnglish:  summaryEN,
			constants.RoleGerman:   summaryDE,
		},
		Formatted: entity.FormattedSet{
			constants.RoleOriginal: FormatRendering(category, original.Name, "", summaryOrig, original.Text),
			constants.RoleEnglish:  FormatRendering(category, english.Name, englishFrom, summaryEN, english.Text),
			constants.RoleGerman:   FormatRendering(category, german.Name, germanFrom, summaryDE, german.Text),
		},
		AvailableLanguages: constants.AvailableRoles(),
		SummaryStrategy:    a.strategy,
		ExtractionMethod:   extracted.Method,
		GeneratedAt:        a.now().UTC(),
	}
	return rec, nil
}

func (a *Assembler) translate(ctx context.Context, text, src, dst string) (string, bool) {
	if a.translator == nil {
		return text, false
	}
	return a.translator.Translate(ctx, text, src, dst)
}

// summarize produces the english summary. The two strategies are exclusive:
// a generative failure is a pipeline failure, not a cue to use the rules.
func (a *Assembler) summarize(ctx context.Context, category constants.Category, rawText, englishText string) (string, error) {
	if a.strategy != constants.StrategyGenerative {
		return a.registry.Summarize(category, englishText), nil
	}
	if a.generative == nil {
		return "", ErrGenerativeNotConfig
	}
	out, err := a.generative.Summarize(ctx, rawText)
	if err != nil {
		return "", fmt.Errorf("generative summary failed: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("generative summary is empty")
	}
	return strings.TrimSpace(out), nil
}
