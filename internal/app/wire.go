// Package app builds the pipeline, processor and their collaborators from a
// common.Config. The binaries under cmd/ share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/core"
	"github.com/joseph-ayodele/meddocs/internal/events"
	"github.com/joseph-ayodele/meddocs/internal/langdetect"
	"github.com/joseph-ayodele/meddocs/internal/llm/openai"
	"github.com/joseph-ayodele/meddocs/internal/llm/vertex"
	"github.com/joseph-ayodele/meddocs/internal/metrics"
	"github.com/joseph-ayodele/meddocs/internal/ocr"
	"github.com/joseph-ayodele/meddocs/internal/pipeline"
	"github.com/joseph-ayodele/meddocs/internal/repository"
	"github.com/joseph-ayodele/meddocs/internal/translate"
)

// Pipeline is a configured assembler plus the clients it owns.
type Pipeline struct {
	Assembler *pipeline.Assembler
	Extractor *ocr.Extractor
	Detector  *langdetect.Detector
	// Cache is nil when REDIS_ADDR is unset.
	Cache *translate.RedisStore

	closers []func() error
	logger  *slog.Logger
}

// OCRConfig maps the OCR section onto the extractor config.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		TesseractLang: c.Languages,
		DPI:           c.DPI,
		MaxPages:      c.MaxPages,
		TessdataDir:   c.TessdataDir,
		HeicConverter: c.HeicConverter,
	}
}

// NewExtractor builds the text extractor with the configured image engine.
func NewExtractor(ctx context.Context, c common.OCRConfig, logger *slog.Logger) (*ocr.Extractor, func() error, error) {
	var opts []ocr.Option
	closer := func() error { return nil }
	switch c.Engine {
	case "", "tesseract":
	case "vision":
		engine, err := ocr.NewVisionEngine(ctx, c.CredentialsJSON, c.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("vision engine: %w", err)
		}
		opts = append(opts, ocr.WithImageEngine(engine))
		closer = engine.Close
	default:
		return nil, nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown OCR_ENGINE %q", c.Engine), common.ErrInvalidInput)
	}
	return ocr.NewExtractor(OCRConfig(c), logger, opts...), closer, nil
}

// NewDetector returns the lingua detector backed by the stop-word heuristic.
func NewDetector(logger *slog.Logger) *langdetect.Detector {
	return langdetect.NewDetector(langdetect.NewLinguaDetector(), langdetect.StopwordDetector{}, logger)
}

// BuildPipeline wires extractor, detector, translator and summarizers.
func BuildPipeline(ctx context.Context, cfg *common.Config, m *metrics.Metrics, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{logger: logger}

	extractor, closeOCR, err := NewExtractor(ctx, cfg.OCR, logger)
	if err != nil {
		return nil, err
	}
	p.Extractor = extractor
	p.closers = append(p.closers, closeOCR)
	p.Detector = NewDetector(logger)

	strategy := constants.ParseStrategy(cfg.Pipeline.Strategy)

	var vx *vertex.Client
	if cfg.Translation.Backend == "vertex" || strategy == constants.StrategyGenerative {
		vx, err = vertex.NewClient(ctx, cfg.Generative.ProjectID, cfg.Generative.Region, cfg.Generative.Model, logger)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.closers = append(p.closers, vx.Close)
	}

	var backend translate.Backend = translate.Passthrough{}
	switch cfg.Translation.Backend {
	case "openai":
		backend = openai.NewClient(openai.Config{
			APIKey:      cfg.Translation.APIKey,
			BaseURL:     cfg.Translation.BaseURL,
			Model:       cfg.Translation.Model,
			Temperature: cfg.Translation.Temperature,
			Timeout:     cfg.Translation.Timeout,
		}, logger)
	case "vertex":
		backend = vx
	}
	if cfg.Cache.Addr != "" && cfg.Translation.Backend != "" && cfg.Translation.Backend != "none" {
		p.Cache = translate.NewRedisStore(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.PoolSize)
		p.closers = append(p.closers, p.Cache.Close)
		backend = translate.NewCachedBackend(backend, p.Cache, cfg.Cache.TTL, m, logger)
	}
	translator := translate.NewTranslator(backend, m, logger)

	opts := []pipeline.Option{
		pipeline.WithStrategy(strategy),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger),
	}
	if vx != nil {
		opts = append(opts, pipeline.WithGenerative(vx))
	}
	p.Assembler = pipeline.NewAssembler(extractor, p.Detector, translator, opts...)

	logger.Info("pipeline ready",
		"ocr_engine", cfg.OCR.Engine,
		"translation_backend", cfg.Translation.Backend,
		"strategy", strategy,
		"cache", p.Cache != nil,
	)
	return p, nil
}

// Close releases every client the pipeline opened.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			p.logger.Warn("closing pipeline client", "error", err)
		}
	}
	p.closers = nil
}

// NewPublisher returns a kafka producer, or nil when no brokers are configured.
func NewPublisher(cfg common.EventsConfig, m *metrics.Metrics, logger *slog.Logger) *events.Producer {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	return events.NewProducer(cfg.Brokers, cfg.Topic, m, logger)
}

// NewProcessor builds the processor. A nil sink processes without storing; a
// nil publisher disables events.
func NewProcessor(cfg *common.Config, asm core.Assembler, sink repository.DocumentSink, pub *events.Producer, m *metrics.Metrics, logger *slog.Logger) *core.Processor {
	opts := []core.Option{
		core.WithMetrics(m),
		core.WithValidation(cfg.Pipeline.ValidateJSON),
	}
	if pub != nil {
		opts = append(opts, core.WithPublisher(pub))
	}
	return core.NewProcessor(logger, asm, sink, opts...)
}
