// Package vertex wraps Gemini on Vertex AI as a translation backend and a
// generative summarizer.
package vertex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/joseph-ayodele/meddocs/internal/llm"
)

// Client holds the pre-configured generative models.
type Client struct {
	translatorModel *genai.GenerativeModel
	summarizerModel *genai.GenerativeModel
	baseClient      *genai.Client
	logger          *slog.Logger
}

func NewClient(ctx context.Context, projectID, region, model string, logger *slog.Logger) (*Client, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex.NewClient: projectID and region cannot be empty")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	translator := baseClient.GenerativeModel(model)
	translator.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.TranslatorSystemPrompt)},
	}
	translator.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	summarizer := baseClient.GenerativeModel(model)
	summarizer.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.SummarizerSystemPrompt)},
	}
	summarizer.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	return &Client{
		translatorModel: translator,
		summarizerModel: summarizer,
		baseClient:      baseClient,
		logger:          logger,
	}, nil
}

// Translate implements translate.Backend.
func (c *Client) Translate(ctx context.Context, text, src, dst string) (string, error) {
	start := time.Now()
	resp, err := c.translatorModel.GenerateContent(ctx, genai.Text(llm.TranslationPrompt(text, src, dst)))
	if err != nil {
		c.logger.Error("llm.translate.failed", "backend", "vertex", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	out := llm.StripFences(responseText(resp))
	if err := llm.CheckResponse(out); err != nil {
		c.logger.Error("llm.translate.rejected", "backend", "vertex", "error", err)
		return "", err
	}
	c.logger.Debug("llm.translate.ok", "backend", "vertex", "src", src, "dst", dst, "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// Summarize implements pipeline.GenerativeSummarizer.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	start := time.Now()
	resp, err := c.summarizerModel.GenerateContent(ctx, genai.Text(llm.SummarizerUserPrompt+text))
	if err != nil {
		c.logger.Error("llm.summarize.failed", "backend", "vertex", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	out := llm.StripFences(responseText(resp))
	if err := llm.CheckResponse(out); err != nil {
		c.logger.Error("llm.summarize.rejected", "backend", "vertex", "error", err)
		return "", err
	}
	c.logger.Info("llm.summarize.ok", "backend", "vertex", "out_len", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
