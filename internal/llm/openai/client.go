package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/meddocs/internal/llm"
)

// Translate implements translate.Backend for a single chunk.
func (c *Client) Translate(ctx context.Context, text, src, dst string) (string, error) {
	start := time.Now()
	c.log.Debug("llm.translate.start",
		"model", c.cfg.Model,
		"src", src,
		"dst", dst,
		"text_len", len(text),
	)

	out, err := c.complete(ctx, llm.TranslatorSystemPrompt, llm.TranslationPrompt(text, src, dst))
	if err != nil {
		c.log.Error("llm.translate.failed",
			"src", src, "dst", dst, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	c.log.Debug("llm.translate.ok",
		"src", src, "dst", dst,
		"out_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Summarize produces a free-text English summary from raw document text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	start := time.Now()
	out, err := c.complete(ctx, llm.SummarizerSystemPrompt, llm.SummarizerUserPrompt+text)
	if err != nil {
		c.log.Error("llm.summarize.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	c.log.Info("llm.summarize.ok", "out_len", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	content := llm.StripFences(cc.Choices[0].Message.Content)
	if err := llm.CheckResponse(content); err != nil {
		return "", err
	}
	return content, nil
}
