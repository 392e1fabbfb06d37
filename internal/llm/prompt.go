package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRefusal is returned when a model declines instead of answering.
var ErrRefusal = errors.New("model response indicates refusal")

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("model returned no text")

const TranslatorSystemPrompt = "You are a professional medical translator. Translate the user's text faithfully. " +
	"Preserve numbers, units, dates, drug names and line breaks exactly. " +
	"Return ONLY the translated text with no commentary, quotes or code fences."

const SummarizerSystemPrompt = "You are a clinical documentation assistant producing triage summaries of medical documents. " +
	"Summaries are best-effort and not a diagnosis."

const SummarizerUserPrompt = `Summarize the following medical document in English for a clinician.
Start with a line "DOCUMENT SUMMARY". Then list, where present:
- document type and date
- patient and provider names
- abnormal findings or values first, with units and reference ranges
- medications with dosage and instructions
- diagnoses, assessment and plan
Keep it under 300 words. Do not invent values that are not in the text.

Document text:
`

// TranslationPrompt builds the user turn for one chunk.
func TranslationPrompt(text, src, dst string) string {
	return fmt.Sprintf("Translate from %s to %s:\n\n%s", src, dst, text)
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"i'm sorry, but",
	"as a large language model",
	"as an ai language model",
}

// CheckResponse rejects empty and refusing model output.
func CheckResponse(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyResponse
	}
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("%w: %q", ErrRefusal, phrase)
		}
	}
	return nil
}

// StripFences removes a surrounding ``` block some models add despite instructions.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
