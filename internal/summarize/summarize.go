// Package summarize builds rule-based summaries for each document category.
package summarize

import (
	"strings"

	"github.com/joseph-ayodele/meddocs/constants"
)

// Summarizer produces a summary for one category. Summarize must return
// non-empty text for any input.
type Summarizer interface {
	Category() constants.Category
	Summarize(text string) string
}

// Registry dispatches by category, falling back to the general summarizer.
type Registry struct {
	byCategory map[constants.Category]Summarizer
	fallback   Summarizer
}

// NewRegistry registers the given summarizers on top of the defaults. Later
// entries replace earlier ones for the same category.
func NewRegistry(extra ...Summarizer) *Registry {
	r := &Registry{
		byCategory: map[constants.Category]Summarizer{},
		fallback:   GeneralSummarizer{},
	}
	defaults := []Summarizer{
		LabSummarizer{},
		PrescriptionSummarizer{},
		ClinicalSummarizer{},
		ImagingSummarizer{},
		InsuranceSummarizer{},
		GeneralSummarizer{},
	}
	for _, s := range append(defaults, extra...) {
		r.byCategory[s.Category()] = s
	}
	return r
}

// For returns the summarizer registered for category.
func (r *Registry) For(category constants.Category) Summarizer {
	if s, ok := r.byCategory[category]; ok {
		return s
	}
	return r.fallback
}

// Summarize runs the category's summarizer. A blank result is replaced by the
// general summary so callers always get text.
func (r *Registry) Summarize(category constants.Category, text string) string {
	out := r.For(category).Summarize(text)
	if strings.TrimSpace(out) != "" {
		return out
	}
	if out = r.fallback.Summarize(text); strings.TrimSpace(out) != "" {
		return out
	}
	return string(category) + ": no summary could be generated.\n"
}
