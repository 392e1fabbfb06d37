package entity

import (
	"time"

	"github.com/joseph-ayodele/meddocs/constants"
)

// LanguageTag is a language code plus its display name.
type LanguageTag struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TranslationEntry is one language slot of a TranslationSet.
type TranslationEntry struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	Translated bool   `json:"translated"`
}

// TranslationSet maps each language role to its text.
type TranslationSet map[constants.LanguageRole]TranslationEntry

// SummarySet maps each language role to a summary.
type SummarySet map[constants.LanguageRole]string

// FormattedSet maps each language role to its human-readable rendering.
type FormattedSet map[constants.LanguageRole]string

// StructuredRecord is the finished payload handed to the persistence sink.
type StructuredRecord struct {
	DocumentType       constants.Category        `json:"document_type"`
	DeclaredType       string                    `json:"declared_type,omitempty"`
	OriginalLanguage   LanguageTag               `json:"original_language"`
	Translations       TranslationSet            `json:"translations"`
	Summaries          SummarySet                `json:"summaries"`
	Formatted          FormattedSet              `json:"formatted"`
	AvailableLanguages []constants.LanguageRole  `json:"available_languages"`
	SummaryStrategy    constants.SummaryStrategy `json:"summary_strategy"`
	ExtractionMethod   string                    `json:"extraction_method,omitempty"`
	GeneratedAt        time.Time                 `json:"generated_at"`
}

// EnglishSummary returns the canonical summary.
func (r *StructuredRecord) EnglishSummary() string {
	if r == nil {
		return ""
	}
	return r.Summaries[constants.RoleEnglish]
}

// OriginalText returns the untouched extracted text.
func (r *StructuredRecord) OriginalText() string {
	if r == nil {
		return ""
	}
	return r.Translations[constants.RoleOriginal].Text
}

// Failure is the payload returned instead of a record when a stage fails outright.
type Failure struct {
	Error        string             `json:"error"`
	OriginalText string             `json:"original_text"`
	DocumentType constants.Category `json:"document_type"`
}

// NewFailure builds a Failure with the Unknown document type.
func NewFailure(err error, originalText string) *Failure {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Failure{Error: msg, OriginalText: originalText, DocumentType: constants.Unknown}
}

// Result holds exactly one of Record or Failure.
type Result struct {
	Record  *StructuredRecord `json:"record,omitempty"`
	Failure *Failure          `json:"failure,omitempty"`
}

// OK reports whether the run produced a record.
func (r Result) OK() bool {
	return r.Record != nil && r.Failure == nil
}
