package langdetect

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// DefaultLanguages are the languages the lingua model is loaded with.
var DefaultLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Italian,
	lingua.Spanish,
	lingua.Dutch,
	lingua.Portuguese,
	lingua.Polish,
	lingua.Turkish,
	lingua.Russian,
	lingua.Arabic,
}

// LinguaDetector is the primary statistical detector.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

func NewLinguaDetector(languages ...lingua.Language) *LinguaDetector {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()
	return &LinguaDetector{detector: d}
}

func (l *LinguaDetector) Guess(text string) (string, error) {
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", ErrUndetermined
	}
	return strings.ToLower(lang.IsoCode639_1().String()), nil
}
