// Package langdetect guesses the language of extracted document text.
package langdetect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

const (
	// MinDetectChars is the shortest input worth running detection on.
	MinDetectChars = 20
	// MaxDetectChars caps how much text the primary detector sees.
	MaxDetectChars = 1000
)

// ErrUndetermined is returned by a Guesser that has no answer.
var ErrUndetermined = errors.New("language could not be determined")

// Guesser returns an ISO 639-1 code for text.
type Guesser interface {
	Guess(text string) (string, error)
}

// Detector runs the primary guesser and consults the secondary only when the
// primary fails. Detection never fails: anything unresolved is English.
type Detector struct {
	primary   Guesser
	secondary Guesser
	logger    *slog.Logger
}

func NewDetector(primary, secondary Guesser, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{primary: primary, secondary: secondary, logger: logger}
}

// Detect returns the language of text, defaulting to English.
func (d *Detector) Detect(ctx context.Context, text string) entity.LanguageTag {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinDetectChars {
		return Tag(constants.LangEnglish)
	}
	sample := headRunes(trimmed, MaxDetectChars)

	code, err := guardedGuess(d.primary, sample)
	if err != nil {
		d.logger.Debug("primary language detection failed", "error", err)
		code, err = guardedGuess(d.secondary, sample)
		if err != nil {
			d.logger.Debug("secondary language detection failed", "error", err)
			return Tag(constants.LangEnglish)
		}
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return Tag(constants.LangEnglish)
	}
	d.logger.Debug("language detected", "code", code)
	return Tag(code)
}

// guardedGuess turns a nil guesser or a panic into an error.
func guardedGuess(g Guesser, text string) (code string, err error) {
	if g == nil {
		return "", ErrUndetermined
	}
	defer func() {
		if r := recover(); r != nil {
			code, err = "", fmt.Errorf("language guesser panicked: %v", r)
		}
	}()
	return g.Guess(text)
}

// Tag builds a LanguageTag with a resolved name.
func Tag(code string) entity.LanguageTag {
	return entity.LanguageTag{Code: code, Name: Name(code)}
}

func headRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
