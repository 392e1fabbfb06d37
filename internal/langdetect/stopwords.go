package langdetect

import (
	"strings"
	"unicode"
)

var stopwords = map[string][]string{
	"en": {"the", "and", "with", "patient", "was", "for", "this", "that", "have", "are"},
	"de": {"und", "sind", "nicht", "eine", "einer", "diese", "haben", "wird", "können", "der", "die", "das", "mit"},
	"fr": {"sont", "avec", "cette", "vous", "votre", "dans", "nous", "notre", "les", "des"},
	"it": {"della", "sono", "questo", "presso", "alla", "degli", "delle", "signor", "signora"},
	"es": {"está", "esta", "con", "para", "por", "una", "las", "los", "este"},
	"nl": {"het", "een", "niet", "zijn", "wordt", "voor", "bij", "naar"},
	"pt": {"não", "uma", "são", "pelo", "pela", "também", "você", "dos"},
}

// StopwordDetector counts distinct function words per language. The winner
// must beat every other language and match more than one word.
type StopwordDetector struct{}

func (StopwordDetector) Guess(text string) (string, error) {
	words := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		words[w] = struct{}{}
	}

	best, bestCount, tie := "", 0, false
	for code, list := range stopwords {
		n := 0
		for _, w := range list {
			if _, ok := words[w]; ok {
				n++
			}
		}
		switch {
		case n > bestCount:
			best, bestCount, tie = code, n, false
		case n == bestCount:
			tie = true
		}
	}
	if bestCount <= 1 || tie {
		return "", ErrUndetermined
	}
	return best, nil
}
