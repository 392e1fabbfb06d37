package translate

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/meddocs/internal/utils"
)

// DefaultChunkSize is the per-request character budget for backends.
const DefaultChunkSize = 1000

// Sentences splits text after '.', '!' or '?' followed by whitespace.
func Sentences(text string) []string {
	return utils.SplitSentences(text)
}

// Chunk packs whole sentences into chunks of at most max characters. A
// sentence longer than max is first broken at line breaks (OCR output often
// has none of '.', '!' or '?'); a single line longer than max becomes its own
// chunk. Lines are never split.
func Chunk(text string, max int) []string {
	if max <= 0 {
		max = DefaultChunkSize
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	for _, s := range Sentences(text) {
		for _, piece := range splitLines(s, max) {
			n := utf8.RuneCountInString(piece)
			if curLen > 0 && curLen+1+n > max {
				chunks = append(chunks, cur.String())
				cur.Reset()
				curLen = 0
			}
			if curLen > 0 {
				cur.WriteByte(' ')
				curLen++
			}
			cur.WriteString(piece)
			curLen += n
		}
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// splitLines breaks a sentence longer than max at newline runs and packs the
// lines back together, newline-separated, up to max characters.
func splitLines(s string, max int) []string {
	if utf8.RuneCountInString(s) <= max {
		return []string{s}
	}
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n := utf8.RuneCountInString(line)
		if curLen > 0 && curLen+1+n > max {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(line)
		curLen += n
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}
