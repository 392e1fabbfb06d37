package summarize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/meddocs/internal/utils"
)

// FieldPattern is one named field with ordered regex alternatives. Each
// alternative must have one capture group holding the value.
type FieldPattern struct {
	Name         string
	Alternatives []*regexp.Regexp
}

// FirstMatch returns the first non-empty capture of the first alternative
// that matches.
func FirstMatch(text string, alts []*regexp.Regexp) (string, bool) {
	for _, re := range alts {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v := cleanValue(m[1]); v != "" {
			return v, true
		}
	}
	return "", false
}

// ExtractFields runs every pattern and returns the values found, keyed by name.
func ExtractFields(text string, fields []FieldPattern) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := FirstMatch(text, f.Alternatives); ok {
			out[f.Name] = v
		}
	}
	return out
}

func cleanValue(s string) string {
	s = utils.CollapseWhitespace(s)
	return strings.Trim(s, " :;,-")
}

const datePattern = `(?:\d{4}-\d{2}-\d{2}` +
	`|\d{1,2}[./-]\d{1,2}[./-]\d{2,4}` +
	`|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}` +
	`|\d{1,2}(?:st|nd|rd|th)?\.?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+\d{4})`

var reDate = regexp.MustCompile(`(?i)\b(` + datePattern + `)\b`)

// FirstDate returns the first date-like token anywhere in text.
func FirstDate(text string) (string, bool) {
	m := reDate.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// labeledDate builds a pattern for "<label>: <date>".
func labeledDate(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + labels + `)\s*[:\-]?\s*(` + datePattern + `)`)
}

func orDefault(fields map[string]string, name, def string) string {
	if v, ok := fields[name]; ok && v != "" {
		return v
	}
	return def
}
