package summarize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/meddocs/constants"
)

// MaxNormalResults caps the normal results listed in a lab summary.
const MaxNormalResults = 10

// ReferenceRange is a parsed "low-high", "<high" or ">low" range.
type ReferenceRange struct {
	Low, High       float64
	HasLow, HasHigh bool
}

// Contains reports whether v lies inside the range, bounds inclusive.
func (r ReferenceRange) Contains(v float64) bool {
	if r.HasLow && v < r.Low {
		return false
	}
	if r.HasHigh && v > r.High {
		return false
	}
	return true
}

func (r ReferenceRange) String() string {
	switch {
	case r.HasLow && r.HasHigh:
		return formatNumber(r.Low) + "-" + formatNumber(r.High)
	case r.HasHigh:
		return "<" + formatNumber(r.High)
	case r.HasLow:
		return ">" + formatNumber(r.Low)
	}
	return ""
}

// LabResult is one "Name: Value Unit" line.
type LabResult struct {
	Name     string
	RawValue string
	Value    float64
	Unit     string
	Range    *ReferenceRange
	Abnormal bool
	Flag     string // HIGH or LOW when abnormal
}

func (l LabResult) String() string {
	s := l.Name + ": " + l.RawValue
	if l.Unit != "" {
		s += " " + l.Unit
	}
	if l.Range != nil {
		s += " (ref " + l.Range.String() + ")"
	}
	if l.Flag != "" {
		s += " " + l.Flag
	}
	return s
}

var (
	reLabLine = regexp.MustCompile(`^[\s*•\-]*([A-Za-z][A-Za-z0-9 ()/,%\-]{0,40}?)\s*:\s*([<>]?\s*\d+(?:[.,]\d+)?)\s*([A-Za-zµμ%/][A-Za-z0-9µμ%/^.]*)?(.*)$`)
	reDateTail = regexp.MustCompile(`^[./:\-]\d`)
	reRange    = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:-|–|to|bis)\s*(\d+(?:[.,]\d+)?)`)
	reUpper    = regexp.MustCompile(`(?:<|≤|<=)\s*(\d+(?:[.,]\d+)?)`)
	reLower    = regexp.MustCompile(`(?:>|≥|>=)\s*(\d+(?:[.,]\d+)?)`)
	reRefHint  = regexp.MustCompile(`(?i)\(([^)]*)\)|\bref(?:erence)?\b(?:\s+(?:range|interval))?\s*[:.]?\s*([^;]*)`)
)

// names that look like "Label: number" but are not test results
var nonTestLabels = map[string]struct{}{
	"date": {}, "page": {}, "phone": {}, "tel": {}, "fax": {}, "dob": {},
	"id": {}, "patient id": {}, "age": {}, "time": {}, "report date": {},
	"collected": {}, "received": {}, "reported": {}, "zip": {}, "room": {},
}

// ParseReferenceRange parses the first range found in s.
func ParseReferenceRange(s string) (ReferenceRange, bool) {
	if m := reRange.FindStringSubmatch(s); m != nil {
		lo, err1 := parseNumber(m[1])
		hi, err2 := parseNumber(m[2])
		if err1 == nil && err2 == nil && lo <= hi {
			return ReferenceRange{Low: lo, High: hi, HasLow: true, HasHigh: true}, true
		}
		return ReferenceRange{}, false
	}
	if m := reUpper.FindStringSubmatch(s); m != nil {
		if hi, err := parseNumber(m[1]); err == nil {
			return ReferenceRange{High: hi, HasHigh: true}, true
		}
	}
	if m := reLower.FindStringSubmatch(s); m != nil {
		if lo, err := parseNumber(m[1]); err == nil {
			return ReferenceRange{Low: lo, HasLow: true}, true
		}
	}
	return ReferenceRange{}, false
}

// lineRange reads the reference range from the text after a result. A
// parenthesised or "ref"-prefixed range wins; otherwise dates are removed
// before scanning so a collection date is never read as a range.
func lineRange(rest string) (ReferenceRange, bool) {
	for _, m := range reRefHint.FindAllStringSubmatch(rest, -1) {
		if rr, ok := ParseReferenceRange(m[1] + m[2]); ok {
			return rr, true
		}
	}
	return ParseReferenceRange(reDate.ReplaceAllString(rest, " "))
}

// ParseLabResults scans text line by line for labeled numeric results.
// A result is abnormal only when its value falls outside a parsed range;
// results with no usable range count as normal.
func ParseLabResults(text string) []LabResult {
	var out []LabResult
	for _, line := range strings.Split(text, "\n") {
		m := reLabLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		rawValue := strings.ReplaceAll(strings.TrimSpace(m[2]), " ", "")
		unit := strings.TrimRight(m[3], ".")
		rest := m[4]
		if unit == "" && reDateTail.MatchString(rest) {
			continue
		}
		if _, skip := nonTestLabels[strings.ToLower(name)]; skip {
			continue
		}
		if strings.HasPrefix(rawValue, "<") || strings.HasPrefix(rawValue, ">") {
			// censored values cannot be compared
			out = append(out, LabResult{Name: name, RawValue: rawValue, Unit: unit})
			continue
		}
		v, err := parseNumber(rawValue)
		if err != nil {
			continue
		}
		res := LabResult{Name: name, RawValue: rawValue, Value: v, Unit: unit}
		if rr, ok := lineRange(rest); ok {
			res.Range = &rr
			if !rr.Contains(v) {
				res.Abnormal = true
				if rr.HasHigh && v > rr.High {
					res.Flag = "HIGH"
				} else {
					res.Flag = "LOW"
				}
			}
		}
		out = append(out, res)
	}
	return out
}

// LabSummarizer lists abnormal results first, then up to ten normal ones.
type LabSummarizer struct{}

func (LabSummarizer) Category() constants.Category { return constants.LaboratoryReport }

func (LabSummarizer) Summarize(text string) string {
	date, ok := FirstDate(text)
	if !ok {
		date = "Unknown"
	}
	results := ParseLabResults(text)

	var abnormal, normal []string
	for _, r := range results {
		if r.Abnormal {
			abnormal = append(abnormal, r.String())
		} else {
			normal = append(normal, r.String())
		}
	}

	var b strings.Builder
	b.WriteString("LABORATORY REPORT\n")
	b.WriteString("Report date: " + date + "\n\n")
	if len(results) == 0 {
		b.WriteString("No numeric test results could be identified in this report.\n")
		return b.String()
	}
	if len(abnormal) > 0 {
		b.WriteString("ABNORMAL FINDINGS:\n")
		b.WriteString(bullets(abnormal))
		b.WriteByte('\n')
	}
	if len(normal) > 0 {
		b.WriteString("OTHER TEST RESULTS:\n")
		shown := normal
		if len(shown) > MaxNormalResults {
			shown = shown[:MaxNormalResults]
		}
		b.WriteString(bullets(shown))
		if extra := len(normal) - len(shown); extra > 0 {
			fmt.Fprintf(&b, "• Plus %d additional test results\n", extra)
		}
	}
	return b.String()
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
