package summarize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/meddocs/constants"
)

// sectionSpec names a summary heading and the anchors that introduce it.
type sectionSpec struct {
	Heading string
	Anchors []string
}

var clinicalSections = []sectionSpec{
	{Heading: "CHIEF COMPLAINT", Anchors: []string{"chief complaint", "reason for visit", "presenting complaint"}},
	{Heading: "HISTORY", Anchors: []string{"history of present illness", "medical history", "history"}},
	{Heading: "ASSESSMENT", Anchors: []string{"assessment", "diagnosis", "impression"}},
	{Heading: "PLAN", Anchors: []string{"treatment plan", "plan", "recommendations", "recommendation"}},
}

// headings that end a clinical section without being summarized
var clinicalStops = []string{
	"vital signs", "vitals", "physical examination", "physical exam", "examination",
	"medications", "allergies", "signed", "signature",
}

var clinicalKeywords = []string{
	"diagnosis", "diagnoses", "diagnosed", "assessment", "treatment", "recommend",
	"follow up", "follow-up", "medication", "symptom",
}

var vitalProbes = []FieldPattern{
	{Name: "BP", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:BP|blood\s+pressure)\s*[:\-]?\s*(\d{2,3}\s*/\s*\d{2,3}(?:\s*mm\s*Hg)?)`),
	}},
	{Name: "HR", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:HR|heart\s+rate)\s*[:\-]?\s*(\d{2,3}(?:\s*(?:bpm|/min))?)`),
	}},
	{Name: "RR", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:RR|resp(?:iratory)?\s+rate)\s*[:\-]?\s*(\d{1,2}(?:\s*/min)?)`),
	}},
	{Name: "Temp", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btemp(?:erature)?\s*[:\-]?\s*(\d{2,3}(?:[.,]\d)?\s*°?\s*[CF]?)\b`),
	}},
	{Name: "SpO2", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:SpO2|O2\s+sat(?:uration)?|oxygen\s+saturation)\s*[:\-]?\s*(\d{2,3}\s*%?)`),
	}},
	{Name: "Pulse", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpulse\s*[:\-]?\s*(\d{2,3}(?:\s*(?:bpm|/min))?)`),
	}},
}

// ParseVitals probes each vital sign independently, in a fixed order.
func ParseVitals(text string) []string {
	var out []string
	for _, p := range vitalProbes {
		if v, ok := FirstMatch(text, p.Alternatives); ok {
			out = append(out, p.Name+": "+v)
		}
	}
	return out
}

// summarizeSections renders each section found in text. It reports whether
// any section matched.
func summarizeSections(b *strings.Builder, text string, specs []sectionSpec, extraStops []string) bool {
	var stops []string
	for _, s := range specs {
		stops = append(stops, s.Anchors...)
	}
	stops = append(stops, extraStops...)

	found := false
	for _, s := range specs {
		sec := ExtractSection(text, s.Anchors, stops, DefaultSectionLen)
		if sec == "" {
			continue
		}
		found = true
		b.WriteString(s.Heading + ":\n")
		b.WriteString(sectionBullets(sec))
		b.WriteByte('\n')
	}
	return found
}

// ClinicalSummarizer extracts the standard note sections and vital signs.
type ClinicalSummarizer struct{}

func (ClinicalSummarizer) Category() constants.Category { return constants.ClinicalNote }

func (ClinicalSummarizer) Summarize(text string) string {
	date, ok := FirstDate(text)
	if !ok {
		date = "Unknown"
	}
	var b strings.Builder
	b.WriteString("CLINICAL NOTE\n")
	b.WriteString("Date: " + date + "\n\n")

	found := summarizeSections(&b, text, clinicalSections, clinicalStops)
	if vitals := ParseVitals(text); len(vitals) > 0 {
		b.WriteString("VITAL SIGNS:\n")
		b.WriteString(bullets(vitals))
		b.WriteByte('\n')
		found = true
	}
	if !found {
		writeKeywordFallback(&b, text, clinicalKeywords, "No structured clinical information could be extracted from this note.")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

var imagingSections = []sectionSpec{
	{Heading: "FINDINGS", Anchors: []string{"findings", "observations"}},
	{Heading: "IMPRESSION", Anchors: []string{"impression", "conclusion", "interpretation"}},
}

var imagingStops = []string{
	"technique", "comparison", "clinical indication", "indication", "clinical history",
	"recommendation", "signed", "electronically signed",
}

var imagingKeywords = []string{
	"finding", "findings", "impression", "normal", "abnormal", "fracture", "lesion",
	"mass", "opacity", "effusion", "no evidence", "consistent with",
}

var examTypeField = FieldPattern{Name: "exam", Alternatives: []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:exam(?:ination)?|study|procedure|modality)\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)\b((?:MRI|CT(?:\s+scan)?|X-?ray|(?:[a-z]+\s+)?radiographs?|ultrasound|mammography|mammogram|PET(?:-CT)?)(?:\s+(?:of\s+)?(?:the\s+)?[a-z]+(?:\s+[a-z]+)?)?)`),
}}

// ImagingSummarizer extracts exam type, findings and impression.
type ImagingSummarizer struct{}

func (ImagingSummarizer) Category() constants.Category { return constants.ImagingReport }

func (ImagingSummarizer) Summarize(text string) string {
	exam, ok := FirstMatch(text, examTypeField.Alternatives)
	if !ok {
		exam = "Unknown imaging type"
	}
	date, ok := FirstDate(text)
	if !ok {
		date = "Unknown"
	}
	var b strings.Builder
	b.WriteString("IMAGING REPORT\n")
	b.WriteString("Exam: " + exam + "\n")
	b.WriteString("Date: " + date + "\n\n")

	if !summarizeSections(&b, text, imagingSections, imagingStops) {
		writeKeywordFallback(&b, text, imagingKeywords, "No structured radiology information could be extracted from this report.")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// writeKeywordFallback lists up to five keyword sentences, or the given note.
func writeKeywordFallback(b *strings.Builder, text string, keywords []string, none string) {
	if sentences := KeywordSentences(text, keywords, 5); len(sentences) > 0 {
		b.WriteString("KEY POINTS:\n")
		b.WriteString(bullets(sentences))
		return
	}
	b.WriteString(none + "\n")
}
