package summarize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/utils"
)

const dosagePattern = `\d+(?:[.,]\d+)?\s*(?:mg|mcg|µg|g|ml|mL|iu|IU|units?|%)`

var prescriptionFields = []FieldPattern{
	{Name: "patient", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpatient(?:\s+name)?\s*:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)(?:^|\n)\s*name\s*:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)\b(?:for|issued\s+to)\s*:\s*([^\n]+)`),
	}},
	{Name: "prescriber", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:prescriber|prescribed\s+by|physician|doctor)\s*:\s*([^\n]+)`),
		regexp.MustCompile(`\b(Dr\.?\s+[A-Z][A-Za-z'\-]+(?:\s+[A-Z][A-Za-z'\-]+)?)`),
	}},
	{Name: "date", Alternatives: []*regexp.Regexp{
		labeledDate(`date|prescribed(?:\s+on)?|issued`),
		reDate,
	}},
	{Name: "refills", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\brefills?\s*(?:allowed|remaining)?\s*[:\-]?\s*(\d+|zero|none|no)\b`),
		regexp.MustCompile(`(?i)\b(\d+|zero|no)\s+refills?\b`),
	}},
}

var drugSuffixes = []string{
	"cillin", "mycin", "micin", "pril", "sartan", "olol", "statin", "azole", "prazole",
	"dipine", "formin", "oxetine", "aline", "triptan", "cycline", "floxacin", "vir",
	"mab", "nib", "azepam", "zolam", "tidine", "sone", "olone", "parin", "profen",
	"fenac", "pram", "done", "codone", "gliptin", "gliflozin", "thiazide", "semide",
	"lukast", "tadine", "dronate", "oxacin",
}

var (
	reSuffixDrug = regexp.MustCompile(`(?i)\b([a-z]+(?:` + strings.Join(drugSuffixes, "|") + `))\b(?:\s+(` + dosagePattern + `))?`)
	reNamedDose  = regexp.MustCompile(`\b([A-Z][a-zA-Z]{2,}(?:\s+[A-Z][a-zA-Z]{2,})?)\s+(` + dosagePattern + `)`)
	reTakeClause = regexp.MustCompile(`(?i)\btake\b[^.\n;]*`)
)

// words that precede a dosage but are not drug names
var nonDrugWords = map[string]struct{}{
	"take": {}, "tablet": {}, "tablets": {}, "capsule": {}, "capsules": {}, "dose": {},
	"daily": {}, "give": {}, "use": {}, "apply": {}, "total": {}, "each": {}, "inject": {},
	"dosage": {}, "max": {}, "maximum": {},
}

// Medication is one drug with its dosage, when stated.
type Medication struct {
	Name   string
	Dosage string
}

func (m Medication) String() string {
	if m.Dosage == "" {
		return m.Name + " (dosage not specified)"
	}
	return m.Name + " " + m.Dosage
}

// ParseMedications finds drug names by pharmacological suffix, then by a
// capitalized name followed by a dosage.
func ParseMedications(text string) []Medication {
	var out []Medication
	index := map[string]int{}
	add := func(name, dose string) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if _, skip := nonDrugWords[key]; skip || name == "" {
			return
		}
		dose = utils.CollapseWhitespace(dose)
		if i, ok := index[key]; ok {
			if out[i].Dosage == "" {
				out[i].Dosage = dose
			}
			return
		}
		index[key] = len(out)
		out = append(out, Medication{Name: titleWord(name), Dosage: dose})
	}
	for _, m := range reSuffixDrug.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	for _, m := range reNamedDose.FindAllStringSubmatch(text, -1) {
		first := strings.ToLower(strings.Fields(m[1])[0])
		if _, skip := nonDrugWords[first]; skip {
			continue
		}
		add(m[1], m[2])
	}
	return out
}

// ParseInstructions returns distinct "Take ..." fragments.
func ParseInstructions(text string, max int) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, frag := range reTakeClause.FindAllString(text, -1) {
		frag = utils.CollapseWhitespace(frag)
		key := strings.ToLower(frag)
		if _, dup := seen[key]; dup || len(strings.Fields(frag)) < 2 {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, frag)
		if len(out) == max {
			break
		}
	}
	return out
}

func normalizeRefills(v string) string {
	switch strings.ToLower(v) {
	case "zero", "none", "no":
		return "0"
	}
	return v
}

// PrescriptionSummarizer reports patient, prescriber, drugs and refills.
type PrescriptionSummarizer struct{}

func (PrescriptionSummarizer) Category() constants.Category { return constants.Prescription }

func (PrescriptionSummarizer) Summarize(text string) string {
	f := ExtractFields(text, prescriptionFields)
	meds := ParseMedications(text)
	instructions := ParseInstructions(text, 5)

	var b strings.Builder
	b.WriteString("PRESCRIPTION\n")
	b.WriteString("Date: " + orDefault(f, "date", "Unknown") + "\n")
	b.WriteString("Patient: " + orDefault(f, "patient", "Unknown") + "\n")
	b.WriteString("Prescriber: " + orDefault(f, "prescriber", "Unknown") + "\n\n")

	b.WriteString("MEDICATIONS:\n")
	if len(meds) == 0 {
		b.WriteString("• Not specified\n")
	} else {
		lines := make([]string, len(meds))
		for i, m := range meds {
			lines[i] = m.String()
		}
		b.WriteString(bullets(lines))
	}

	b.WriteString("\nINSTRUCTIONS:\n")
	if len(instructions) == 0 {
		b.WriteString("• Not specified\n")
	} else {
		b.WriteString(bullets(instructions))
	}

	refills := "Not specified"
	if v, ok := f["refills"]; ok {
		refills = normalizeRefills(v)
	}
	b.WriteString("\nRefills: " + refills + "\n")
	return b.String()
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
