// Package classify assigns a document category from keyword signals.
package classify

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/meddocs/constants"
)

// Keywords holds the lower-case signals per category. Each entry matches at a
// word start and extends over inflections ("lab" matches "labs"); multi-word
// entries match across any run of whitespace.
var Keywords = map[constants.Category][]string{
	constants.LaboratoryReport: {
		"lab", "laboratory", "test results", "reference range", "reference interval",
		"blood test", "specimen", "blood count",
	},
	constants.Prescription: {
		"rx", "prescription", "take", "daily", "dose", "dosage", "medication",
		"pharmacy", "refill", "refills",
	},
	constants.ClinicalNote: {
		"assessment", "diagnosis", "diagnoses", "plan", "chief complaint", "history",
		"examination", "history of present illness",
	},
	constants.ImagingReport: {
		"x-ray", "xray", "mri", "ct scan", "ultrasound", "radiology", "imaging",
		"radiograph", "mammogram",
	},
	constants.InsuranceDoc: {
		"insurance", "policy number", "member id", "group number", "insurer",
		"coverage", "deductible", "copay", "subscriber",
	},
}

type rule struct {
	category constants.Category
	re       *regexp.Regexp
}

var rules = compileRules()

func compileRules() []rule {
	out := make([]rule, 0, len(constants.ClassificationOrder))
	for _, cat := range constants.ClassificationOrder {
		alts := make([]string, 0, len(Keywords[cat]))
		for _, kw := range Keywords[cat] {
			parts := strings.Fields(kw)
			for i := range parts {
				parts[i] = regexp.QuoteMeta(parts[i])
			}
			alts = append(alts, strings.Join(parts, `\s+`))
		}
		out = append(out, rule{
			category: cat,
			re:       regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\w*`),
		})
	}
	return out
}

// Classify returns the first category in priority order whose keywords occur
// in text, or MedicalDocument.
func Classify(text string) constants.Category {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.re.MatchString(lower) {
			return r.category
		}
	}
	return constants.MedicalDocument
}

// Signals lists the matched keywords per category, for diagnostics.
func Signals(text string) map[constants.Category][]string {
	lower := strings.ToLower(text)
	out := map[constants.Category][]string{}
	for _, r := range rules {
		if m := r.re.FindAllString(lower, -1); len(m) > 0 {
			out[r.category] = m
		}
	}
	return out
}
