package summarize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/joseph-ayodele/meddocs/internal/utils"
)

const (
	maxGeneralValues    = 10
	maxGeneralSentences = 3
)

const unitPattern = `(?:mg/dl|mmol/l|g/dl|g/l|µmol/l|umol/l|u/l|iu/l|mmhg|bpm|mg|mcg|µg|kg|cm|mm|ml|l/min|%)`

var (
	reLabeledValue   = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z ]{1,30}?)\s*:\s*(\d+(?:[.,]\d+)?)\s*(` + unitPattern + `)(?:\s|$|[,;.)])`)
	reUnlabeledValue = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(` + unitPattern + `)(?:\s|$|[,;.)])`)
)

var diagnosisKeywords = []string{
	"diagnosis", "diagnoses", "diagnosed", "condition", "disease", "disorder", "findings", "suspected",
}

var treatmentKeywords = []string{
	"treatment", "treated", "therapy", "medication", "prescribed", "recommend",
	"recommended", "follow up", "follow-up",
}

// ParseValues returns labeled values first, then unlabeled ones not already
// covered, capped at max.
func ParseValues(text string, max int) []string {
	var out []string
	covered := map[string]struct{}{}
	for _, m := range reLabeledValue.FindAllStringSubmatch(text, -1) {
		if len(out) == max {
			return out
		}
		name := utils.CollapseWhitespace(m[1])
		if _, skip := nonTestLabels[strings.ToLower(name)]; skip {
			continue
		}
		covered[m[2]+" "+strings.ToLower(m[3])] = struct{}{}
		out = append(out, name+": "+m[2]+" "+m[3])
	}
	for _, m := range reUnlabeledValue.FindAllStringSubmatch(text, -1) {
		if len(out) == max {
			return out
		}
		key := m[1] + " " + strings.ToLower(m[2])
		if _, dup := covered[key]; dup {
			continue
		}
		covered[key] = struct{}{}
		out = append(out, m[1]+" "+m[2])
	}
	return out
}

// GeneralSummarizer is the fallback for documents no other summarizer claims.
type GeneralSummarizer struct{}

func (GeneralSummarizer) Category() constants.Category { return constants.MedicalDocument }

func (GeneralSummarizer) Summarize(text string) string {
	date, ok := FirstDate(text)
	if !ok {
		date = "Unknown"
	}
	values := ParseValues(text, maxGeneralValues)
	diagnoses := KeywordSentences(text, diagnosisKeywords, maxGeneralSentences)
	treatments := KeywordSentences(text, treatmentKeywords, maxGeneralSentences)

	var b strings.Builder
	b.WriteString("MEDICAL DOCUMENT\n")
	b.WriteString("Date: " + date + "\n\n")
	if len(values) > 0 {
		b.WriteString("MEASUREMENTS:\n")
		b.WriteString(bullets(values))
		b.WriteByte('\n')
	}
	if len(diagnoses) > 0 {
		b.WriteString("DIAGNOSIS:\n")
		b.WriteString(bullets(diagnoses))
		b.WriteByte('\n')
	}
	if len(treatments) > 0 {
		b.WriteString("TREATMENT:\n")
		b.WriteString(bullets(treatments))
		b.WriteByte('\n')
	}
	if len(values)+len(diagnoses)+len(treatments) == 0 {
		b.WriteString("No structured medical information could be extracted from this document.\n")
		if excerpt := utils.Truncate(utils.CollapseWhitespace(text), 200); excerpt != "" {
			b.WriteString("Excerpt: " + excerpt + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
