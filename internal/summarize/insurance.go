package summarize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/meddocs/constants"
)

const idValue = `([A-Z0-9][A-Z0-9\-]{2,})`

var insuranceFields = []FieldPattern{
	{Name: "Provider", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:insurance\s+company|insurer|carrier|plan\s+name|provider)\s*:\s*([^\n]+)`),
		regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z&.' ]*\b(?:Insurance|Health|Healthcare|Assurance|Mutual|Krankenkasse)\b[A-Za-z&.' ]*)\s*$`),
	}},
	{Name: "Policy Number", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpolicy\s*(?:number|no\.?|#)\s*[:\-]?\s*` + idValue),
		regexp.MustCompile(`(?i)\bpolicy\s*:\s*` + idValue),
		regexp.MustCompile(`(?i)\bcontract\s*(?:number|no\.?|#)\s*[:\-]?\s*` + idValue),
	}},
	{Name: "Member ID", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmember\s*(?:id|number|no\.?|#)\s*[:\-]?\s*` + idValue),
		regexp.MustCompile(`(?i)\b(?:subscriber|insured)\s*(?:id|number)\s*[:\-]?\s*` + idValue),
		regexp.MustCompile(`(?i)\bid\s*(?:number|no\.?|#)\s*[:\-]?\s*` + idValue),
	}},
	{Name: "Group Number", Alternatives: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bgroup\s*(?:number|no\.?|#|id)\s*[:\-]?\s*` + idValue),
		regexp.MustCompile(`(?i)\bgrp\s*#?\s*[:\-]?\s*` + idValue),
	}},
	{Name: "Effective Date", Alternatives: []*regexp.Regexp{
		labeledDate(`effective(?:\s+date)?|valid\s+from|coverage\s+start|start\s+date`),
	}},
	{Name: "Expiration Date", Alternatives: []*regexp.Regexp{
		labeledDate(`(?:expiration|expiry)(?:\s+date)?|expires(?:\s+on)?|valid\s+(?:until|through|thru)|end\s+date`),
	}},
}

var coverageAnchors = []string{"coverage", "benefits"}

var insuranceStops = []string{
	"policy number", "member id", "group number", "effective", "expiration",
	"expires", "provider", "insurer", "customer service", "claims",
}

// InsuranceSummarizer extracts policy identifiers and coverage.
type InsuranceSummarizer struct{}

func (InsuranceSummarizer) Category() constants.Category { return constants.InsuranceDoc }

func (InsuranceSummarizer) Summarize(text string) string {
	f := ExtractFields(text, insuranceFields)

	var b strings.Builder
	b.WriteString("INSURANCE DOCUMENT\n")
	for _, field := range insuranceFields {
		b.WriteString(field.Name + ": " + orDefault(f, field.Name, "Not found") + "\n")
	}
	if cov := ExtractSection(text, coverageAnchors, insuranceStops, DefaultSectionLen); cov != "" {
		b.WriteString("\nCOVERAGE:\n")
		b.WriteString(sectionBullets(cov))
	}
	return b.String()
}
