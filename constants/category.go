package constants

import (
	"strings"
)

// Category is the closed set of document types a pipeline run can assign.
type Category string

const (
	LaboratoryReport Category = "Laboratory Report"
	Prescription     Category = "Prescription or Medication Instructions"
	ClinicalNote     Category = "Clinical Note or Assessment"
	ImagingReport    Category = "Imaging Report"
	InsuranceDoc     Category = "Insurance Document"
	MedicalDocument  Category = "Medical Document"

	// Unknown is only used in failure payloads, never assigned by the classifier.
	Unknown Category = "Unknown"
)

// ClassificationOrder is the fixed priority in which categories are tested.
var ClassificationOrder = []Category{
	LaboratoryReport,
	Prescription,
	ClinicalNote,
	ImagingReport,
	InsuranceDoc,
}

var allCategories = []Category{
	LaboratoryReport,
	Prescription,
	ClinicalNote,
	ImagingReport,
	InsuranceDoc,
	MedicalDocument,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// CanonicalizeHint maps a declared upload file_type (e.g. "lab_result", "insurance_card")
// to a Category. The hint is informational; the classifier decides the category.
func CanonicalizeHint(input string) (Category, bool) {
	if input == "" {
		return MedicalDocument, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	synonyms := map[string]Category{
		"lab":            LaboratoryReport,
		"lab_result":     LaboratoryReport,
		"lab_results":    LaboratoryReport,
		"lab_report":     LaboratoryReport,
		"blood_test":     LaboratoryReport,
		"prescription":   Prescription,
		"medication":     Prescription,
		"rx":             Prescription,
		"clinical_note":  ClinicalNote,
		"doctor_letter":  ClinicalNote,
		"discharge":      ClinicalNote,
		"imaging":        ImagingReport,
		"radiology":      ImagingReport,
		"x_ray":          ImagingReport,
		"xray":           ImagingReport,
		"mri":            ImagingReport,
		"insurance":      InsuranceDoc,
		"insurance_card": InsuranceDoc,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if strings.EqualFold(strings.TrimSpace(input), string(cat)) {
			return cat, true
		}
	}

	return MedicalDocument, false
}
