package summarize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/joseph-ayodele/meddocs/constants"
)

func mustContain(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in:\n%s", w, got)
		}
	}
}

func TestParseLabResultsFlagsOutOfRange(t *testing.T) {
	text := "LABORATORY REPORT\n" +
		"Date: 12.03.2024\n" +
		"Glucose: 150 mg/dL (70-110 mg/dL)\n" +
		"Fasting glucose: 90 mg/dL (70-110 mg/dL)\n" +
		"Hemoglobin: 14,2 g/dL 13,5-17,5\n" +
		"Potassium: 3.1 mmol/L (3.5-5.1)\n" +
		"HbA1c: 5.4 % (<5.7)\n" +
		"Notes: see attached"

	results := ParseLabResults(text)
	if len(results) != 5 {
		t.Fatalf("got %d results: %+v", len(results), results)
	}
	byName := map[string]LabResult{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if r := byName["Glucose"]; !r.Abnormal || r.Flag != "HIGH" {
		t.Errorf("glucose 150 should be HIGH: %+v", r)
	}
	if r := byName["Fasting glucose"]; r.Abnormal {
		t.Errorf("glucose 90 should be normal: %+v", r)
	}
	if r := byName["Potassium"]; !r.Abnormal || r.Flag != "LOW" {
		t.Errorf("potassium 3.1 should be LOW: %+v", r)
	}
	if r := byName["Hemoglobin"]; r.Abnormal || r.Value != 14.2 {
		t.Errorf("hemoglobin: %+v", r)
	}
	if r := byName["HbA1c"]; r.Abnormal || r.Range == nil || !r.Range.HasHigh {
		t.Errorf("hba1c: %+v", r)
	}

	dated := ParseLabResults("Glucose: 95 mg/dL collected 01-05-2024\n" +
		"Sodium: 150 mmol/L 12.03.2024 ref 135-145\n" +
		"Calcium: 9.1 mg/dL drawn 2024-03-12 (8.5-10.2)")
	if len(dated) != 3 {
		t.Fatalf("dated lines: got %+v", dated)
	}
	if r := dated[0]; r.Abnormal || r.Range != nil {
		t.Errorf("a collection date is not a reference range: %+v", r)
	}
	if r := dated[1]; !r.Abnormal || r.Flag != "HIGH" || r.Range == nil || r.Range.Low != 135 {
		t.Errorf("ref-prefixed range after a date: %+v", r)
	}
	if r := dated[2]; r.Abnormal || r.Range == nil || r.Range.High != 10.2 {
		t.Errorf("parenthesised range after a date: %+v", r)
	}

	sum := LabSummarizer{}.Summarize(text)
	mustContain(t, sum,
		"Report date: 12.03.2024",
		"ABNORMAL FINDINGS:\n• Glucose: 150 mg/dL (ref 70-110) HIGH\n• Potassium: 3.1 mmol/L (ref 3.5-5.1) LOW\n",
		"OTHER TEST RESULTS:",
	)
	if strings.Index(sum, "ABNORMAL FINDINGS:") > strings.Index(sum, "OTHER TEST RESULTS:") {
		t.Error("abnormal results must come first")
	}
}

func TestLabUnparsableRangeIsNormal(t *testing.T) {
	r := ParseLabResults("Glucose: 150 mg/dL (see comment)")
	if len(r) != 1 || r[0].Abnormal || r[0].Range != nil {
		t.Fatalf("got %+v", r)
	}
	if _, ok := ParseReferenceRange("110-70"); ok {
		t.Fatal("inverted range must not parse")
	}
}

func TestLabCapsNormalResults(t *testing.T) {
	var lines []string
	for i := 0; i < 13; i++ {
		lines = append(lines, fmt.Sprintf("Analyte %c: 5 mg/dL (1-10)", 'A'+i))
	}
	sum := LabSummarizer{}.Summarize(strings.Join(lines, "\n"))
	mustContain(t, sum, "• Analyte J: 5 mg/dL", "• Plus 3 additional test results")
	if strings.Contains(sum, "Analyte K") || strings.Contains(sum, "ABNORMAL") {
		t.Fatalf("unexpected content:\n%s", sum)
	}
}

func TestExtractSection(t *testing.T) {
	text := "Chief Complaint: chest pain for two days.\nHistory: hypertension.\nAssessment: likely angina.\nPlan: ECG and troponin."
	stops := []string{"chief complaint", "history", "assessment", "plan"}

	tests := []struct {
		name    string
		anchors []string
		stops   []string
		max     int
		want    string
	}{
		{"stops at next anchor", []string{"assessment"}, stops, 500, "likely angina."},
		{"anchor order", []string{"impression", "history"}, stops, 500, "hypertension."},
		{"runs to end", []string{"plan"}, stops, 500, "ECG and troponin."},
		{"truncates", []string{"assessment"}, stops, 10, "likely..."},
		{"no anchor", []string{"findings"}, stops, 500, ""},
		{"matched anchor is not a stop", []string{"plan"}, []string{"plan"}, 500, "ECG and troponin."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSection(text, tt.anchors, tt.stops, tt.max); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}

	repeated := "Plan: rest. Plan: fluids."
	if got := ExtractSection(repeated, []string{"plan"}, []string{"plan"}, 100); got != "rest. Plan: fluids." {
		t.Fatalf("repeated anchor: got %q", got)
	}
}

func TestPrescriptionSummarizer(t *testing.T) {
	text := "Prescription\nPatient: Jane Doe\nPrescriber: Dr. Alan Smith\nDate: 03/14/2024\n" +
		"Amoxicillin 500 mg\nTake one capsule three times daily for 10 days.\n" +
		"Ibuprofen 200 mg as needed\nRefills: zero"

	meds := ParseMedications(text)
	if len(meds) != 2 || meds[0].String() != "Amoxicillin 500 mg" || meds[1].String() != "Ibuprofen 200 mg" {
		t.Fatalf("medications = %+v", meds)
	}

	sum := PrescriptionSummarizer{}.Summarize(text)
	mustContain(t, sum,
		"Date: 03/14/2024",
		"Patient: Jane Doe",
		"Prescriber: Dr. Alan Smith",
		"• Amoxicillin 500 mg",
		"• Take one capsule three times daily for 10 days",
		"Refills: 0",
	)

	empty := PrescriptionSummarizer{}.Summarize("Rx only")
	mustContain(t, empty, "Patient: Unknown", "Prescriber: Unknown", "MEDICATIONS:\n• Not specified", "Refills: Not specified")
}

func TestClinicalSummarizer(t *testing.T) {
	text := "Visit date: 2024-02-01\n" +
		"Chief Complaint: persistent cough\n" +
		"History of Present Illness: cough for 3 weeks, no fever.\n" +
		"Vital Signs: BP 130/85 mmHg, HR 88, Temp 37.2 C, SpO2 97%\n" +
		"Assessment: acute bronchitis.\n" +
		"Plan: rest, fluids, follow up in 1 week."

	sum := ClinicalSummarizer{}.Summarize(text)
	mustContain(t, sum,
		"Date: 2024-02-01",
		"CHIEF COMPLAINT:\n• persistent cough",
		"HISTORY:\n• cough for 3 weeks, no fever.",
		"ASSESSMENT:\n• acute bronchitis.",
		"PLAN:\n• rest, fluids, follow up in 1 week.",
		"BP: 130/85 mmHg",
		"HR: 88",
		"SpO2: 97%",
	)

	fallback := ClinicalSummarizer{}.Summarize("Patient seen today. Symptoms improved after medication. We recommend follow up next month. Weather was nice.")
	mustContain(t, fallback, "KEY POINTS:", "• Symptoms improved after medication.", "• We recommend follow up next month.")
	if strings.Contains(fallback, "Weather") {
		t.Fatalf("non-clinical sentence selected:\n%s", fallback)
	}

	inflected := ClinicalSummarizer{}.Summarize("Symptom onset two days ago. Diagnoses remain unclear. Medications were reviewed. We recommended rest. The room was cold.")
	mustContain(t, inflected, "KEY POINTS:",
		"• Symptom onset two days ago.",
		"• Diagnoses remain unclear.",
		"• Medications were reviewed.",
		"• We recommended rest.",
	)
	if strings.Contains(inflected, "room was cold") {
		t.Fatalf("non-clinical sentence selected:\n%s", inflected)
	}
}

func TestImagingSummarizer(t *testing.T) {
	text := "Exam: MRI lumbar spine\nDate: 05/06/2024\nTechnique: sagittal T1 and T2.\n" +
		"Findings: mild disc bulge at L4-L5. No fracture.\nImpression: mild degenerative change."
	sum := ImagingSummarizer{}.Summarize(text)
	mustContain(t, sum,
		"Exam: MRI lumbar spine",
		"Date: 05/06/2024",
		"FINDINGS:\n• mild disc bulge at L4-L5. No fracture.",
		"IMPRESSION:\n• mild degenerative change.",
	)

	unstructured := ImagingSummarizer{}.Summarize("Chest radiograph obtained today. Small left pleural effusion is seen. No acute fracture identified. Patient tolerated the visit well.")
	mustContain(t, unstructured,
		"Exam: Chest radiograph",
		"Date: Unknown",
		"KEY POINTS:\n• Small left pleural effusion is seen.\n• No acute fracture identified.\n",
	)
	if strings.Contains(unstructured, "tolerated") || strings.Contains(unstructured, "FINDINGS:") {
		t.Fatalf("unexpected content:\n%s", unstructured)
	}

	for _, tt := range []struct{ text, exam string }{
		{"CT scan of the abdomen performed.", "Exam: CT scan of the abdomen"},
		{"Screening mammography shows no mass.", "Exam: mammography"},
		{"Patient walked in with a limp.", "Exam: Unknown imaging type"},
	} {
		mustContain(t, ImagingSummarizer{}.Summarize(tt.text), tt.exam)
	}
}

func TestInsuranceSummarizer(t *testing.T) {
	text := "Acme Health Insurance\nMember ID: XJ12345\nGroup Number: 9981\nPolicy Number: POL-7788\n" +
		"Effective Date: 01/01/2024\nCoverage: Inpatient 80%, Outpatient 70%. Customer Service: 555-0100"
	sum := InsuranceSummarizer{}.Summarize(text)
	mustContain(t, sum,
		"Provider: Acme Health Insurance",
		"Policy Number: POL-7788",
		"Member ID: XJ12345",
		"Group Number: 9981",
		"Effective Date: 01/01/2024",
		"Expiration Date: Not found",
		"COVERAGE:\n• Inpatient 80%, Outpatient 70%.",
	)
}

func TestGeneralSummarizer(t *testing.T) {
	sum := GeneralSummarizer{}.Summarize("Weight: 72 kg. Blood pressure 120/80 mmHg. Diagnosed with mild anemia. Treatment with iron supplements recommended.")
	mustContain(t, sum,
		"• Weight: 72 kg",
		"• 80 mmHg",
		"DIAGNOSIS:\n• Diagnosed with mild anemia.",
		"TREATMENT:\n• Treatment with iron supplements recommended.",
	)

	placeholder := `[Unreadable PDF document "scan.pdf" (2048 bytes): no text could be extracted]`
	mustContain(t, GeneralSummarizer{}.Summarize(placeholder), "No structured medical information", "Excerpt: [Unreadable PDF document")
}

func TestRegistryAlwaysReturnsText(t *testing.T) {
	r := NewRegistry()
	cats := append([]constants.Category{constants.Unknown}, constants.ClassificationOrder...)
	for _, c := range cats {
		for _, in := range []string{"", "   ", "random words only"} {
			if out := r.Summarize(c, in); strings.TrimSpace(out) == "" {
				t.Errorf("%s / %q: empty summary", c, in)
			}
		}
	}
	if _, ok := r.For(constants.Unknown).(GeneralSummarizer); !ok {
		t.Fatal("unknown category should use the general summarizer")
	}
}
