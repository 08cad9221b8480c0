package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisUser(t *testing.T) {
	assert.Equal(t, "Analyze this X-RAY scan image and respond with the JSON per schema.", AnalysisUser("xray", ""))

	p := AnalysisUser("mri", "  Patient: Jane, 54  ")
	assert.Contains(t, p, "MRI scan")
	assert.Contains(t, p, "\nPatient Context: Patient: Jane, 54")
}

func TestAnalysisSystemMentionsSchemaKeys(t *testing.T) {
	s := AnalysisSystem()
	for _, key := range []string{"description", "abnormalities", "disease_classification", "confidence_score", "risk_level", "explanation", "recommendations"} {
		assert.Contains(t, s, `"`+key+`"`)
	}
}

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		reply string
		want  bool
	}{
		{"RELEVANT", true},
		{"  relevant\n", true},
		{"NOT_RELEVANT", false},
		{"The answer is NOT_RELEVANT.", false},
		{"", false},
		{"I am not sure", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRelevant(tt.reply), tt.reply)
	}
}

func TestChatIncludesHistoryInOrder(t *testing.T) {
	p := Chat("Is it serious?", []Turn{
		{Sender: "user", Body: "I have chest pain"},
		{Sender: "ai", Body: "How long have you had it?"},
	})
	assert.Contains(t, p, "user: I have chest pain\nai: How long have you had it?\n")
	assert.Contains(t, p, "User: Is it serious?")
}

func TestScanChat(t *testing.T) {
	t.Run("analyzed", func(t *testing.T) {
		p := ScanChat("What does this mean?", ScanInfo{
			ID:             "scan-1",
			Modality:       "ct",
			UploadedAt:     "2025-06-01",
			Analyzed:       true,
			Classification: "Pneumonia",
			Confidence:     0.82,
			RiskLevel:      "HIGH",
			Abnormalities:  []string{"consolidation (right lower lobe)"},
		}, nil)
		assert.Contains(t, p, "- Modality: CT")
		assert.Contains(t, p, "- Description: No description provided")
		assert.Contains(t, p, "- Confidence Score: 0.82")
		assert.Contains(t, p, "- Detected Abnormalities: consolidation (right lower lobe)")
		assert.NotContains(t, p, "has not been analyzed")
	})
	t.Run("not analyzed", func(t *testing.T) {
		p := ScanChat("What does this mean?", ScanInfo{ID: "scan-2", Modality: "xray"}, nil)
		assert.Contains(t, p, "This scan has not been analyzed by AI yet.")
		assert.NotContains(t, p, "AI ANALYSIS RESULTS")
	})
}

func TestRiskNarrative(t *testing.T) {
	c := 0.9
	p, err := RiskNarrative("HIGH", []ScanSummary{{Modality: "xray", RiskLevel: "HIGH", Confidence: &c, Abnormalities: 2}})
	require.NoError(t, err)
	assert.Contains(t, p, "overall risk level is HIGH")
	assert.Contains(t, p, `"abnormalities_count": 2`)
	assert.Contains(t, p, `"confidence": 0.9`)
}

func TestClassifyDisease(t *testing.T) {
	p := ClassifyDisease(" persistent cough ", "", "opacity in right lung")
	assert.Contains(t, p, "Symptoms: persistent cough\n")
	assert.Contains(t, p, "Medical History: Not provided")
	assert.Contains(t, p, "Imaging Findings: opacity in right lung")
	assert.Contains(t, p, `"primary_diagnosis"`)
}

func TestSuggestMedicines(t *testing.T) {
	p, err := SuggestMedicines(MedicineRequest{
		Classification: "Pneumonia",
		Age:            40,
		ScanContext:    map[string]string{"scan_id": "scan-1"},
	})
	require.NoError(t, err)
	assert.Contains(t, p, "Condition: Pneumonia")
	assert.Contains(t, p, "Symptoms: Not provided")
	assert.Contains(t, p, "Patient Age: 40 years")
	assert.Contains(t, p, `"scan_id": "scan-1"`)
	assert.Contains(t, p, "Do NOT include dosages")

	_, err = SuggestMedicines(MedicineRequest{Classification: "x", ScanContext: func() {}})
	assert.Error(t, err)
}

func TestAssessRisk(t *testing.T) {
	p := AssessRisk([]string{"nodule", "  ", "effusion"}, "smoker")
	assert.Contains(t, p, "- nodule\n- effusion\n")
	assert.Contains(t, p, "Medical History: smoker")
	assert.Contains(t, p, `"priority_level"`)
}

func TestMedicalReport(t *testing.T) {
	p := MedicalReport(ReportPatient{ID: "p-1", Age: 61}, ScanInfo{Modality: "ct", UploadedAt: "2025-06-01"}, "mass in left lobe")
	assert.Contains(t, p, "Patient ID: p-1, Age: 61\n")
	assert.Contains(t, p, "Examination: CT scan uploaded 2025-06-01")
	assert.Contains(t, p, "Clinical Indication: Not provided")
	assert.Contains(t, p, "6. Recommendations")
}

func TestHealthSummary(t *testing.T) {
	p := HealthSummary("p-1",
		[]ScanInfo{
			{Modality: "xray", UploadedAt: "2025-06-02", Analyzed: true, Classification: "Normal", RiskLevel: "LOW"},
			{Modality: "mri", UploadedAt: "2025-06-01"},
		},
		nil)
	assert.Contains(t, p, "- 2025-06-02 XRAY: Normal, risk LOW\n- 2025-06-01 MRI: not analyzed\n")
	assert.Contains(t, p, "Recent Reports:\n- none\n")
}
