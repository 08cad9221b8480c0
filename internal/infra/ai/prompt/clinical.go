package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

const notProvided = "Not provided"

func orNotProvided(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return notProvided
	}
	return s
}

// ClassifyDisease asks for a JSON classification of the reported symptoms.
func ClassifyDisease(symptoms, history, findings string) string {
	return fmt.Sprintf(`As a medical AI specialist, classify the following clinical presentation.

Symptoms: %s
Medical History: %s
Imaging Findings: %s

Respond with one JSON object only, following this schema:
{
  "primary_diagnosis": "<string>",
  "differential_diagnoses": ["<string>"],
  "confidence_score": <number between 0.0 and 1.0>,
  "severity": "<mild|moderate|severe>",
  "risk_factors": ["<string>"],
  "explanation": "<string>",
  "recommended_tests": ["<string>"]
}

This is decision support only; the final diagnosis belongs to a qualified physician.`,
		strings.TrimSpace(symptoms), orNotProvided(history), orNotProvided(findings))
}

// MedicineRequest is the input of SuggestMedicines. ScanContext is marshalled
// as-is when present.
type MedicineRequest struct {
	Classification string
	Symptoms       string
	Age            int
	ScanContext    any
}

// SuggestMedicines asks for general medicine guidance for a classified
// condition. Dosages are never requested.
func SuggestMedicines(req MedicineRequest) (string, error) {
	age := notProvided
	if req.Age > 0 {
		age = fmt.Sprintf("%d years", req.Age)
	}
	scan := notProvided
	if req.ScanContext != nil {
		b, err := json.MarshalIndent(req.ScanContext, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal scan context: %w", err)
		}
		scan = string(b)
	}
	return fmt.Sprintf(`As a medical AI assistant for patients in Bangladesh, suggest commonly used medicines for the condition below.

Condition: %s
Symptoms: %s
Patient Age: %s
Scan Context:
%s

Respond with one JSON object only, following this schema:
{
  "medicines": [
    {
      "name": "<string>",
      "generic_name": "<string>",
      "bangladesh_brands": ["<string>"],
      "purpose": "<string>",
      "general_usage": "<string>",
      "precautions": ["<string>"],
      "availability": "<prescription|over-the-counter>",
      "approximate_cost": "<string in BDT>"
    }
  ],
  "lifestyle_recommendations": ["<string>"],
  "follow_up": "<string>",
  "disclaimer": "<string>"
}

Do NOT include dosages. Every suggestion must be confirmed by a registered healthcare provider.`,
		strings.TrimSpace(req.Classification), orNotProvided(req.Symptoms), age, scan), nil
}

// AssessRisk asks for a JSON risk profile over free-form findings.
func AssessRisk(findings []string, history string) string {
	var b strings.Builder
	for _, f := range findings {
		if f = strings.TrimSpace(f); f != "" {
			b.WriteString("- " + f + "\n")
		}
	}
	return fmt.Sprintf(`As a medical AI specialist, assess the patient's risk from these findings.

Findings:
%s
Medical History: %s

Respond with one JSON object only, following this schema:
{
  "overall_risk": "<LOW|MEDIUM|HIGH>",
  "risk_factors": ["<string>"],
  "priority_level": "<routine|urgent|immediate>",
  "recommendations": ["<string>"],
  "explanation": "<string>"
}`, b.String(), orNotProvided(history))
}

// ReportPatient is the demographic block of a medical report.
type ReportPatient struct {
	ID  string
	Age int
	Sex string
}

// MedicalReport asks for a plain text radiology report.
func MedicalReport(p ReportPatient, scan ScanInfo, findings string) string {
	demo := "Patient ID: " + p.ID
	if p.Age > 0 {
		demo += fmt.Sprintf(", Age: %d", p.Age)
	}
	if p.Sex != "" {
		demo += ", Sex: " + p.Sex
	}
	return fmt.Sprintf(`Generate a professional radiology report in plain text.

%s
Examination: %s scan uploaded %s
Clinical Indication: %s
AI Findings: %s

Structure the report with these sections:
1. Patient Demographics
2. Examination Details
3. Clinical Indication
4. Findings
5. Impression
6. Recommendations

End with a note that this report was generated by AI and must be validated by a radiologist.`,
		demo, strings.ToUpper(scan.Modality), orNotProvided(scan.UploadedAt),
		orNotProvided(scan.Description), orNotProvided(findings))
}

// ReportLine is one past report as listed in the health summary prompt.
type ReportLine struct {
	Date      string
	Diagnosis string
	Status    string
}

// HealthSummary asks for a patient friendly plain text summary.
func HealthSummary(patientID string, recent []ScanInfo, reports []ReportLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient ID: %s\n\nRecent Scans:\n", patientID)
	if len(recent) == 0 {
		b.WriteString("- none\n")
	}
	for _, s := range recent {
		status := "not analyzed"
		if s.Analyzed {
			status = fmt.Sprintf("%s, risk %s", orNotProvided(s.Classification), orNotProvided(s.RiskLevel))
		}
		fmt.Fprintf(&b, "- %s %s: %s\n", orNotProvided(s.UploadedAt), strings.ToUpper(s.Modality), status)
	}
	b.WriteString("\nRecent Reports:\n")
	if len(reports) == 0 {
		b.WriteString("- none\n")
	}
	for _, r := range reports {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", orNotProvided(r.Date), orNotProvided(r.Diagnosis), r.Status)
	}
	return fmt.Sprintf(`Write a short health summary for the patient below in simple, reassuring language.

%s
Cover the current health status, notable findings, and suggested next steps. Remind the patient to discuss results with their doctor.`, b.String())
}
