package prompt

import (
	"encoding/json"
	"fmt"
)

// ScanSummary is one analyzed scan as shown in the risk narrative prompt.
type ScanSummary struct {
	Modality       string   `json:"modality"`
	Date           string   `json:"date"`
	Classification string   `json:"classification"`
	RiskLevel      string   `json:"risk_level"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Abnormalities  int      `json:"abnormalities_count"`
	KeyFindings    string   `json:"key_findings,omitempty"`
}

// RiskNarrative asks for a JSON assessment over the patient's scan history.
// The overall tier is already decided; the model only explains it.
func RiskNarrative(overall string, history []ScanSummary) (string, error) {
	b, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal scan history: %w", err)
	}
	return fmt.Sprintf(`As a medical AI specialist, analyze the following patient's radiology scan history. The computed overall risk level is %s; do not change it.

Scan History Summary:
%s

Provide a risk assessment as one JSON object only, following this schema:
{
  "primary_concerns": ["<string>"],
  "risk_factors": ["<string>"],
  "progressive_changes": "<analysis of changes over time if multiple scans>",
  "critical_findings": ["<string>"],
  "preventive_measures": ["<string>"],
  "warning_signs": ["<string>"],
  "follow_up_frequency": "<string>",
  "summary": "<brief overall summary>"
}

Emphasize the need for professional medical consultation.`, overall, string(b)), nil
}
