package prompt

import (
	"fmt"
	"strings"
)

// AnalysisSystem gives the radiologist role and the JSON schema the reply must follow.
func AnalysisSystem() string {
	return `You are an expert radiologist AI assistant. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Describe the visible anatomical structures.
- List every abnormality or suspicious finding as an object.
- risk_level is one of LOW, MEDIUM, HIGH.
- confidence_score is a number between 0.0 and 1.0.
- Always state in the explanation that this is AI-assisted analysis and requires professional validation.

Schema (example with empty values):
{
  "description": "<detailed anatomical description>",
  "abnormalities": [
    {"type": "<string>", "location": "<string>", "severity": "<mild|moderate|severe>", "description": "<string>"}
  ],
  "disease_classification": "<primary suspected condition>",
  "confidence_score": 0.0,
  "risk_level": "<LOW|MEDIUM|HIGH>",
  "explanation": "<detailed medical explanation>",
  "recommendations": ["<string>"]
}`
}

// AnalysisUser builds the user turn that goes next to the image.
func AnalysisUser(modality, patientContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this %s scan image and respond with the JSON per schema.", modalityLabel(modality))
	if c := strings.TrimSpace(patientContext); c != "" {
		fmt.Fprintf(&b, "\nPatient Context: %s", c)
	}
	return b.String()
}

func modalityLabel(m string) string {
	switch strings.ToLower(m) {
	case "xray":
		return "X-RAY"
	case "":
		return "medical"
	}
	return strings.ToUpper(m)
}
