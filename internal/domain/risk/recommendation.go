package risk

import "github.com/bryanwahyu/radiology-ai/internal/domain/scans"

// Recommendations attached to a risk profile.
type Recommendations struct {
	FollowUpRequired   bool   `json:"follow_up_required"`
	UrgentConsultation bool   `json:"urgent_consultation"`
	RoutineMonitoring  bool   `json:"routine_monitoring"`
	NextScanTimeline   string `json:"next_scan_timeline"`
}

func Recommend(level scans.RiskLevel) Recommendations {
	r := Recommendations{
		FollowUpRequired:   level == scans.RiskMedium || level == scans.RiskHigh,
		UrgentConsultation: level == scans.RiskHigh,
		RoutineMonitoring:  level == scans.RiskLow,
		NextScanTimeline:   "6-12 months",
	}
	if level == scans.RiskHigh {
		r.NextScanTimeline = "3-6 months"
	}
	return r
}

// Interpretation is the plain-language reading of a single tier.
type Interpretation struct {
	Description string `json:"description"`
	Meaning     string `json:"meaning"`
	Action      string `json:"action"`
	Urgency     string `json:"urgency"`
}

// Interpret returns the reading for level; unknown tiers read as LOW.
func Interpret(level scans.RiskLevel) Interpretation {
	switch level {
	case scans.RiskHigh:
		return Interpretation{
			Description: "High risk detected",
			Meaning:     "Significant findings that require immediate medical attention.",
			Action:      "Consult with doctor immediately, urgent evaluation needed",
			Urgency:     "High",
		}
	case scans.RiskMedium:
		return Interpretation{
			Description: "Moderate risk detected",
			Meaning:     "Some abnormalities found that require attention and monitoring.",
			Action:      "Schedule follow-up with healthcare provider within 2-4 weeks",
			Urgency:     "Moderate",
		}
	}
	return Interpretation{
		Description: "Low risk detected",
		Meaning:     "No significant abnormalities found. Routine monitoring recommended.",
		Action:      "Continue regular health check-ups",
		Urgency:     "Routine",
	}
}

func FollowUpTimeline(level scans.RiskLevel) string {
	if level == scans.RiskHigh {
		return "1-2 weeks"
	}
	return "1-3 months"
}
