// Package risk combines per-scan findings into one patient-level verdict.
package risk

import (
	"errors"
	"sort"
	"strings"

	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
)

// ErrEmptyInput is returned when there is no finding to aggregate.
var ErrEmptyInput = errors.New("risk aggregate requires at least one finding")

// Profile is the derived, non-persistent view over a set of findings.
type Profile struct {
	Overall           scans.RiskLevel     `json:"overall_risk_level"`
	Confidence        float64             `json:"confidence_score"`
	ConfidenceSamples int                 `json:"confidence_samples"`
	Findings          int                 `json:"total_scans_analyzed"`
	AbnormalityCount  int                 `json:"total_abnormalities_detected"`
	AbnormalityTypes  []string            `json:"abnormality_types"`
	Abnormalities     []scans.Abnormality `json:"abnormalities"`
	Classifications   []string            `json:"disease_classifications"`
	Analyzed          int                 `json:"analyzed_scans"`
	NotAnalyzed       int                 `json:"unanalyzed_scans"`
}

// Aggregate computes a Profile. The result does not depend on the order of
// findings. Nil entries are ignored.
//
// The overall tier follows a dominance rule (HIGH > MEDIUM > LOW), never a
// majority vote. Confidence is the mean of present scores only.
func Aggregate(findings []*scans.Finding) (Profile, error) {
	var (
		p       Profile
		top     scans.RiskLevel
		scores  []float64
		types   = map[string]string{}
		classes = map[string]struct{}{}
		catalog = map[scans.Abnormality]struct{}{}
	)

	for _, f := range findings {
		if f == nil {
			continue
		}
		p.Findings++

		lvl := f.Risk
		if !lvl.Valid() {
			lvl = scans.DefaultRiskLevel
		}
		if lvl.Rank() > top.Rank() {
			top = lvl
		}

		if f.Confidence != nil {
			scores = append(scores, scans.ClampConfidence(*f.Confidence))
		}

		p.AbnormalityCount += len(f.Abnormalities)
		for _, a := range f.Abnormalities {
			a = trimAbnormality(a)
			if a.Type != "" {
				addType(types, a.Type)
			}
			if a != (scans.Abnormality{}) {
				catalog[a] = struct{}{}
			}
		}

		c := strings.TrimSpace(f.Classification)
		if c != "" && !strings.EqualFold(c, scans.UnknownClassification) {
			classes[c] = struct{}{}
		}
	}

	if p.Findings == 0 {
		return Profile{}, ErrEmptyInput
	}

	p.Overall = top
	p.Confidence, p.ConfidenceSamples = mean(scores)
	p.AbnormalityTypes = sortedValues(types)
	p.Classifications = sortedKeys(classes)
	p.Abnormalities = sortedCatalog(catalog)
	p.Analyzed = p.Findings
	return p, nil
}

// AggregateItems aggregates the findings held by items and also reports how
// many items are still waiting for analysis.
func AggregateItems(items []*scans.Scan) (Profile, error) {
	findings := make([]*scans.Finding, 0, len(items))
	notAnalyzed := 0
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Analyzed() {
			findings = append(findings, it.Finding)
		} else {
			notAnalyzed++
		}
	}
	p, err := Aggregate(findings)
	if err != nil {
		return Profile{}, err
	}
	p.NotAnalyzed = notAnalyzed
	return p, nil
}

// mean sums in sorted order so the float result is the same for any input order.
func mean(xs []float64) (float64, int) {
	if len(xs) == 0 {
		return 0, 0
	}
	sort.Float64s(xs)
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), len(xs)
}

func trimAbnormality(a scans.Abnormality) scans.Abnormality {
	return scans.Abnormality{
		Type:        strings.TrimSpace(a.Type),
		Location:    strings.TrimSpace(a.Location),
		Severity:    strings.TrimSpace(a.Severity),
		Description: strings.TrimSpace(a.Description),
	}
}

// addType dedupes tags case-insensitively. Of several spellings the smallest
// one is kept so the pick does not depend on finding order.
func addType(m map[string]string, tag string) {
	k := strings.ToLower(tag)
	if cur, ok := m[k]; !ok || tag < cur {
		m[k] = tag
	}
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCatalog(m map[scans.Abnormality]struct{}) []scans.Abnormality {
	out := make([]scans.Abnormality, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		return a.Description < b.Description
	})
	return out
}
