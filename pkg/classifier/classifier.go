// Package classifier turns a free-text company dossier into a categorical
// risk verdict.
package classifier

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Verdict is the raw classifier output. Label is the classifier's own tier
// name (Portuguese or English); mapping it to a score is the caller's job.
type Verdict struct {
	Label            string   `json:"risk_level"`
	Confidence       float64  `json:"confidence"`
	Explanation      string   `json:"explanation"`
	RiskFactors      []string `json:"risk_factors"`
	ComplianceFlags  []string `json:"compliance_flags"`
	RegulatoryAlerts []string `json:"regulatory_alerts"`
}

// Classifier assigns a risk verdict to a block of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Verdict, error)
	// Name identifies the backend for model-info reporting.
	Name() string
}

// wireVerdict accepts both "confidence" and "confidence_score" and an
// optional success flag.
type wireVerdict struct {
	Success          *bool    `json:"success"`
	RiskLevel        string   `json:"risk_level"`
	Confidence       *float64 `json:"confidence"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	Explanation      string   `json:"explanation"`
	RiskFactors      []string `json:"risk_factors"`
	ComplianceFlags  []string `json:"compliance_flags"`
	RegulatoryAlerts []string `json:"regulatory_alerts"`
	Detail           string   `json:"detail"`
}

func decodeVerdict(body []byte) (*Verdict, error) {
	var w wireVerdict
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, eris.Wrap(err, "classifier: unmarshal verdict")
	}
	if w.Success != nil && !*w.Success {
		msg := w.Detail
		if msg == "" {
			msg = "classifier reported failure"
		}
		return nil, eris.Errorf("classifier: %s", msg)
	}

	v := &Verdict{
		Label:            strings.TrimSpace(w.RiskLevel),
		Explanation:      w.Explanation,
		RiskFactors:      nonNil(w.RiskFactors),
		ComplianceFlags:  nonNil(w.ComplianceFlags),
		RegulatoryAlerts: nonNil(w.RegulatoryAlerts),
	}
	switch {
	case w.Confidence != nil:
		v.Confidence = *w.Confidence
	case w.ConfidenceScore != nil:
		v.Confidence = *w.ConfidenceScore
	}
	return v, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
