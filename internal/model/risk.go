package model

import "strings"

// RiskTier is the categorical classifier output.
type RiskTier string

const (
	TierLow      RiskTier = "LOW"
	TierMedium   RiskTier = "MEDIUM"
	TierHigh     RiskTier = "HIGH"
	TierCritical RiskTier = "CRITICAL"
	TierError    RiskTier = "ERROR"
)

var tierLabels = map[string]RiskTier{
	"BAIXO":    TierLow,
	"LOW":      TierLow,
	"MÉDIO":    TierMedium,
	"MEDIO":    TierMedium,
	"MEDIUM":   TierMedium,
	"ALTO":     TierHigh,
	"HIGH":     TierHigh,
	"CRÍTICO":  TierCritical,
	"CRITICO":  TierCritical,
	"CRITICAL": TierCritical,
}

// ParseTier maps a classifier label (Portuguese or English, any case) to a
// RiskTier. An empty label means MEDIUM. Unknown labels are returned
// upper-cased with ok false; their base score falls back to 50.
func ParseTier(label string) (RiskTier, bool) {
	l := strings.ToUpper(strings.TrimSpace(label))
	if l == "" {
		return TierMedium, true
	}
	if t, ok := tierLabels[l]; ok {
		return t, true
	}
	return RiskTier(l), false
}

// BaseScore returns the numeric score for the tier before adjustments.
func (t RiskTier) BaseScore() float64 {
	switch t {
	case TierLow:
		return 25
	case TierMedium:
		return 50
	case TierHigh:
		return 75
	case TierCritical:
		return 90
	default:
		return 50
	}
}

// StrategyAdjustments records how the final score was derived.
type StrategyAdjustments struct {
	Strategy    Group    `json:"strategy_used" yaml:"strategy_used"`
	BaseScore   float64  `json:"base_score" yaml:"base_score"`
	FinalScore  float64  `json:"final_score" yaml:"final_score"`
	NewsQuality int      `json:"news_quality" yaml:"news_quality"`
	Penalties   []string `json:"penalties,omitempty" yaml:"penalties,omitempty"`
}

// RiskAssessment is the scored classifier verdict for one item.
type RiskAssessment struct {
	Success          bool                 `json:"success" yaml:"success"`
	Tier             RiskTier             `json:"risk_level" yaml:"risk_level"`
	Score            float64              `json:"risk_score" yaml:"risk_score"`
	Confidence       float64              `json:"confidence" yaml:"confidence"`
	Explanation      string               `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	ComplianceFlags  []string             `json:"compliance_flags" yaml:"compliance_flags"`
	RegulatoryAlerts []string             `json:"regulatory_alerts" yaml:"regulatory_alerts"`
	Adjustments      *StrategyAdjustments `json:"strategy_adjustments,omitempty" yaml:"strategy_adjustments,omitempty"`
	Error            string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// FailedAssessment returns the assessment reported when scoring could not run.
func FailedAssessment(msg string) RiskAssessment {
	return RiskAssessment{
		Success:          false,
		Tier:             TierError,
		Score:            0,
		ComplianceFlags:  []string{},
		RegulatoryAlerts: []string{},
		Error:            msg,
	}
}
