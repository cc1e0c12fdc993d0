package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/pkg/classifier"
)

// Score adjustments applied on top of the tier's base score.
const (
	penaltyInactive     = 20
	penaltyZeroCapital  = 10
	penaltyNameOnly     = 10
	penaltyMediaExposed = 5

	promptNewsLimit        = 3
	promptNewsMinRelevance = 0.3
	promptNewsContentRunes = 200
	highRelevance          = 0.7
	mediaExposureNewsCount = 2
)

// Penalties lists the score adjustments by the name recorded in
// StrategyAdjustments.
func Penalties() map[string]float64 {
	return map[string]float64{
		"inactive_status":  penaltyInactive,
		"zero_capital":     penaltyZeroCapital,
		"name_only_search": penaltyNameOnly,
		"media_exposure":   penaltyMediaExposed,
	}
}

// RiskScorer turns a company dossier into a RiskAssessment. It never fails:
// classifier problems come back as an assessment with Success false.
type RiskScorer interface {
	Score(ctx context.Context, company model.CompanyRecord, news []model.NewsItem, group model.Group) model.RiskAssessment
}

// Scorer builds the dossier prompt, asks the classifier for a tier and
// applies the score adjustments.
type Scorer struct {
	classifier classifier.Classifier
}

// NewScorer creates a Scorer.
func NewScorer(c classifier.Classifier) *Scorer {
	return &Scorer{classifier: c}
}

// Score implements RiskScorer.
func (s *Scorer) Score(ctx context.Context, company model.CompanyRecord, news []model.NewsItem, group model.Group) model.RiskAssessment {
	log := zap.L().With(zap.String("company", company.LegalName), zap.String("strategy", string(group)))
	start := time.Now()

	verdict, err := s.classifier.Classify(ctx, BuildPrompt(company, news))
	if err != nil {
		log.Warn("score: classifier failed", zap.Error(err))
		return model.FailedAssessment(err.Error())
	}

	tier, ok := model.ParseTier(verdict.Label)
	if !ok {
		log.Warn("score: unknown tier label", zap.String("label", verdict.Label))
	}
	base := tier.BaseScore()
	final, penalties, highNews := AdjustScore(base, company, news, group)

	log.Debug("score: complete",
		zap.String("tier", string(tier)),
		zap.Float64("score", final),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return model.RiskAssessment{
		Success:          true,
		Tier:             tier,
		Score:            final,
		Confidence:       verdict.Confidence,
		Explanation:      verdict.Explanation,
		ComplianceFlags:  verdict.ComplianceFlags,
		RegulatoryAlerts: verdict.RegulatoryAlerts,
		Adjustments: &model.StrategyAdjustments{
			Strategy:    group,
			BaseScore:   base,
			FinalScore:  final,
			NewsQuality: highNews,
			Penalties:   penalties,
		},
	}
}

// AdjustScore applies the additive penalties to base and caps the result at
// 100. It returns the final score, the names of the penalties applied and the
// number of highly relevant news items.
func AdjustScore(base float64, company model.CompanyRecord, news []model.NewsItem, group model.Group) (float64, []string, int) {
	score := base
	var penalties []string

	if st := strings.ToUpper(strings.TrimSpace(company.Status)); st != "" && st != "ATIVA" && st != "ACTIVE" {
		score += penaltyInactive
		penalties = append(penalties, "inactive_status")
	}
	if company.FromRegistry() && company.DeclaredCapital == 0 {
		score += penaltyZeroCapital
		penalties = append(penalties, "zero_capital")
	}
	if group == model.GroupNameSearch {
		score += penaltyNameOnly
		penalties = append(penalties, "name_only_search")
	}

	var highNews int
	for _, n := range news {
		if n.Relevance > highRelevance {
			highNews++
		}
	}
	if highNews > mediaExposureNewsCount {
		score += penaltyMediaExposed
		penalties = append(penalties, "media_exposure")
	}

	return min(score, 100), penalties, highNews
}

// BuildPrompt renders the Portuguese dossier sent to the classifier: a
// registry header when the record came from the registry, a name-only header
// otherwise, followed by up to three relevant news excerpts.
func BuildPrompt(company model.CompanyRecord, news []model.NewsItem) string {
	var b strings.Builder

	if company.FromRegistry() {
		b.WriteString("Análise via CNPJ - Dados enriquecidos:\n")
		fmt.Fprintf(&b, "Empresa: %s\n", orNA(company.LegalName))
		fmt.Fprintf(&b, "CNPJ: %s\n", orNA(company.TaxID))
		fmt.Fprintf(&b, "Situação: %s\n", orNA(company.Status))
		fmt.Fprintf(&b, "Atividade: %s\n", orNA(company.PrimaryActivity))
		fmt.Fprintf(&b, "Porte: %s\n", orNA(company.SizeClass))
		fmt.Fprintf(&b, "Capital Social: R$ %.2f\n", company.DeclaredCapital)
		fmt.Fprintf(&b, "Localização: %s", company.Location())
	} else {
		b.WriteString("Análise via nome da empresa:\n")
		fmt.Fprintf(&b, "Empresa: %s\n", orNA(company.LegalName))
		b.WriteString("Método: Busca direta por notícias e informações públicas")
	}

	relevant := promptNews(news)
	if len(relevant) == 0 {
		b.WriteString("\n\nNenhuma notícia relevante encontrada no período analisado.")
		return b.String()
	}

	b.WriteString("\n\nNotícias recentes encontradas:\n")
	for _, n := range relevant {
		fmt.Fprintf(&b, "\n- %s: %s...", n.Title, truncateRunes(n.Content, promptNewsContentRunes))
	}
	return b.String()
}

// promptNews keeps the first items above the relevance floor, in input order.
func promptNews(news []model.NewsItem) []model.NewsItem {
	var out []model.NewsItem
	for _, n := range news {
		if n.Relevance <= promptNewsMinRelevance {
			continue
		}
		out = append(out, n)
		if len(out) == promptNewsLimit {
			break
		}
	}
	return out
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
