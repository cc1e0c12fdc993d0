package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/risk-cli/internal/model"
)

// RiskBand names the score band used in reports.
func RiskBand(score float64) string {
	switch {
	case score >= HighRiskThreshold:
		return "ALTO"
	case score >= MediumRiskThreshold:
		return "MÉDIO"
	default:
		return "BAIXO"
	}
}

// RenderMarkdown renders a long-form Portuguese report.
func RenderMarkdown(report *model.BatchReport) string {
	var b strings.Builder
	meta := report.Metadata
	st := report.Statistics

	b.WriteString("# Relatório de Análise de Risco em Lote\n\n")
	fmt.Fprintf(&b, "**Lote:** %s\n", meta.BatchID)
	fmt.Fprintf(&b, "**Data da Análise:** %s\n", meta.StartedAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "**Total de Itens:** %d\n", meta.TotalItems)
	fmt.Fprintf(&b, "**Estratégia:** %s (solicitada: %s)\n", meta.StrategyResolved, meta.StrategyRequested)
	fmt.Fprintf(&b, "**Tempo de Processamento:** %.1fs\n\n", meta.ProcessingTime)

	b.WriteString("## Estatísticas Gerais\n\n")
	fmt.Fprintf(&b, "- **Itens Processados:** %d\n", st.TotalProcessed)
	fmt.Fprintf(&b, "- **Sucessos:** %d\n", st.Successful)
	fmt.Fprintf(&b, "- **Falhas:** %d\n", st.Failed)
	fmt.Fprintf(&b, "- **Com Avisos ou Erros:** %d\n", st.WithErrors)
	fmt.Fprintf(&b, "- **Score Médio de Risco:** %.1f/100\n", st.AvgRiskScore)
	fmt.Fprintf(&b, "- **Empresas de Alto Risco:** %d\n", st.HighRiskCompanies)
	fmt.Fprintf(&b, "- **Eficiência:** %s\n\n", report.Summary.ProcessingEfficiency)

	b.WriteString("### Distribuição de Risco\n\n")
	fmt.Fprintf(&b, "- **Baixo Risco (< %d):** %d empresas\n", MediumRiskThreshold, st.RiskDistribution.Low)
	fmt.Fprintf(&b, "- **Médio Risco (%d-%d):** %d empresas\n", MediumRiskThreshold, HighRiskThreshold-1, st.RiskDistribution.Medium)
	fmt.Fprintf(&b, "- **Alto Risco (≥ %d):** %d empresas\n\n", HighRiskThreshold, st.RiskDistribution.High)

	if len(report.StrategyPerformance) > 0 {
		b.WriteString("### Desempenho por Estratégia\n\n")
		b.WriteString("| Estratégia | Itens | Sucesso | Score Médio |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, g := range model.Groups {
			ps, ok := report.StrategyPerformance[g]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "| %s | %d | %.0f%% | %.1f |\n", g, ps.Count, ps.SuccessRate, ps.AvgScore)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n## Detalhes por Empresa\n\n")
	for i, r := range report.Results {
		writeResult(&b, i+1, r)
	}
	return b.String()
}

func writeResult(b *strings.Builder, n int, r model.BatchResult) {
	name := r.CompanyNameUsed
	if name == "" {
		name = r.OriginalData.OriginalValue
	}
	band := "ERRO"
	if r.Succeeded() {
		band = RiskBand(r.FinalRiskScore)
	}
	fmt.Fprintf(b, "### %d. %s [%s]\n\n", n, name, band)

	if r.EnrichmentData.TaxID != "" {
		fmt.Fprintf(b, "- **CNPJ:** %s\n", r.EnrichmentData.TaxID)
	} else if r.OriginalData.TaxID != "" {
		fmt.Fprintf(b, "- **CNPJ:** %s\n", r.OriginalData.TaxID)
	}
	fmt.Fprintf(b, "- **Estratégia:** %s\n", r.StrategyUsed)
	fmt.Fprintf(b, "- **Score de Risco:** %.1f/100\n", r.FinalRiskScore)
	fmt.Fprintf(b, "- **Tempo de Processamento:** %.1fs\n", r.ProcessingTime)
	fmt.Fprintf(b, "- **Notícias Encontradas:** %d\n", len(r.NewsAnalysis))
	if len(r.Errors) > 0 {
		fmt.Fprintf(b, "- **Erros:** %s\n", strings.Join(r.Errors, "; "))
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(b, "- **Avisos:** %s\n", strings.Join(r.Warnings, "; "))
	}

	if e := r.EnrichmentData; e.FromRegistry() {
		b.WriteString("\n**Dados da Empresa:**\n")
		fmt.Fprintf(b, "- Situação: %s\n", orNA(e.Status))
		fmt.Fprintf(b, "- Atividade: %s\n", orNA(e.PrimaryActivity))
		fmt.Fprintf(b, "- Porte: %s\n", orNA(e.SizeClass))
		fmt.Fprintf(b, "- Capital Social: R$ %.2f\n", e.DeclaredCapital)
		fmt.Fprintf(b, "- Localização: %s\n", e.Location())
	}

	if ra := r.RiskAssessment; ra.Success {
		b.WriteString("\n**Análise de Risco:**\n")
		fmt.Fprintf(b, "- Nível: %s\n", ra.Tier)
		fmt.Fprintf(b, "- Confiança: %.1f%%\n", ra.Confidence*100)
		if ra.Explanation != "" {
			fmt.Fprintf(b, "- Explicação: %s\n", truncateRunes(ra.Explanation, 200))
		}
		if len(ra.ComplianceFlags) > 0 {
			fmt.Fprintf(b, "- Alertas de Compliance: %s\n", strings.Join(ra.ComplianceFlags, ", "))
		}
		if len(ra.RegulatoryAlerts) > 0 {
			fmt.Fprintf(b, "- Alertas Regulatórios: %s\n", strings.Join(ra.RegulatoryAlerts, ", "))
		}
	}

	if len(r.NewsAnalysis) > 0 {
		b.WriteString("\n**Notícias:**\n")
		for _, n := range r.NewsAnalysis {
			fmt.Fprintf(b, "- [%s](%s) (%s, relevância %.0f%%)\n", n.Title, n.URL, n.SourceName, n.Relevance*100)
		}
	}

	b.WriteString("\n---\n\n")
}
