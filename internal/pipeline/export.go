package pipeline

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/risk-cli/internal/model"
)

// Report output formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
	FormatXLSX     = "xlsx"
)

// ParseFormat normalizes an output format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("pipeline: unknown output format %q", s)
	}
}

// WriteReport writes the report to w in the given format.
func WriteReport(w io.Writer, report *model.BatchReport, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}

	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "pipeline: encode yaml")
		}
		return eris.Wrap(enc.Close(), "pipeline: close yaml encoder")
	case FormatMarkdown:
		_, err := io.WriteString(w, RenderMarkdown(report))
		return eris.Wrap(err, "pipeline: write markdown")
	case FormatXLSX:
		wb, err := Workbook(report)
		if err != nil {
			return err
		}
		return eris.Wrap(wb.Write(w), "pipeline: write xlsx")
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "pipeline: encode json")
	}
}

var resultColumns = []string{
	"original_value", "data_type", "strategy_used", "cnpj", "company_name_used",
	"situacao", "capital_social", "risk_level", "risk_score", "confidence",
	"news_count", "compliance_flags", "errors", "warnings", "processing_time",
}

// Workbook builds a two-sheet workbook: one row per result and a summary.
func Workbook(report *model.BatchReport) (*xlsx.File, error) {
	wb := xlsx.NewFile()

	results, err := wb.AddSheet("Resultados")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: add results sheet")
	}
	header := results.AddRow()
	for _, c := range resultColumns {
		header.AddCell().SetString(c)
	}
	for _, r := range report.Results {
		row := results.AddRow()
		row.AddCell().SetString(r.OriginalData.OriginalValue)
		row.AddCell().SetString(string(r.OriginalData.DataType))
		row.AddCell().SetString(string(r.StrategyUsed))
		row.AddCell().SetString(r.EnrichmentData.TaxID)
		row.AddCell().SetString(r.CompanyNameUsed)
		row.AddCell().SetString(r.EnrichmentData.Status)
		row.AddCell().SetFloat(r.EnrichmentData.DeclaredCapital)
		row.AddCell().SetString(string(r.RiskAssessment.Tier))
		row.AddCell().SetFloat(r.FinalRiskScore)
		row.AddCell().SetFloat(r.RiskAssessment.Confidence)
		row.AddCell().SetInt(len(r.NewsAnalysis))
		row.AddCell().SetString(strings.Join(r.RiskAssessment.ComplianceFlags, ", "))
		row.AddCell().SetString(strings.Join(r.Errors, "; "))
		row.AddCell().SetString(strings.Join(r.Warnings, "; "))
		row.AddCell().SetFloat(r.ProcessingTime)
	}

	summary, err := wb.AddSheet("Resumo")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: add summary sheet")
	}
	st := report.Statistics
	addPair := func(k string, set func(*xlsx.Cell)) {
		row := summary.AddRow()
		row.AddCell().SetString(k)
		set(row.AddCell())
	}
	addPair("batch_id", func(c *xlsx.Cell) { c.SetString(report.Metadata.BatchID) })
	addPair("strategy_resolved", func(c *xlsx.Cell) { c.SetString(string(report.Metadata.StrategyResolved)) })
	addPair("total_processed", func(c *xlsx.Cell) { c.SetInt(st.TotalProcessed) })
	addPair("successful", func(c *xlsx.Cell) { c.SetInt(st.Successful) })
	addPair("failed", func(c *xlsx.Cell) { c.SetInt(st.Failed) })
	addPair("avg_risk_score", func(c *xlsx.Cell) { c.SetFloat(st.AvgRiskScore) })
	addPair("high_risk_companies", func(c *xlsx.Cell) { c.SetInt(st.HighRiskCompanies) })
	addPair("risk_baixo", func(c *xlsx.Cell) { c.SetInt(st.RiskDistribution.Low) })
	addPair("risk_medio", func(c *xlsx.Cell) { c.SetInt(st.RiskDistribution.Medium) })
	addPair("risk_alto", func(c *xlsx.Cell) { c.SetInt(st.RiskDistribution.High) })
	addPair("processing_efficiency", func(c *xlsx.Cell) { c.SetString(report.Summary.ProcessingEfficiency) })

	return wb, nil
}
