package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/pipeline"
)

// batchFlags are the batch knobs exposed by the batch and sql commands.
type batchFlags struct {
	strategy      string
	maxConcurrent int
	noNews        bool
	noEnrichment  bool
	cnpjCol       string
	nameCol       string
	output        string
	format        string
}

func (f *batchFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.strategy, "strategy", "", "auto, cnpj_only, company_name_only or hybrid (default from config)")
	fs.IntVar(&f.maxConcurrent, "max-concurrent", 0, "items processed in parallel (default from config)")
	fs.BoolVar(&f.noNews, "no-news", false, "skip the news search")
	fs.BoolVar(&f.noEnrichment, "no-enrichment", false, "skip the registry lookup")
	fs.StringVar(&f.cnpjCol, "cnpj-col", "", "record field holding the CNPJ")
	fs.StringVar(&f.nameCol, "name-col", "", "record field holding the company name")
	fs.StringVarP(&f.output, "output", "o", "", "report file (default stdout)")
	fs.StringVarP(&f.format, "format", "f", "json", "report format: json, yaml, markdown or xlsx")
}

// params turns the flags into batch params. Unset flags defer to config.
func (f *batchFlags) params(cmd *cobra.Command) batchParams {
	p := batchParams{
		AnalysisStrategy: f.strategy,
		MaxConcurrent:    f.maxConcurrent,
	}
	if cmd.Flags().Changed("no-news") {
		p.IncludeNews = boolPtr(!f.noNews)
	}
	if cmd.Flags().Changed("no-enrichment") {
		p.IncludeEnrichment = boolPtr(!f.noEnrichment)
	}
	if f.cnpjCol != "" || f.nameCol != "" {
		p.ColumnMapping = &model.ColumnMapping{TaxIDColumn: f.cnpjCol, NameColumn: f.nameCol}
	}
	return p
}

// writeOutput writes report to the output file, or stdout when unset.
func writeOutput(report *model.BatchReport, path, format string, stdout io.Writer) error {
	f, err := pipeline.ParseFormat(format)
	if err != nil {
		return err
	}
	if path == "" {
		if f == pipeline.FormatXLSX {
			return eris.New("xlsx output requires --output")
		}
		return pipeline.WriteReport(stdout, report, f)
	}

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output file")
	}
	if err := pipeline.WriteReport(out, report, f); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return eris.Wrap(err, "close output file")
	}
	zap.L().Info("report written", zap.String("path", path), zap.String("format", f))
	return nil
}

func logReport(report *model.BatchReport) {
	st := report.Statistics
	zap.L().Info("batch complete",
		zap.String("batch_id", report.Metadata.BatchID),
		zap.String("strategy", string(report.Metadata.StrategyResolved)),
		zap.Int("processed", st.TotalProcessed),
		zap.Int("successful", st.Successful),
		zap.Int("failed", st.Failed),
		zap.Int("high_risk", st.HighRiskCompanies),
		zap.Float64("avg_risk_score", st.AvgRiskScore),
	)
}
