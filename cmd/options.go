package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/config"
	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/pipeline"
	"github.com/sells-group/risk-cli/internal/resilience"
)

const maxConcurrentLimit = 50

// batchParams are the per-run knobs shared by the batch endpoints and
// commands. Unset fields fall back to the batch config.
type batchParams struct {
	AnalysisStrategy  string               `json:"analysis_strategy"`
	IncludeNews       *bool                `json:"include_news"`
	IncludeEnrichment *bool                `json:"include_enrichment"`
	MaxConcurrent     int                  `json:"max_concurrent"`
	ColumnMapping     *model.ColumnMapping `json:"column_mapping"`
}

// options resolves p against the config defaults. Invalid values are bad
// requests.
func (p batchParams) options(defaults config.BatchConfig) (pipeline.Options, error) {
	strategyName := p.AnalysisStrategy
	if strategyName == "" {
		strategyName = defaults.Strategy
	}
	strategy, err := model.ParseStrategy(strategyName)
	if err != nil {
		return pipeline.Options{}, resilience.BadRequest(err)
	}

	maxConcurrent := p.MaxConcurrent
	if maxConcurrent == 0 {
		maxConcurrent = defaults.MaxConcurrent
	}
	if maxConcurrent < 1 || maxConcurrent > maxConcurrentLimit {
		return pipeline.Options{}, resilience.BadRequest(
			eris.Errorf("max_concurrent must be between 1 and %d (got %d)", maxConcurrentLimit, maxConcurrent))
	}

	opts := pipeline.Options{
		Strategy:          strategy,
		IncludeNews:       defaults.IncludeNews,
		IncludeEnrichment: defaults.IncludeEnrichment,
		MaxConcurrent:     maxConcurrent,
	}
	if p.IncludeNews != nil {
		opts.IncludeNews = *p.IncludeNews
	}
	if p.IncludeEnrichment != nil {
		opts.IncludeEnrichment = *p.IncludeEnrichment
	}
	if p.ColumnMapping != nil {
		opts.ColumnMapping = *p.ColumnMapping
	}
	return opts, nil
}

func boolPtr(b bool) *bool { return &b }
