package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Strategy is the requested data-acquisition path for a batch.
type Strategy string

const (
	StrategyAuto      Strategy = "auto_detect"
	StrategyTaxIDOnly Strategy = "cnpj_only"
	StrategyNameOnly  Strategy = "company_name_only"
	StrategyHybrid    Strategy = "hybrid"
)

// ParseStrategy parses a strategy name. An empty string selects auto.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", string(StrategyAuto):
		return StrategyAuto, nil
	case "cnpj", string(StrategyTaxIDOnly), "tax_id_only":
		return StrategyTaxIDOnly, nil
	case "name", string(StrategyNameOnly), "name_only":
		return StrategyNameOnly, nil
	case string(StrategyHybrid):
		return StrategyHybrid, nil
	default:
		return "", eris.Errorf("model: unknown strategy %q", s)
	}
}

// Group is the per-item work bucket chosen by the router.
type Group string

const (
	GroupEnrichment    Group = "cnpj_enrichment"
	GroupNameSearch    Group = "direct_name_search"
	GroupHybrid        Group = "hybrid_analysis"
	GroupUnprocessable Group = "unknown_items"
)

// Groups lists every group in processing order.
var Groups = []Group{GroupEnrichment, GroupNameSearch, GroupHybrid, GroupUnprocessable}

// UsesEnrichment reports whether items in the group call the registry.
func (g Group) UsesEnrichment() bool {
	return g == GroupEnrichment || g == GroupHybrid
}

// BatchResult is the outcome for one input item. Errors are advisory: a
// result can carry errors and still have a successful risk assessment.
type BatchResult struct {
	OriginalData    DataItem       `json:"original_data" yaml:"original_data"`
	EnrichmentData  CompanyRecord  `json:"enrichment_data" yaml:"enrichment_data"`
	CompanyNameUsed string         `json:"company_name_used" yaml:"company_name_used"`
	NewsAnalysis    []NewsItem     `json:"news_analysis" yaml:"news_analysis"`
	RiskAssessment  RiskAssessment `json:"risk_assessment" yaml:"risk_assessment"`
	FinalRiskScore  float64        `json:"final_risk_score" yaml:"final_risk_score"`
	ProcessingTime  float64        `json:"processing_time" yaml:"processing_time"`
	StrategyUsed    Group          `json:"strategy_used" yaml:"strategy_used"`
	Errors          []string       `json:"errors" yaml:"errors"`
	Warnings        []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Succeeded reports whether the item was scored.
func (r BatchResult) Succeeded() bool { return r.RiskAssessment.Success }

// ReportMetadata describes a batch invocation.
type ReportMetadata struct {
	BatchID           string    `json:"batch_id" yaml:"batch_id"`
	StartedAt         time.Time `json:"analysis_date" yaml:"analysis_date"`
	FinishedAt        time.Time `json:"finished_at" yaml:"finished_at"`
	TotalItems        int       `json:"total_items" yaml:"total_items"`
	ProcessingTime    float64   `json:"processing_time" yaml:"processing_time"`
	StrategyRequested Strategy  `json:"strategy_requested" yaml:"strategy_requested"`
	StrategyResolved  Strategy  `json:"strategy_resolved" yaml:"strategy_resolved"`
	IncludeNews       bool      `json:"include_news" yaml:"include_news"`
	IncludeEnrichment bool      `json:"include_enrichment" yaml:"include_enrichment"`
	MaxConcurrent     int       `json:"max_concurrent" yaml:"max_concurrent"`
}

// StrategyStats is per-group performance. SuccessRate is a percentage.
type StrategyStats struct {
	Count       int     `json:"count" yaml:"count"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
	AvgScore    float64 `json:"avg_score" yaml:"avg_score"`
}

// RiskDistribution buckets successful results by final score.
type RiskDistribution struct {
	Low    int `json:"baixo" yaml:"baixo"`
	Medium int `json:"medio" yaml:"medio"`
	High   int `json:"alto" yaml:"alto"`
}

// Statistics aggregates the whole batch.
type Statistics struct {
	TotalProcessed    int              `json:"total_processed" yaml:"total_processed"`
	Successful        int              `json:"successful" yaml:"successful"`
	Failed            int              `json:"failed" yaml:"failed"`
	WithErrors        int              `json:"with_errors" yaml:"with_errors"`
	AvgRiskScore      float64          `json:"avg_risk_score" yaml:"avg_risk_score"`
	HighRiskCompanies int              `json:"high_risk_companies" yaml:"high_risk_companies"`
	AvgProcessingTime float64          `json:"avg_processing_time" yaml:"avg_processing_time"`
	RiskDistribution  RiskDistribution `json:"risk_distribution" yaml:"risk_distribution"`
}

// Summary is the human-readable block of a report.
type Summary struct {
	CompaniesAnalyzed    int     `json:"companies_analyzed" yaml:"companies_analyzed"`
	AvgRiskScore         float64 `json:"avg_risk_score" yaml:"avg_risk_score"`
	HighRiskCount        int     `json:"high_risk_count" yaml:"high_risk_count"`
	MostUsedStrategy     string  `json:"most_used_strategy" yaml:"most_used_strategy"`
	ItemsPerMinute       float64 `json:"items_per_minute" yaml:"items_per_minute"`
	ProcessingEfficiency string  `json:"processing_efficiency" yaml:"processing_efficiency"`
}

// SQLMetadata is attached to reports built from a SQL query.
type SQLMetadata struct {
	Query           string        `json:"query" yaml:"query"`
	TotalSQLRecords int           `json:"total_sql_records" yaml:"total_sql_records"`
	ColumnsDetected []string      `json:"columns_detected" yaml:"columns_detected"`
	ItemsProcessed  int           `json:"items_processed" yaml:"items_processed"`
	ColumnMapping   ColumnMapping `json:"column_mapping" yaml:"column_mapping"`
}

// BatchReport is the whole-batch envelope. Results follow input order.
type BatchReport struct {
	Metadata             ReportMetadata          `json:"metadata" yaml:"metadata"`
	StrategyDistribution map[Group]int           `json:"strategy_distribution" yaml:"strategy_distribution"`
	StrategyPerformance  map[Group]StrategyStats `json:"strategy_performance" yaml:"strategy_performance"`
	Statistics           Statistics              `json:"statistics" yaml:"statistics"`
	Results              []BatchResult           `json:"results" yaml:"results"`
	Summary              Summary                 `json:"summary" yaml:"summary"`
	SQL                  *SQLMetadata            `json:"sql_metadata,omitempty" yaml:"sql_metadata,omitempty"`
}
