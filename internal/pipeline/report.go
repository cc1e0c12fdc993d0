package pipeline

import (
	"fmt"

	"github.com/sells-group/risk-cli/internal/model"
)

// Score bands used by the statistics and the markdown report.
const (
	HighRiskThreshold   = 70
	MediumRiskThreshold = 40
)

// Compile aggregates per-item results into a report. Success means the item
// was scored; results with advisory errors still count as successful. Never
// fails, including for an empty batch.
func Compile(results []model.BatchResult, meta model.ReportMetadata) model.BatchReport {
	if results == nil {
		results = []model.BatchResult{}
	}

	report := model.BatchReport{
		Metadata:             meta,
		StrategyDistribution: make(map[model.Group]int),
		StrategyPerformance:  make(map[model.Group]model.StrategyStats),
		Results:              results,
	}

	type groupAcc struct {
		count, ok int
		sum       float64
	}
	groups := make(map[model.Group]*groupAcc)

	st := &report.Statistics
	st.TotalProcessed = len(results)

	var scoreSum, timeSum float64
	for _, r := range results {
		timeSum += r.ProcessingTime
		if len(r.Errors) > 0 {
			st.WithErrors++
		}

		acc := groups[r.StrategyUsed]
		if acc == nil {
			acc = &groupAcc{}
			groups[r.StrategyUsed] = acc
		}
		acc.count++

		if !r.Succeeded() {
			continue
		}
		acc.ok++
		acc.sum += r.FinalRiskScore
		st.Successful++
		scoreSum += r.FinalRiskScore

		switch {
		case r.FinalRiskScore >= HighRiskThreshold:
			st.HighRiskCompanies++
			st.RiskDistribution.High++
		case r.FinalRiskScore >= MediumRiskThreshold:
			st.RiskDistribution.Medium++
		default:
			st.RiskDistribution.Low++
		}
	}
	st.Failed = st.TotalProcessed - st.Successful
	if st.Successful > 0 {
		st.AvgRiskScore = scoreSum / float64(st.Successful)
	}
	if st.TotalProcessed > 0 {
		st.AvgProcessingTime = timeSum / float64(st.TotalProcessed)
	}

	mostUsed, mostCount := "none", 0
	for _, g := range model.Groups {
		acc := groups[g]
		if acc == nil {
			continue
		}
		stats := model.StrategyStats{
			Count:       acc.count,
			SuccessRate: float64(acc.ok) / float64(acc.count) * 100,
		}
		if acc.ok > 0 {
			stats.AvgScore = acc.sum / float64(acc.ok)
		}
		report.StrategyDistribution[g] = acc.count
		report.StrategyPerformance[g] = stats
		if acc.count > mostCount {
			mostUsed, mostCount = string(g), acc.count
		}
	}

	var perMinute float64
	if meta.ProcessingTime > 0 {
		perMinute = float64(st.TotalProcessed) / (meta.ProcessingTime / 60)
	}
	report.Summary = model.Summary{
		CompaniesAnalyzed:    st.TotalProcessed,
		AvgRiskScore:         st.AvgRiskScore,
		HighRiskCount:        st.HighRiskCompanies,
		MostUsedStrategy:     mostUsed,
		ItemsPerMinute:       perMinute,
		ProcessingEfficiency: fmt.Sprintf("%.1f items/min", perMinute),
	}
	return report
}
