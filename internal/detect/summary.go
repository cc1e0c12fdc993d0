package detect

import (
	"fmt"

	"github.com/sells-group/risk-cli/internal/model"
)

// Detection is one entry of a detection report.
type Detection struct {
	OriginalValue string         `json:"original_value"`
	DetectedType  model.DataType `json:"detected_type"`
	Confidence    float64        `json:"confidence"`
	Explanation   string         `json:"explanation"`
}

// Recommendation suggests a batch strategy for a set of detections.
type Recommendation struct {
	Primary        model.Strategy `json:"primary"`
	Reason         string         `json:"reason"`
	CNPJPercentage string         `json:"cnpj_percentage"`
	NamePercentage string         `json:"name_percentage"`
}

// Report is the result of classifying a list of strings.
type Report struct {
	Detections      []Detection            `json:"detections"`
	Summary         map[model.DataType]int `json:"summary"`
	Recommendations Recommendation         `json:"recommendations"`
}

// Summarize classifies each value and recommends a strategy.
func Summarize(values []string) Report {
	return SummarizeItems(model.StringItems(values), model.ColumnMapping{})
}

// SummarizeItems is Summarize for string and record items. Records are
// classified through mapping.
func SummarizeItems(raw []model.RawItem, mapping model.ColumnMapping) Report {
	r := Report{
		Detections: make([]Detection, 0, len(raw)),
		Summary: map[model.DataType]int{
			model.DataTypeTaxID:       0,
			model.DataTypeCompanyName: 0,
			model.DataTypeUnknown:     0,
		},
	}
	for _, item := range Parse(raw, mapping) {
		r.Detections = append(r.Detections, Detection{
			OriginalValue: item.OriginalValue,
			DetectedType:  item.DataType,
			Confidence:    item.Confidence,
			Explanation:   Explain(item),
		})
		r.Summary[item.DataType]++
	}
	r.Recommendations = Recommend(r.Summary, len(raw))
	return r
}

// Recommend picks a strategy from per-type counts.
func Recommend(counts map[model.DataType]int, total int) Recommendation {
	var taxRatio, nameRatio float64
	if total > 0 {
		taxRatio = float64(counts[model.DataTypeTaxID]) / float64(total)
		nameRatio = float64(counts[model.DataTypeCompanyName]) / float64(total)
	}

	rec := Recommendation{
		CNPJPercentage: fmt.Sprintf("%.1f%%", taxRatio*100),
		NamePercentage: fmt.Sprintf("%.1f%%", nameRatio*100),
	}
	switch {
	case taxRatio > 0.8:
		rec.Primary = model.StrategyTaxIDOnly
		rec.Reason = "most items are CNPJs: enrich through the registry"
	case nameRatio > 0.8:
		rec.Primary = model.StrategyNameOnly
		rec.Reason = "most items are company names: search news directly"
	case taxRatio > 0.3 && nameRatio > 0.3:
		rec.Primary = model.StrategyHybrid
		rec.Reason = "mixed data: use the hybrid strategy"
	default:
		rec.Primary = model.StrategyAuto
		rec.Reason = "varied data: let the router choose"
	}
	return rec
}
