package detect

import (
	"strings"

	"github.com/sells-group/risk-cli/internal/model"
)

var (
	idColumnPatterns   = []string{"cnpj", "id_unico", "documento", "cpf_cnpj"}
	nameColumnPatterns = []string{"razao_social", "nome", "empresa", "denominacao", "social"}
	nameIndicators     = []string{"ltda", "sa", "s.a.", "eireli", "fundo", "gestora"}
)

const (
	sampleRows          = 5
	idSampleThreshold   = 0.6
	nameSampleThreshold = 0.4
)

// DetectColumns picks the tax ID and name columns from a query result. Column
// names are matched against known patterns first. When a column is still
// missing, the non-empty values of the first five rows are sampled: 60%
// CNPJ-shaped marks an ID column, 40% with legal-entity indicators marks a
// name column.
func DetectColumns(columns []string, rows []map[string]string) model.ColumnMapping {
	var m model.ColumnMapping

	for _, col := range columns {
		lower := strings.ToLower(col)
		if m.TaxIDColumn == "" && containsAny(lower, idColumnPatterns) {
			m.TaxIDColumn = col
			continue
		}
		if m.NameColumn == "" && containsAny(lower, nameColumnPatterns) {
			m.NameColumn = col
		}
	}

	if m.TaxIDColumn != "" && m.NameColumn != "" {
		return m
	}

	sample := rows
	if len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}
	if len(sample) == 0 {
		return m
	}

	for _, col := range columns {
		if col == m.TaxIDColumn || col == m.NameColumn {
			continue
		}
		var values, ids, names int
		for _, row := range sample {
			v := strings.TrimSpace(row[col])
			if v == "" {
				continue
			}
			values++
			if cnpjPrefixRe.MatchString(v) {
				ids++
			}
			if containsAny(strings.ToLower(v), nameIndicators) {
				names++
			}
		}
		if values == 0 {
			continue
		}
		n := float64(values)
		if m.TaxIDColumn == "" && float64(ids) >= n*idSampleThreshold {
			m.TaxIDColumn = col
			continue
		}
		if m.NameColumn == "" && float64(names) >= n*nameSampleThreshold {
			m.NameColumn = col
		}
	}
	return m
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
