// Package detect classifies raw batch inputs as tax IDs, company names, both
// or neither.
package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/sells-group/risk-cli/internal/model"
)

// Confidence values assigned by the detector.
const (
	confTaxID           = 0.95
	confMixedRecord     = 0.95
	confTaxIDRecord     = 0.9
	confNameRecord      = 0.8
	confUnknown         = 0.1
	confInvalid         = 0.0
	maxNameConfidence   = 0.9
	nameThreshold       = 0.3
	indicatorIncrement  = 0.2
	longNameBonus       = 0.1
	uppercaseBonus      = 0.1
	longNameMinLength   = 10
	recordNameMinLength = 3
)

var (
	cnpjRe       = regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)
	cnpjPrefixRe = regexp.MustCompile(`^\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

// companyIndicators are legal-entity and fund tokens matched by substring.
var companyIndicators = []string{
	"ltda", "sa", "s.a.", "ltd", "eireli", "mei", "epp", "me",
	"sociedade", "empresa", "companhia", "corp", "fundo",
	"gestora", "asset", "investimentos", "participações",
	"management", "holdings",
}

// Digits strips every non-digit character.
func Digits(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// IsTaxID reports whether s contains a CNPJ-shaped value with exactly 14
// digits.
func IsTaxID(s string) bool {
	m := cnpjRe.FindString(s)
	return m != "" && len(Digits(m)) == 14
}

// Detect classifies a single raw string.
func Detect(value string) (model.DataType, float64) {
	if IsTaxID(value) {
		return model.DataTypeTaxID, confTaxID
	}

	score := nameScore(value)
	if score >= nameThreshold {
		return model.DataTypeCompanyName, min(score, maxNameConfidence)
	}
	return model.DataTypeUnknown, confUnknown
}

func nameScore(value string) float64 {
	clean := strings.ToLower(strings.TrimSpace(value))

	// Integer tenths avoid float drift at the 0.3 threshold.
	tenths := 0
	for _, ind := range companyIndicators {
		if strings.Contains(clean, ind) {
			tenths += int(indicatorIncrement * 10)
		}
	}
	if len([]rune(clean)) > longNameMinLength {
		tenths += int(longNameBonus * 10)
	}
	if strings.IndexFunc(value, unicode.IsUpper) >= 0 {
		tenths += int(uppercaseBonus * 10)
	}
	return float64(tenths) / 10
}

// DetectString builds a DataItem from a bare string.
func DetectString(value string) model.DataItem {
	dt, conf := Detect(value)
	item := model.DataItem{
		OriginalValue: value,
		DataType:      dt,
		Confidence:    conf,
	}
	switch dt {
	case model.DataTypeTaxID:
		item.TaxID = value
	case model.DataTypeCompanyName:
		item.CompanyName = value
	}
	return item
}

// DetectStructured builds a DataItem from a field-keyed record using the
// given mapping, falling back to the default columns for unset entries.
func DetectStructured(record map[string]string, mapping model.ColumnMapping) model.DataItem {
	m := mapping.WithDefaults()

	taxValue := strings.TrimSpace(record[m.TaxIDColumn])
	nameValue := strings.TrimSpace(record[m.NameColumn])

	hasTaxID := taxValue != "" && cnpjPrefixRe.MatchString(taxValue)
	hasName := len([]rune(nameValue)) > recordNameMinLength

	item := model.DataItem{
		OriginalValue: model.RecordItem(record).String(),
	}
	switch {
	case hasTaxID && hasName:
		item.DataType, item.Confidence = model.DataTypeMixed, confMixedRecord
		item.SourceField = m.TaxIDColumn + "+" + m.NameColumn
	case hasTaxID:
		item.DataType, item.Confidence = model.DataTypeTaxID, confTaxIDRecord
		item.SourceField = m.TaxIDColumn
	case hasName:
		item.DataType, item.Confidence = model.DataTypeCompanyName, confNameRecord
		item.SourceField = m.NameColumn
	default:
		item.DataType, item.Confidence = model.DataTypeUnknown, confUnknown
		item.SourceField = m.NameColumn
	}
	if hasTaxID {
		item.TaxID = taxValue
	}
	if hasName {
		item.CompanyName = nameValue
	}
	return item
}

// Parse classifies every raw item. It never fails: invalid inputs become
// unknown items so that each input yields exactly one DataItem.
func Parse(raw []model.RawItem, mapping model.ColumnMapping) []model.DataItem {
	items := make([]model.DataItem, len(raw))
	for i, r := range raw {
		switch {
		case r.Invalid:
			items[i] = model.DataItem{
				OriginalValue: r.Value,
				DataType:      model.DataTypeUnknown,
				Confidence:    confInvalid,
			}
		case r.IsRecord():
			items[i] = DetectStructured(r.Record, mapping)
		default:
			items[i] = DetectString(r.Value)
		}
	}
	return items
}

// Explain returns a human explanation of a detection.
func Explain(item model.DataItem) string {
	pct := item.Confidence * 100
	switch item.DataType {
	case model.DataTypeTaxID:
		return fmt.Sprintf("CNPJ pattern detected (confidence: %.1f%%)", pct)
	case model.DataTypeCompanyName:
		return fmt.Sprintf("company name detected (confidence: %.1f%%)", pct)
	case model.DataTypeMixed:
		return fmt.Sprintf("CNPJ and company name in %s (confidence: %.1f%%)", item.SourceField, pct)
	default:
		return fmt.Sprintf("type not identified (confidence: %.1f%%)", pct)
	}
}

// RowItems turns query rows into raw records. With a mapping, each row is
// passed through unchanged and the mapping is applied at parse time. Without
// one, string values are scanned for a CNPJ and a company-like name and
// rows that yield neither are skipped.
func RowItems(rows []map[string]string, mapping model.ColumnMapping) []model.RawItem {
	items := make([]model.RawItem, 0, len(rows))
	if !mapping.IsZero() {
		for _, row := range rows {
			items = append(items, model.RecordItem(row))
		}
		return items
	}

	def := model.DefaultColumnMapping()
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rec := map[string]string{}
		for _, k := range keys {
			v := strings.TrimSpace(row[k])
			switch {
			case cnpjPrefixRe.MatchString(v):
				rec[def.TaxIDColumn] = v
			case len(v) > longNameMinLength && containsAny(strings.ToLower(v), rowNameWords):
				rec[def.NameColumn] = v
			}
		}
		if len(rec) > 0 {
			items = append(items, model.RecordItem(rec))
		}
	}
	return items
}

var rowNameWords = []string{"ltda", "sa", "eireli", "fundo"}
