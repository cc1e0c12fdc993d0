package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DataType classifies a raw input value.
type DataType string

const (
	DataTypeTaxID       DataType = "cnpj"
	DataTypeCompanyName DataType = "company_name"
	DataTypeMixed       DataType = "mixed"
	DataTypeUnknown     DataType = "unknown"
)

// DataItem is one classified batch input. It is created once by the detector
// and never modified afterwards.
type DataItem struct {
	OriginalValue string   `json:"original_value" yaml:"original_value"`
	DataType      DataType `json:"data_type" yaml:"data_type"`
	TaxID         string   `json:"cnpj,omitempty" yaml:"cnpj,omitempty"`
	CompanyName   string   `json:"company_name,omitempty" yaml:"company_name,omitempty"`
	Confidence    float64  `json:"confidence" yaml:"confidence"`
	SourceField   string   `json:"source_column,omitempty" yaml:"source_column,omitempty"`
}

// HasTaxID reports whether the item carries a tax ID.
func (d DataItem) HasTaxID() bool { return d.TaxID != "" }

// HasName reports whether the item carries a company name.
func (d DataItem) HasName() bool { return d.CompanyName != "" }

// Label returns a short identifier suitable for log fields.
func (d DataItem) Label() string {
	switch {
	case d.TaxID != "":
		return d.TaxID
	case d.CompanyName != "":
		return d.CompanyName
	}
	if len(d.OriginalValue) > 50 {
		return d.OriginalValue[:50]
	}
	return d.OriginalValue
}

// ColumnMapping names the record fields that hold the tax ID and the
// company name.
type ColumnMapping struct {
	TaxIDColumn string `json:"cnpj_col,omitempty" yaml:"cnpj_col,omitempty" mapstructure:"cnpj_col"`
	NameColumn  string `json:"name_col,omitempty" yaml:"name_col,omitempty" mapstructure:"name_col"`
}

// DefaultColumnMapping returns the mapping used when the caller supplies none.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{TaxIDColumn: "cnpj", NameColumn: "razao_social"}
}

// WithDefaults fills empty columns from DefaultColumnMapping.
func (m ColumnMapping) WithDefaults() ColumnMapping {
	def := DefaultColumnMapping()
	if m.TaxIDColumn == "" {
		m.TaxIDColumn = def.TaxIDColumn
	}
	if m.NameColumn == "" {
		m.NameColumn = def.NameColumn
	}
	return m
}

// IsZero reports whether neither column is set.
func (m ColumnMapping) IsZero() bool {
	return m.TaxIDColumn == "" && m.NameColumn == ""
}

// RawItem is a single unparsed batch input: either a bare string value or a
// field-keyed record. Anything else decoded from JSON is kept as Invalid.
type RawItem struct {
	Value   string
	Record  map[string]string
	Invalid bool
}

// StringItem wraps a bare value.
func StringItem(v string) RawItem { return RawItem{Value: v} }

// RecordItem wraps a field-keyed record.
func RecordItem(rec map[string]string) RawItem {
	if rec == nil {
		rec = map[string]string{}
	}
	return RawItem{Record: rec}
}

// StringItems wraps each value as a RawItem.
func StringItems(values []string) []RawItem {
	out := make([]RawItem, len(values))
	for i, v := range values {
		out[i] = StringItem(v)
	}
	return out
}

// IsRecord reports whether the item is a field-keyed record.
func (r RawItem) IsRecord() bool { return r.Record != nil }

// String renders the item the way it is reported as original_value.
// Records render with sorted keys so the output is stable.
func (r RawItem) String() string {
	if !r.IsRecord() {
		return r.Value
	}
	keys := make([]string, 0, len(r.Record))
	for k := range r.Record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", k, r.Record[k])
	}
	b.WriteString("}")
	return b.String()
}

// UnmarshalJSON accepts a JSON string or object. Other JSON values decode as
// Invalid so the detector can classify them as unknown.
func (r *RawItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = StringItem(s)
		return nil
	}

	// Numbers stay json.Number so numeric tax IDs keep every digit.
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&obj); err == nil && obj != nil {
		rec := make(map[string]string, len(obj))
		for k, v := range obj {
			switch v := v.(type) {
			case nil:
				rec[k] = ""
			case json.Number:
				rec[k] = v.String()
			default:
				rec[k] = fmt.Sprint(v)
			}
		}
		*r = RecordItem(rec)
		return nil
	}

	*r = RawItem{Value: string(data), Invalid: true}
	return nil
}

// MarshalJSON writes records as objects and everything else as a string.
func (r RawItem) MarshalJSON() ([]byte, error) {
	if r.IsRecord() {
		return json.Marshal(r.Record)
	}
	return json.Marshal(r.Value)
}
