package model

import "strings"

// RecordSource says where a CompanyRecord's data came from.
type RecordSource string

const (
	SourceRegistry    RecordSource = "registry"
	SourceDirectInput RecordSource = "direct_input"
	SourceFallback    RecordSource = "fallback"
)

// CompanyRecord is normalized registry data for one company. A failed lookup
// is still a CompanyRecord with Success false; callers degrade to a
// name-only flow instead of aborting.
type CompanyRecord struct {
	TaxID           string       `json:"cnpj" yaml:"cnpj"`
	LegalName       string       `json:"razao_social" yaml:"razao_social"`
	TradeName       string       `json:"nome_fantasia,omitempty" yaml:"nome_fantasia,omitempty"`
	Status          string       `json:"situacao,omitempty" yaml:"situacao,omitempty"`
	PrimaryActivity string       `json:"atividade_principal,omitempty" yaml:"atividade_principal,omitempty"`
	SizeClass       string       `json:"porte,omitempty" yaml:"porte,omitempty"`
	DeclaredCapital float64      `json:"capital_social" yaml:"capital_social"`
	Municipality    string       `json:"municipio,omitempty" yaml:"municipio,omitempty"`
	State           string       `json:"uf,omitempty" yaml:"uf,omitempty"`
	OpenedAt        string       `json:"data_abertura,omitempty" yaml:"data_abertura,omitempty"`
	Phone           string       `json:"telefone,omitempty" yaml:"telefone,omitempty"`
	Success         bool         `json:"success" yaml:"success"`
	Error           string       `json:"error,omitempty" yaml:"error,omitempty"`
	Source          RecordSource `json:"source" yaml:"source"`
}

// FromRegistry reports whether the record holds a successful registry lookup.
func (c CompanyRecord) FromRegistry() bool {
	return c.Success && c.Source == SourceRegistry
}

// Location renders "municipality/state".
func (c CompanyRecord) Location() string {
	return c.Municipality + "/" + c.State
}

// DirectRecord synthesizes a record from a name supplied by the caller.
func DirectRecord(name string, source RecordSource) CompanyRecord {
	return CompanyRecord{
		LegalName: strings.TrimSpace(name),
		Success:   true,
		Source:    source,
	}
}
