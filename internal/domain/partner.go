package domain

import "time"

// PartnerType distinguishes natural persons from legal entities
type PartnerType string

const (
	PartnerTypeIndividual PartnerType = "individual"
	PartnerTypeCorporate  PartnerType = "corporate"
)

// Partner represents a client (natural person or legal entity).
// Pointer fields only apply to one of the partner types: birth date and
// nationality to individuals, incorporation date and legal entity type to
// corporates.
type Partner struct {
	ID                string
	PartnerType       PartnerType
	Name              string
	BirthDate         *time.Time
	IncorporationDate *time.Time
	ResidencyCountry  string
	TaxID             string
	Nationality       string
	LegalEntityType   string
	KYCStatus         string
	RiskLevel         string
	AccountType       string
	PEPFlag           *bool
	SanctionsScreened *bool
	CreatedAt         time.Time
}

// Record converts the partner into its searchable field -> value form
func (p *Partner) Record() Record {
	rec := Record{
		"id":                 p.ID,
		"partner_type":       string(p.PartnerType),
		"name":               p.Name,
		"birth_date":         nil,
		"incorporation_date": nil,
		"residency_country":  optString(p.ResidencyCountry),
		"tax_id":             optString(p.TaxID),
		"nationality":        optString(p.Nationality),
		"legal_entity_type":  optString(p.LegalEntityType),
		"kyc_status":         optString(p.KYCStatus),
		"risk_level":         optString(p.RiskLevel),
		"account_type":       optString(p.AccountType),
		"pep_flag":           nil,
		"sanctions_screened": nil,
		"created_at":         p.CreatedAt,
	}
	if p.BirthDate != nil {
		rec["birth_date"] = *p.BirthDate
	}
	if p.IncorporationDate != nil {
		rec["incorporation_date"] = *p.IncorporationDate
	}
	if p.PEPFlag != nil {
		rec["pep_flag"] = *p.PEPFlag
	}
	if p.SanctionsScreened != nil {
		rec["sanctions_screened"] = *p.SanctionsScreened
	}
	return rec
}
