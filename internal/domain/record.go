package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// EntityKind identifies a searchable record family
type EntityKind string

const (
	KindPartner    EntityKind = "partner"
	KindInstrument EntityKind = "instrument"
	KindPortfolio  EntityKind = "portfolio"
)

// Valid reports whether the kind is one of the known record families
func (k EntityKind) Valid() bool {
	return k == KindPartner || k == KindInstrument || k == KindPortfolio
}

// FieldSet returns the known field names for the kind
// Field names outside this set are rejected at query evaluation time
func (k EntityKind) FieldSet() map[string]struct{} {
	switch k {
	case KindPartner:
		return partnerFields
	case KindInstrument:
		return instrumentFields
	case KindPortfolio:
		return portfolioFields
	default:
		return nil
	}
}

// Record is the polymorphic field -> value view of a partner or financial
// instrument. Values are one of: string, bool, decimal.Decimal, time.Time,
// or nil for an unset field. The "id" field is always present and unique
// within its kind.
type Record map[string]any

// ID returns the record's id field, or "" if it is missing
func (r Record) ID() string {
	s, _ := CanonicalString(r["id"])
	return s
}

var partnerFields = map[string]struct{}{
	"id":                 {},
	"partner_type":       {},
	"name":               {},
	"birth_date":         {},
	"incorporation_date": {},
	"residency_country":  {},
	"tax_id":             {},
	"nationality":        {},
	"legal_entity_type":  {},
	"kyc_status":         {},
	"risk_level":         {},
	"account_type":       {},
	"pep_flag":           {},
	"sanctions_screened": {},
	"created_at":         {},
}

var instrumentFields = map[string]struct{}{
	"id":                  {},
	"isin":                {},
	"name":                {},
	"issuer":              {},
	"currency":            {},
	"country":             {},
	"issue_date":          {},
	"maturity_date":       {},
	"rating":              {},
	"type":                {},
	"exchange":            {},
	"sector":              {},
	"coupon":              {},
	"face_value":          {},
	"index_tracked":       {},
	"total_expense_ratio": {},
	"barrier_level":       {},
	"capital_protection":  {},
}

var portfolioFields = map[string]struct{}{
	"id":         {},
	"owner_id":   {},
	"name":       {},
	"currency":   {},
	"created_at": {},
}

// CanonicalString renders a record value in its canonical comparable form:
// booleans as "true"/"false", decimals as plain decimal strings, dates as
// ISO-8601 (YYYY-MM-DD). The second return value is false when the value is
// unset (nil), which query matching treats the same as an absent field.
func CanonicalString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case decimal.Decimal:
		return t.String(), true
	case time.Time:
		return t.Format("2006-01-02"), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return decimal.NewFromFloat(t).String(), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}
