package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentType classifies a financial instrument
type InstrumentType string

const (
	InstrumentTypeShare             InstrumentType = "share"
	InstrumentTypeBond              InstrumentType = "bond"
	InstrumentTypeETF               InstrumentType = "etf"
	InstrumentTypeStructuredProduct InstrumentType = "structured_product"
)

// CanonicalTypeOrder is the fixed display order for instrument type groups.
// Types not listed here are appended in first-seen order, so clients building
// fixed-column tables always get a deterministic layout.
var CanonicalTypeOrder = []InstrumentType{
	InstrumentTypeShare,
	InstrumentTypeBond,
	InstrumentTypeETF,
	InstrumentTypeStructuredProduct,
}

// Instrument represents a financial instrument reference-data entry.
// Pointer fields are only populated for the instrument types they apply to
// (e.g. Coupon for bonds, BarrierLevel for structured products).
type Instrument struct {
	ID                string
	ISIN              string
	Name              string
	Issuer            string
	Currency          string
	Country           string
	IssueDate         time.Time
	MaturityDate      *time.Time
	Rating            string
	Type              InstrumentType
	Exchange          string
	Sector            string
	Coupon            *decimal.Decimal
	FaceValue         *int64
	IndexTracked      string
	TotalExpenseRatio *decimal.Decimal
	BarrierLevel      *decimal.Decimal
	CapitalProtection *bool
}

// Record converts the instrument into its searchable field -> value form
func (i *Instrument) Record() Record {
	rec := Record{
		"id":                  i.ID,
		"isin":                i.ISIN,
		"name":                i.Name,
		"issuer":              i.Issuer,
		"currency":            i.Currency,
		"country":             i.Country,
		"issue_date":          i.IssueDate,
		"maturity_date":       nil,
		"rating":              i.Rating,
		"type":                string(i.Type),
		"exchange":            optString(i.Exchange),
		"sector":              optString(i.Sector),
		"coupon":              nil,
		"face_value":          nil,
		"index_tracked":       optString(i.IndexTracked),
		"total_expense_ratio": nil,
		"barrier_level":       nil,
		"capital_protection":  nil,
	}
	if i.MaturityDate != nil {
		rec["maturity_date"] = *i.MaturityDate
	}
	if i.Coupon != nil {
		rec["coupon"] = *i.Coupon
	}
	if i.FaceValue != nil {
		rec["face_value"] = *i.FaceValue
	}
	if i.TotalExpenseRatio != nil {
		rec["total_expense_ratio"] = *i.TotalExpenseRatio
	}
	if i.BarrierLevel != nil {
		rec["barrier_level"] = *i.BarrierLevel
	}
	if i.CapitalProtection != nil {
		rec["capital_protection"] = *i.CapitalProtection
	}
	return rec
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
