package domain

import "github.com/shopspring/decimal"

// PositionExposure augments a position with the instrument type it resolves
// to and its value converted into the report's reference currency
type PositionExposure struct {
	Position
	InstrumentType     InstrumentType  `json:"instrument_type"`
	ReferenceCurrency  string          `json:"ref_currency"`
	ValueInRefCurrency decimal.Decimal `json:"value_in_ref_currency"`
}

// ExposureGroup is the portion of a portfolio attributable to one
// instrument type, valued in the reference currency
type ExposureGroup struct {
	InstrumentType InstrumentType     `json:"instrument_type"`
	TotalValue     decimal.Decimal    `json:"total_value"`
	Percentage     decimal.Decimal    `json:"percentage"`
	Positions      []PositionExposure `json:"positions"`
}

// CurrencyExposure is the portion of a portfolio attributable to positions
// denominated in one native currency, valued in the reference currency
type CurrencyExposure struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

// ExposureReport is the full composition breakdown of one portfolio.
// Groups follow CanonicalTypeOrder, then unrecognised types in first-seen
// order. The sum of group totals equals TotalPortfolioValue and percentages
// sum to 100 within presentation rounding; when the total is zero every
// percentage is zero.
type ExposureReport struct {
	PortfolioID         string             `json:"portfolio_id"`
	ReferenceCurrency   string             `json:"reference_currency"`
	TotalPortfolioValue decimal.Decimal    `json:"total_portfolio_value"`
	Groups              []ExposureGroup    `json:"instrument_groups"`
	CurrencyExposure    []CurrencyExposure `json:"currency_exposure"`
}
