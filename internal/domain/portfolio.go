package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a holding of one instrument inside a portfolio.
// MarketValue is denominated in Currency and is never converted at rest;
// conversion into a reference currency happens only during aggregation.
type Position struct {
	InstrumentID string          `json:"instrument_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	MarketValue  decimal.Decimal `json:"market_value"`
	Currency     string          `json:"currency"`
}

// Portfolio owns a set of positions. Its Currency is the portfolio's own
// base currency and is informational only: aggregation always uses the
// caller-supplied reference currency.
type Portfolio struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`
	Currency  string     `json:"currency"`
	CreatedAt time.Time  `json:"created_at"`
	Positions []Position `json:"positions"`
}

// Record converts the portfolio header into its searchable field -> value
// form. Positions are not searchable fields; they travel with the entity.
func (p *Portfolio) Record() Record {
	return Record{
		"id":         p.ID,
		"owner_id":   p.OwnerID,
		"name":       p.Name,
		"currency":   p.Currency,
		"created_at": p.CreatedAt,
	}
}
