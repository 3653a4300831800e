package postgres

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dfranco/finref-backend/internal/domain"
)

// crossRatePrecision is the decimal precision used for the base-currency
// division. Presentation rounding happens far downstream; the rate itself
// stays as precise as the table allows.
const crossRatePrecision = 16

// FxRepository implements domain.FxRateProvider and domain.FxRateStore on
// top of a single base-currency rate table: every stored row means
// "1 base = rate units of currency", and pair rates are derived as cross
// rates through the base.
type FxRepository struct {
	db *DB
}

// NewFxRepository creates a new Postgres-backed FX rate repository
func NewFxRepository(db *DB) *FxRepository {
	return &FxRepository{db: db}
}

// Rate returns how many units of "to" one unit of "from" buys
func (r *FxRepository) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	base, rates, err := r.loadRates(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return crossRate(from, to, base, rates)
}

// loadRates reads the whole rate table. The table holds one base currency
// and at most a few dozen rows, so a full read per lookup is fine.
func (r *FxRepository) loadRates(ctx context.Context) (string, map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT base_currency, currency, rate
		FROM exchange_rates
	`)
	if err != nil {
		return "", nil, wrapErr(err, "load exchange rates")
	}
	defer rows.Close()

	base := ""
	rates := make(map[string]decimal.Decimal)
	for rows.Next() {
		var rowBase, currency, rateStr string
		if err := rows.Scan(&rowBase, &currency, &rateStr); err != nil {
			return "", nil, wrapErr(err, "load exchange rates")
		}
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			return "", nil, pkgerrors.Wrapf(err, "parse rate for %q", currency)
		}
		base = rowBase
		rates[currency] = rate
	}
	if err := rows.Err(); err != nil {
		return "", nil, wrapErr(err, "load exchange rates")
	}
	return base, rates, nil
}

// HasRates reports whether any rates have been stored
func (r *FxRepository) HasRates(ctx context.Context) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchange_rates`).Scan(&count)
	if err != nil {
		return false, wrapErr(err, "count exchange rates")
	}
	return count > 0, nil
}

// SaveRate stores one base -> currency rate, replacing an existing entry
func (r *FxRepository) SaveRate(ctx context.Context, base, currency string, rate decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exchange_rates (base_currency, currency, rate)
		VALUES ($1, $2, $3)
		ON CONFLICT (base_currency, currency) DO UPDATE SET rate = EXCLUDED.rate
	`, base, currency, rate.String())
	if err != nil {
		return wrapErr(err, "save rate %s/%s", base, currency)
	}
	return nil
}

// crossRate derives the from -> to rate through the base currency. The base
// itself carries an implicit rate of 1; an unknown currency on either side
// means there is no rate path for the pair.
func crossRate(from, to, base string, rates map[string]decimal.Decimal) (decimal.Decimal, error) {
	one := decimal.NewFromInt(1)

	fromRate := one
	if from != base {
		r, ok := rates[from]
		if !ok {
			return decimal.Decimal{}, &domain.MissingRateError{From: from, To: to}
		}
		fromRate = r
	}

	toRate := one
	if to != base {
		r, ok := rates[to]
		if !ok {
			return decimal.Decimal{}, &domain.MissingRateError{From: from, To: to}
		}
		toRate = r
	}

	// value_in_base = value / fromRate; value_in_to = value_in_base * toRate
	return toRate.DivRound(fromRate, crossRatePrecision), nil
}
