package seeder

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dfranco/finref-backend/internal/domain"
)

// BaseCurrency is the base of the seeded rate table. All stored rates are
// "1 BaseCurrency = rate units of X"; cross rates are derived from it.
const BaseCurrency = "CHF"

// defaultRates is the bootstrap rate table used when the store is empty.
// In production these are refreshed by an external rate feed; the seed only
// guarantees the service can value portfolios on a fresh install.
var defaultRates = map[string]decimal.Decimal{
	"USD": decimal.RequireFromString("1.12"),
	"EUR": decimal.RequireFromString("1.03"),
	"GBP": decimal.RequireFromString("0.88"),
	"JPY": decimal.RequireFromString("167.25"),
	"CAD": decimal.RequireFromString("1.52"),
	"AUD": decimal.RequireFromString("1.68"),
	"NZD": decimal.RequireFromString("1.82"),
}

// RatesSeeder bootstraps the exchange-rate table on startup
type RatesSeeder struct {
	store  domain.FxRateStore
	logger *zap.Logger
}

// NewRatesSeeder creates a new RatesSeeder instance
func NewRatesSeeder(store domain.FxRateStore, logger *zap.Logger) *RatesSeeder {
	return &RatesSeeder{
		store:  store,
		logger: logger,
	}
}

// Seed stores the default CHF-based rate table if no rates exist yet.
// Idempotent: a store that already has rates is left untouched.
func (s *RatesSeeder) Seed(ctx context.Context) error {
	seeded, err := s.store.HasRates(ctx)
	if err != nil {
		return err
	}
	if seeded {
		return nil
	}

	for currency, rate := range defaultRates {
		if err := s.store.SaveRate(ctx, BaseCurrency, currency, rate); err != nil {
			return err
		}
	}

	s.logger.Info("seeded default exchange rates",
		zap.String("base_currency", BaseCurrency),
		zap.Int("rates", len(defaultRates)))

	return nil
}
