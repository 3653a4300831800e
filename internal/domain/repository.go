package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// RecordIterator streams records from the store in its natural order.
// Iteration is not restartable: callers obtain a fresh iterator per scan.
// Close must be called once iteration is abandoned or exhausted.
type RecordIterator interface {
	// Next returns the next record, or false when the stream is exhausted
	// or failed. After a false return, Err distinguishes the two.
	Next() (Record, bool)

	// Err returns the first error encountered while streaming, if any
	Err() error

	// Close releases the underlying resources
	Close() error
}

// RecordStore defines the interface for reference-data lookups.
// The core only reads; it never mutates stored entities.
type RecordStore interface {
	// Fetch retrieves a single record by id.
	// Returns *NotFoundError if no record with that id exists.
	Fetch(ctx context.Context, kind EntityKind, id string) (Record, error)

	// Scan streams all records of a kind in the store's natural order
	Scan(ctx context.Context, kind EntityKind) (RecordIterator, error)

	// GetPortfolio retrieves a portfolio with its positions.
	// Returns *NotFoundError if no portfolio with that id exists.
	GetPortfolio(ctx context.Context, id string) (*Portfolio, error)

	// ScanPortfolios retrieves all portfolios with their positions
	ScanPortfolios(ctx context.Context) ([]*Portfolio, error)
}

// FxRateProvider defines the interface for current exchange-rate lookups
type FxRateProvider interface {
	// Rate returns how many units of "to" one unit of "from" buys, valid
	// now. Returns *MissingRateError when no rate path exists for the pair.
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// FxRateStore defines the persistence interface for the base-currency rate
// table, used by the reference seeder
type FxRateStore interface {
	// HasRates reports whether any rates have been stored
	HasRates(ctx context.Context) (bool, error)

	// SaveRate stores one base -> currency rate, replacing an existing entry
	SaveRate(ctx context.Context, base, currency string, rate decimal.Decimal) error
}
