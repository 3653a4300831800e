package exposure

import (
	"context"
	"errors"
	"sort"

	money "github.com/Rhymond/go-money"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dfranco/finref-backend/internal/domain"
)

// DefaultReferenceCurrency is used when the caller does not supply one
const DefaultReferenceCurrency = "CHF"

// hundred is the percentage scale factor
var hundred = decimal.NewFromInt(100)

// Service computes portfolio exposure reports
type Service struct {
	store  domain.RecordStore
	fx     domain.FxRateProvider
	logger *zap.Logger
}

// NewService creates a new exposure Service instance
func NewService(store domain.RecordStore, fx domain.FxRateProvider, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		fx:     fx,
		logger: logger,
	}
}

// Aggregate values a portfolio's positions in the reference currency and
// groups them by instrument type.
//
// A position already denominated in the reference currency keeps its market
// value unchanged: no FX round-trip happens for same-currency lines, so a
// portfolio held entirely in the reference currency values to the exact sum
// of its market values. Every other position is converted with a single
// multiplication before any rounding; presentation rounding to 2 decimals
// happens only when the report is built.
//
// Instrument and FX lookups for the positions fan out concurrently; the
// first failure cancels the rest and is returned (no partial report).
// An empty portfolio yields a zero-total report with no groups.
func (s *Service) Aggregate(ctx context.Context, portfolioID, referenceCurrency string) (*domain.ExposureReport, error) {
	if referenceCurrency == "" {
		referenceCurrency = DefaultReferenceCurrency
	}
	if money.GetCurrency(referenceCurrency) == nil {
		return nil, &domain.UnsupportedCurrencyError{Currency: referenceCurrency}
	}

	portfolio, err := s.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	exposures := make([]domain.PositionExposure, len(portfolio.Positions))
	g, gctx := errgroup.WithContext(ctx)
	for i, pos := range portfolio.Positions {
		i, pos := i, pos
		g.Go(func() error {
			exp, err := s.valuePosition(gctx, portfolioID, pos, referenceCurrency)
			if err != nil {
				return err
			}
			exposures[i] = exp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := buildReport(portfolioID, referenceCurrency, exposures)

	s.logger.Debug("portfolio aggregated",
		zap.String("portfolio_id", portfolioID),
		zap.String("reference_currency", referenceCurrency),
		zap.Int("positions", len(exposures)),
		zap.Int("groups", len(report.Groups)))

	return report, nil
}

// valuePosition resolves a position's instrument type and converts its
// market value into the reference currency
func (s *Service) valuePosition(ctx context.Context, portfolioID string, pos domain.Position, referenceCurrency string) (domain.PositionExposure, error) {
	rec, err := s.store.Fetch(ctx, domain.KindInstrument, pos.InstrumentID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			// Dangling reference: store corruption, never skipped silently
			return domain.PositionExposure{}, &domain.IntegrityError{
				PortfolioID:  portfolioID,
				InstrumentID: pos.InstrumentID,
			}
		}
		return domain.PositionExposure{}, pkgerrors.Wrapf(err, "portfolio %q: fetch instrument %q", portfolioID, pos.InstrumentID)
	}
	instrumentType, _ := domain.CanonicalString(rec["type"])

	value := pos.MarketValue
	if pos.Currency != referenceCurrency {
		rate, err := s.fx.Rate(ctx, pos.Currency, referenceCurrency)
		if err != nil {
			return domain.PositionExposure{}, pkgerrors.Wrapf(err, "portfolio %q: convert position %q", portfolioID, pos.InstrumentID)
		}
		value = pos.MarketValue.Mul(rate)
	}

	return domain.PositionExposure{
		Position:           pos,
		InstrumentType:     domain.InstrumentType(instrumentType),
		ReferenceCurrency:  referenceCurrency,
		ValueInRefCurrency: value,
	}, nil
}

// buildReport groups valued positions by instrument type and by native
// currency, computes totals and percentage shares, and applies the final
// 2-decimal presentation rounding
func buildReport(portfolioID, referenceCurrency string, exposures []domain.PositionExposure) *domain.ExposureReport {
	groupTotals := make(map[domain.InstrumentType]decimal.Decimal)
	groupPositions := make(map[domain.InstrumentType][]domain.PositionExposure)
	var firstSeen []domain.InstrumentType

	currencyTotals := make(map[string]decimal.Decimal)
	var currencyOrder []string

	total := decimal.Zero
	for _, exp := range exposures {
		if _, seen := groupTotals[exp.InstrumentType]; !seen {
			firstSeen = append(firstSeen, exp.InstrumentType)
		}
		groupTotals[exp.InstrumentType] = groupTotals[exp.InstrumentType].Add(exp.ValueInRefCurrency)
		groupPositions[exp.InstrumentType] = append(groupPositions[exp.InstrumentType], exp)

		if _, seen := currencyTotals[exp.Currency]; !seen {
			currencyOrder = append(currencyOrder, exp.Currency)
		}
		currencyTotals[exp.Currency] = currencyTotals[exp.Currency].Add(exp.ValueInRefCurrency)

		total = total.Add(exp.ValueInRefCurrency)
	}

	report := &domain.ExposureReport{
		PortfolioID:         portfolioID,
		ReferenceCurrency:   referenceCurrency,
		TotalPortfolioValue: total.Round(2),
		Groups:              []domain.ExposureGroup{},
		CurrencyExposure:    []domain.CurrencyExposure{},
	}

	ordered := orderedTypes(firstSeen)
	percentages := apportionPercentages(ordered, groupTotals, total)
	for _, instrumentType := range ordered {
		positions := groupPositions[instrumentType]
		for i := range positions {
			positions[i].ValueInRefCurrency = positions[i].ValueInRefCurrency.Round(2)
		}
		report.Groups = append(report.Groups, domain.ExposureGroup{
			InstrumentType: instrumentType,
			TotalValue:     groupTotals[instrumentType].Round(2),
			Percentage:     percentages[instrumentType],
			Positions:      positions,
		})
	}

	for _, currency := range currencyOrder {
		report.CurrencyExposure = append(report.CurrencyExposure, domain.CurrencyExposure{
			Currency: currency,
			Value:    currencyTotals[currency].Round(2),
		})
	}

	return report
}

// apportionPercentages computes each group's share of the total in percent,
// rounded to 2 decimals such that the rounded shares sum to exactly 100.
// Largest-remainder apportionment: every share is truncated first, then the
// leftover hundredths go to the shares whose truncated remainders are
// largest. A zero total yields all-zero shares.
func apportionPercentages(ordered []domain.InstrumentType, groupTotals map[domain.InstrumentType]decimal.Decimal, total decimal.Decimal) map[domain.InstrumentType]decimal.Decimal {
	percentages := make(map[domain.InstrumentType]decimal.Decimal, len(ordered))
	if total.Sign() == 0 {
		for _, t := range ordered {
			percentages[t] = decimal.Zero
		}
		return percentages
	}

	type remainder struct {
		instrumentType domain.InstrumentType
		fraction       decimal.Decimal
	}
	remainders := make([]remainder, 0, len(ordered))
	truncatedSum := decimal.Zero
	for _, t := range ordered {
		raw := groupTotals[t].Div(total).Mul(hundred)
		truncated := raw.RoundDown(2)
		percentages[t] = truncated
		truncatedSum = truncatedSum.Add(truncated)
		remainders = append(remainders, remainder{instrumentType: t, fraction: raw.Sub(truncated)})
	}

	// Stable sort keeps canonical group order as the tie-breaker
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].fraction.GreaterThan(remainders[j].fraction)
	})

	hundredth := decimal.New(1, -2)
	leftover := hundred.Sub(truncatedSum).Div(hundredth).IntPart()
	for i := int64(0); i < leftover && i < int64(len(remainders)); i++ {
		t := remainders[i].instrumentType
		percentages[t] = percentages[t].Add(hundredth)
	}
	return percentages
}

// orderedTypes arranges the present instrument types in canonical display
// order, then any unrecognised types in first-seen order
func orderedTypes(firstSeen []domain.InstrumentType) []domain.InstrumentType {
	present := make(map[domain.InstrumentType]bool, len(firstSeen))
	for _, t := range firstSeen {
		present[t] = true
	}
	canonical := make(map[domain.InstrumentType]bool, len(domain.CanonicalTypeOrder))

	var ordered []domain.InstrumentType
	for _, t := range domain.CanonicalTypeOrder {
		canonical[t] = true
		if present[t] {
			ordered = append(ordered, t)
		}
	}
	for _, t := range firstSeen {
		if !canonical[t] {
			ordered = append(ordered, t)
		}
	}
	return ordered
}
