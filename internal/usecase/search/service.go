package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dfranco/finref-backend/internal/domain"
)

// maxSuggestions caps autocomplete result lists
const maxSuggestions = 10

// Service compiles and runs record searches against the record store
type Service struct {
	store  domain.RecordStore
	logger *zap.Logger
}

// NewService creates a new search Service instance
func NewService(store domain.RecordStore, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// PartnerSuggestion is one autocomplete hit for a partner name prefix
type PartnerSuggestion struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ResidencyCountry string `json:"residency_country,omitempty"`
	Nationality      string `json:"nationality,omitempty"`
}

// InstrumentSuggestion is one autocomplete hit for an instrument name or
// ISIN prefix
type InstrumentSuggestion struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ISIN     string `json:"isin"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

// Search finds records of a kind by filter expression or exact id.
//
// When id is non-empty the query is ignored and at most one record is
// returned; an unknown id yields an empty result, not an error. Otherwise
// the query is parsed and evaluated against a full scan of the kind; an
// empty query is equivalent to "name:*". Zero matches is a success with an
// empty slice.
func (s *Service) Search(ctx context.Context, kind domain.EntityKind, query, id string) ([]domain.Record, error) {
	if !kind.Valid() {
		return nil, domain.ErrUnknownKind
	}

	if id != "" {
		rec, err := s.store.Fetch(ctx, kind, id)
		if err != nil {
			var notFound *domain.NotFoundError
			if errors.As(err, &notFound) {
				return []domain.Record{}, nil
			}
			return nil, pkgerrors.Wrapf(err, "fetch %s %q", kind, id)
		}
		return []domain.Record{rec}, nil
	}

	expr := strings.TrimSpace(query)
	if expr == "" {
		expr = "name:*"
	}
	pred, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	src, err := s.store.Scan(ctx, kind)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "scan %s", kind)
	}
	defer src.Close()

	matches, err := Evaluate(ctx, pred, kind, src)
	if err != nil {
		return nil, err
	}

	results := []domain.Record{}
	for rec, ok := matches.Next(); ok; rec, ok = matches.Next() {
		results = append(results, rec)
	}
	if err := matches.Err(); err != nil {
		return nil, pkgerrors.Wrapf(err, "evaluate query %q against %s", expr, kind)
	}

	s.logger.Debug("search completed",
		zap.String("kind", string(kind)),
		zap.String("query", expr),
		zap.Int("matches", len(results)))

	return results, nil
}

// AutocompletePartnerName returns up to 10 partners whose name starts with
// the given prefix, case-insensitively
func (s *Service) AutocompletePartnerName(ctx context.Context, prefix string) ([]PartnerSuggestion, error) {
	suggestions := []PartnerSuggestion{}
	err := s.suggest(ctx, domain.KindPartner, prefix, []string{"name"}, func(rec domain.Record) {
		suggestions = append(suggestions, PartnerSuggestion{
			ID:               rec.ID(),
			Name:             stringField(rec, "name"),
			ResidencyCountry: stringField(rec, "residency_country"),
			Nationality:      stringField(rec, "nationality"),
		})
	})
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// AutocompleteInstrumentName returns up to 10 instruments whose name or
// ISIN starts with the given prefix, case-insensitively
func (s *Service) AutocompleteInstrumentName(ctx context.Context, prefix string) ([]InstrumentSuggestion, error) {
	suggestions := []InstrumentSuggestion{}
	err := s.suggest(ctx, domain.KindInstrument, prefix, []string{"name", "isin"}, func(rec domain.Record) {
		suggestions = append(suggestions, InstrumentSuggestion{
			ID:       rec.ID(),
			Name:     stringField(rec, "name"),
			ISIN:     stringField(rec, "isin"),
			Type:     stringField(rec, "type"),
			Currency: stringField(rec, "currency"),
		})
	})
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// suggest scans the kind and invokes emit for the first maxSuggestions
// records where any of the given fields starts with the prefix
func (s *Service) suggest(ctx context.Context, kind domain.EntityKind, prefix string, fields []string, emit func(domain.Record)) error {
	src, err := s.store.Scan(ctx, kind)
	if err != nil {
		return pkgerrors.Wrapf(err, "scan %s", kind)
	}
	defer src.Close()

	lowered := strings.ToLower(strings.TrimSpace(prefix))
	count := 0
	for count < maxSuggestions {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, ok := src.Next()
		if !ok {
			break
		}
		for _, field := range fields {
			value, set := domain.CanonicalString(rec[field])
			if set && strings.HasPrefix(strings.ToLower(value), lowered) {
				emit(rec)
				count++
				break
			}
		}
	}
	return pkgerrors.Wrapf(src.Err(), "scan %s", kind)
}

// SearchPortfolios finds portfolios by filter expression or exact id.
//
// Mirrors Search: a non-empty id wins over the query and an unknown id
// yields an empty result, not an error. The query matches the portfolio
// header fields (id, owner_id, name, currency, created_at); an empty query
// matches every portfolio. Positions ride along untouched.
func (s *Service) SearchPortfolios(ctx context.Context, query, id string) ([]*domain.Portfolio, error) {
	if id != "" {
		portfolio, err := s.store.GetPortfolio(ctx, id)
		if err != nil {
			var notFound *domain.NotFoundError
			if errors.As(err, &notFound) {
				return []*domain.Portfolio{}, nil
			}
			return nil, pkgerrors.Wrapf(err, "fetch portfolio %q", id)
		}
		return []*domain.Portfolio{portfolio}, nil
	}

	expr := strings.TrimSpace(query)
	if expr == "" {
		expr = "name:*"
	}
	pred, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	if err := validateFields(pred, domain.KindPortfolio); err != nil {
		return nil, err
	}

	portfolios, err := s.store.ScanPortfolios(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "scan portfolios")
	}

	matches := []*domain.Portfolio{}
	for _, pf := range portfolios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pred.Match(pf.Record()) {
			matches = append(matches, pf)
		}
	}

	s.logger.Debug("portfolio search completed",
		zap.String("query", expr),
		zap.Int("matches", len(matches)))

	return matches, nil
}

// CountryValue is one bucket of the partner country facet
type CountryValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// maxFacetValues caps the country facet bucket list
const maxFacetValues = 100

// facetFields are the partner fields the country facet may group by
var facetFields = map[string]bool{
	"nationality":       true,
	"residency_country": true,
}

// UniqueCountryValues returns the distinct values of one partner country
// field together with the number of partners carrying each, most frequent
// first (ties by value). field must be "nationality" or
// "residency_country"; anything else fails with *domain.UnknownFieldError.
// An optional filter of the form "other_field:value" restricts the counted
// partners to those matching it exactly; a filter naming any other field is
// ignored. Partners with the faceted field unset are skipped.
func (s *Service) UniqueCountryValues(ctx context.Context, field, filter string) ([]CountryValue, error) {
	if !facetFields[field] {
		return nil, &domain.UnknownFieldError{Kind: domain.KindPartner, Field: field}
	}

	filterField, filterValue, hasFilter := strings.Cut(filter, ":")
	hasFilter = hasFilter && facetFields[filterField] && filterField != field

	src, err := s.store.Scan(ctx, domain.KindPartner)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "scan partners")
	}
	defer src.Close()

	counts := make(map[string]int)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, ok := src.Next()
		if !ok {
			break
		}
		if hasFilter {
			value, set := domain.CanonicalString(rec[filterField])
			if !set || value != filterValue {
				continue
			}
		}
		value, set := domain.CanonicalString(rec[field])
		if !set {
			continue
		}
		counts[value]++
	}
	if err := src.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "scan partners")
	}

	values := make([]CountryValue, 0, len(counts))
	for value, count := range counts {
		values = append(values, CountryValue{Value: value, Count: count})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	if len(values) > maxFacetValues {
		values = values[:maxFacetValues]
	}
	return values, nil
}

// PortfoliosByInstrument returns every portfolio holding the instrument,
// with the position list trimmed to the positions referencing it
func (s *Service) PortfoliosByInstrument(ctx context.Context, instrumentID string) ([]*domain.Portfolio, error) {
	portfolios, err := s.store.ScanPortfolios(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "scan portfolios")
	}

	holding := []*domain.Portfolio{}
	for _, pf := range portfolios {
		var matching []domain.Position
		for _, pos := range pf.Positions {
			if pos.InstrumentID == instrumentID {
				matching = append(matching, pos)
			}
		}
		if len(matching) == 0 {
			continue
		}
		trimmed := *pf
		trimmed.Positions = matching
		holding = append(holding, &trimmed)
	}
	return holding, nil
}

func stringField(rec domain.Record, field string) string {
	s, _ := domain.CanonicalString(rec[field])
	return s
}
