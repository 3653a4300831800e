package postgres

import (
	"context"
	"database/sql"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dfranco/finref-backend/internal/domain"
)

// recordStore implements domain.RecordStore
type recordStore struct {
	db *DB
}

// NewRecordStore creates a new Postgres-backed record store
func NewRecordStore(db *DB) domain.RecordStore {
	return &recordStore{db: db}
}

const partnerColumns = `
	id, partner_type, name, birth_date, incorporation_date,
	residency_country, tax_id, nationality, legal_entity_type,
	kyc_status, risk_level, account_type, pep_flag, sanctions_screened,
	created_at
`

const instrumentColumns = `
	id, isin, name, issuer, currency, country, issue_date, maturity_date,
	rating, type, exchange, sector, coupon, face_value, index_tracked,
	total_expense_ratio, barrier_level, capital_protection
`

// Fetch retrieves a single record by id
func (r *recordStore) Fetch(ctx context.Context, kind domain.EntityKind, id string) (domain.Record, error) {
	var (
		rec domain.Record
		err error
	)
	switch kind {
	case domain.KindPartner:
		row := r.db.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id)
		rec, err = scanPartner(row)
	case domain.KindInstrument:
		row := r.db.QueryRowContext(ctx, `SELECT `+instrumentColumns+` FROM instruments WHERE id = $1`, id)
		rec, err = scanInstrument(row)
	default:
		return nil, domain.ErrUnknownKind
	}
	if err != nil {
		if pkgerrors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: string(kind), ID: id}
		}
		return nil, wrapErr(err, "fetch %s %q", kind, id)
	}
	return rec, nil
}

// Scan streams all records of a kind ordered by id. The returned iterator
// is backed by the live result set, so rows are pulled lazily and an early
// Close stops the query.
func (r *recordStore) Scan(ctx context.Context, kind domain.EntityKind) (domain.RecordIterator, error) {
	var (
		query string
		build func(scanner) (domain.Record, error)
	)
	switch kind {
	case domain.KindPartner:
		query = `SELECT ` + partnerColumns + ` FROM partners ORDER BY id`
		build = scanPartner
	case domain.KindInstrument:
		query = `SELECT ` + instrumentColumns + ` FROM instruments ORDER BY id`
		build = scanInstrument
	default:
		return nil, domain.ErrUnknownKind
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr(err, "scan %s", kind)
	}
	return &rowsIterator{rows: rows, build: build}, nil
}

// GetPortfolio retrieves a portfolio with its positions
func (r *recordStore) GetPortfolio(ctx context.Context, id string) (*domain.Portfolio, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, currency, created_at
		FROM portfolios
		WHERE id = $1
	`, id)

	portfolio, err := scanPortfolio(row)
	if err != nil {
		if pkgerrors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: "portfolio", ID: id}
		}
		return nil, wrapErr(err, "get portfolio %q", id)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT instrument_id, quantity, market_value, currency
		FROM positions
		WHERE portfolio_id = $1
		ORDER BY instrument_id
	`, id)
	if err != nil {
		return nil, wrapErr(err, "get positions of portfolio %q", id)
	}
	defer rows.Close()

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, wrapErr(err, "get positions of portfolio %q", id)
		}
		portfolio.Positions = append(portfolio.Positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "get positions of portfolio %q", id)
	}
	return portfolio, nil
}

// ScanPortfolios retrieves all portfolios with their positions
func (r *recordStore) ScanPortfolios(ctx context.Context) ([]*domain.Portfolio, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, currency, created_at
		FROM portfolios
		ORDER BY id
	`)
	if err != nil {
		return nil, wrapErr(err, "scan portfolios")
	}
	defer rows.Close()

	var portfolios []*domain.Portfolio
	byID := make(map[string]*domain.Portfolio)
	for rows.Next() {
		portfolio, err := scanPortfolio(rows)
		if err != nil {
			return nil, wrapErr(err, "scan portfolios")
		}
		portfolios = append(portfolios, portfolio)
		byID[portfolio.ID] = portfolio
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "scan portfolios")
	}

	posRows, err := r.db.QueryContext(ctx, `
		SELECT portfolio_id, instrument_id, quantity, market_value, currency
		FROM positions
		ORDER BY portfolio_id, instrument_id
	`)
	if err != nil {
		return nil, wrapErr(err, "scan positions")
	}
	defer posRows.Close()

	for posRows.Next() {
		var portfolioID string
		var instrumentID, currency string
		var quantityStr, marketValueStr string
		if err := posRows.Scan(&portfolioID, &instrumentID, &quantityStr, &marketValueStr, &currency); err != nil {
			return nil, wrapErr(err, "scan positions")
		}
		pos, err := buildPosition(instrumentID, quantityStr, marketValueStr, currency)
		if err != nil {
			return nil, wrapErr(err, "scan positions")
		}
		if portfolio, ok := byID[portfolioID]; ok {
			portfolio.Positions = append(portfolio.Positions, pos)
		}
	}
	if err := posRows.Err(); err != nil {
		return nil, wrapErr(err, "scan positions")
	}
	return portfolios, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the row builders
type scanner interface {
	Scan(dest ...any) error
}

// rowsIterator adapts sql.Rows to domain.RecordIterator
type rowsIterator struct {
	rows  *sql.Rows
	build func(scanner) (domain.Record, error)
	err   error
}

func (it *rowsIterator) Next() (domain.Record, bool) {
	if it.err != nil {
		return nil, false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return nil, false
	}
	rec, err := it.build(it.rows)
	if err != nil {
		it.err = err
		return nil, false
	}
	return rec, true
}

func (it *rowsIterator) Err() error {
	return it.err
}

func (it *rowsIterator) Close() error {
	return it.rows.Close()
}

func scanPartner(s scanner) (domain.Record, error) {
	var p domain.Partner
	var partnerType string
	var residencyCountry, taxID sql.NullString
	var nationality, legalEntityType, kycStatus, riskLevel, accountType sql.NullString
	var pepFlag, sanctionsScreened sql.NullBool
	var birthTime, incorporationTime sql.NullTime

	err := s.Scan(
		&p.ID,
		&partnerType,
		&p.Name,
		&birthTime,
		&incorporationTime,
		&residencyCountry,
		&taxID,
		&nationality,
		&legalEntityType,
		&kycStatus,
		&riskLevel,
		&accountType,
		&pepFlag,
		&sanctionsScreened,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PartnerType = domain.PartnerType(partnerType)
	if birthTime.Valid {
		t := birthTime.Time
		p.BirthDate = &t
	}
	if incorporationTime.Valid {
		t := incorporationTime.Time
		p.IncorporationDate = &t
	}
	p.ResidencyCountry = residencyCountry.String
	p.TaxID = taxID.String
	p.Nationality = nationality.String
	p.LegalEntityType = legalEntityType.String
	p.KYCStatus = kycStatus.String
	p.RiskLevel = riskLevel.String
	p.AccountType = accountType.String
	if pepFlag.Valid {
		v := pepFlag.Bool
		p.PEPFlag = &v
	}
	if sanctionsScreened.Valid {
		v := sanctionsScreened.Bool
		p.SanctionsScreened = &v
	}
	return p.Record(), nil
}

func scanInstrument(s scanner) (domain.Record, error) {
	var i domain.Instrument
	var instrumentType string
	var maturityDate sql.NullTime
	var exchange, sector, indexTracked sql.NullString
	var coupon, totalExpenseRatio, barrierLevel sql.NullString
	var faceValue sql.NullInt64
	var capitalProtection sql.NullBool

	err := s.Scan(
		&i.ID,
		&i.ISIN,
		&i.Name,
		&i.Issuer,
		&i.Currency,
		&i.Country,
		&i.IssueDate,
		&maturityDate,
		&i.Rating,
		&instrumentType,
		&exchange,
		&sector,
		&coupon,
		&faceValue,
		&indexTracked,
		&totalExpenseRatio,
		&barrierLevel,
		&capitalProtection,
	)
	if err != nil {
		return nil, err
	}

	i.Type = domain.InstrumentType(instrumentType)
	if maturityDate.Valid {
		t := maturityDate.Time
		i.MaturityDate = &t
	}
	i.Exchange = exchange.String
	i.Sector = sector.String
	i.IndexTracked = indexTracked.String
	if coupon.Valid {
		d, err := decimal.NewFromString(coupon.String)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "parse coupon")
		}
		i.Coupon = &d
	}
	if faceValue.Valid {
		v := faceValue.Int64
		i.FaceValue = &v
	}
	if totalExpenseRatio.Valid {
		d, err := decimal.NewFromString(totalExpenseRatio.String)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "parse total_expense_ratio")
		}
		i.TotalExpenseRatio = &d
	}
	if barrierLevel.Valid {
		d, err := decimal.NewFromString(barrierLevel.String)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "parse barrier_level")
		}
		i.BarrierLevel = &d
	}
	if capitalProtection.Valid {
		v := capitalProtection.Bool
		i.CapitalProtection = &v
	}
	return i.Record(), nil
}

func scanPortfolio(s scanner) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var createdAt time.Time
	if err := s.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Currency, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt
	return &p, nil
}

func scanPosition(s scanner) (domain.Position, error) {
	var instrumentID, currency string
	var quantityStr, marketValueStr string
	if err := s.Scan(&instrumentID, &quantityStr, &marketValueStr, &currency); err != nil {
		return domain.Position{}, err
	}
	return buildPosition(instrumentID, quantityStr, marketValueStr, currency)
}

// buildPosition parses the DECIMAL columns, which database/sql hands over
// as strings
func buildPosition(instrumentID, quantityStr, marketValueStr, currency string) (domain.Position, error) {
	quantity, err := decimal.NewFromString(quantityStr)
	if err != nil {
		return domain.Position{}, pkgerrors.Wrap(err, "parse quantity")
	}
	marketValue, err := decimal.NewFromString(marketValueStr)
	if err != nil {
		return domain.Position{}, pkgerrors.Wrap(err, "parse market_value")
	}
	return domain.Position{
		InstrumentID: instrumentID,
		Quantity:     quantity,
		MarketValue:  marketValue,
		Currency:     currency,
	}, nil
}
