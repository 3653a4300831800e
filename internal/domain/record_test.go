package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalString(t *testing.T) {
	date := time.Date(2031, 6, 15, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name     string
		value    any
		expected string
		set      bool
	}{
		{"nil is unset", nil, "", false},
		{"string passes through", "AAA", "AAA", true},
		{"empty string is set", "", "", true},
		{"bool true", true, "true", true},
		{"bool false", false, "false", true},
		{"decimal", decimal.RequireFromString("2.50"), "2.5", true},
		{"date drops time of day", date, "2031-06-15", true},
		{"int", 1000, "1000", true},
		{"int64", int64(1000), "1000", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, set := CanonicalString(tc.value)
			assert.Equal(t, tc.set, set)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestEntityKind_FieldSet(t *testing.T) {
	assert.True(t, KindPartner.Valid())
	assert.True(t, KindInstrument.Valid())
	assert.True(t, KindPortfolio.Valid())
	assert.False(t, EntityKind("trade").Valid())
	assert.Nil(t, EntityKind("trade").FieldSet())

	// All kinds expose id and name; kind-specific fields stay separate
	for _, kind := range []EntityKind{KindPartner, KindInstrument, KindPortfolio} {
		fields := kind.FieldSet()
		assert.Contains(t, fields, "id")
		assert.Contains(t, fields, "name")
	}
	assert.Contains(t, KindPartner.FieldSet(), "pep_flag")
	assert.NotContains(t, KindPartner.FieldSet(), "isin")
	assert.Contains(t, KindInstrument.FieldSet(), "isin")
	assert.NotContains(t, KindInstrument.FieldSet(), "pep_flag")
	assert.Contains(t, KindPortfolio.FieldSet(), "owner_id")
	assert.NotContains(t, KindPortfolio.FieldSet(), "positions")
}

func TestPortfolio_RecordCoversOnlySearchableFields(t *testing.T) {
	portfolio := &Portfolio{
		ID:        "port-1",
		OwnerID:   "p-1",
		Name:      "Growth",
		Currency:  "CHF",
		CreatedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Positions: []Position{{InstrumentID: "i-1", Quantity: decimal.NewFromInt(1), MarketValue: decimal.NewFromInt(100), Currency: "CHF"}},
	}

	rec := portfolio.Record()
	assert.Equal(t, "port-1", rec.ID())
	assert.Equal(t, "p-1", rec["owner_id"])

	for field := range rec {
		assert.Contains(t, KindPortfolio.FieldSet(), field)
	}
}

func TestInstrument_RecordLeavesInapplicableFieldsUnset(t *testing.T) {
	coupon := decimal.RequireFromString("2.5")
	maturity := time.Date(2031, 6, 15, 0, 0, 0, 0, time.UTC)
	bond := &Instrument{
		ID:           "i-1",
		ISIN:         "CH0012345678",
		Name:         "CH Gov Bond 2031",
		Issuer:       "Swiss Confederation",
		Currency:     "CHF",
		Country:      "CH",
		IssueDate:    time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC),
		MaturityDate: &maturity,
		Rating:       "AAA",
		Type:         InstrumentTypeBond,
		Coupon:       &coupon,
	}

	rec := bond.Record()
	assert.Equal(t, "i-1", rec.ID())
	assert.Equal(t, "bond", rec["type"])
	assert.Equal(t, coupon, rec["coupon"])
	assert.Equal(t, maturity, rec["maturity_date"])

	// Equity/ETF-only fields stay unset on a bond
	for _, field := range []string{"exchange", "sector", "index_tracked", "total_expense_ratio", "barrier_level", "capital_protection"} {
		value, set := CanonicalString(rec[field])
		assert.False(t, set, "field %s should be unset, got %q", field, value)
	}

	// Every emitted field must be part of the instrument field set
	for field := range rec {
		assert.Contains(t, KindInstrument.FieldSet(), field)
	}
}

func TestPartner_RecordCanonicalBooleans(t *testing.T) {
	pep := true
	screened := false
	partner := &Partner{
		ID:                "p-1",
		PartnerType:       PartnerTypeIndividual,
		Name:              "Alice Meier",
		ResidencyCountry:  "CH",
		PEPFlag:           &pep,
		SanctionsScreened: &screened,
		CreatedAt:         time.Now(),
	}

	rec := partner.Record()
	require.Equal(t, "p-1", rec.ID())

	value, set := CanonicalString(rec["pep_flag"])
	require.True(t, set)
	assert.Equal(t, "true", value)

	value, set = CanonicalString(rec["sanctions_screened"])
	require.True(t, set)
	assert.Equal(t, "false", value)

	for field := range rec {
		assert.Contains(t, KindPartner.FieldSet(), field)
	}
}
