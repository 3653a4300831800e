package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dfranco/finref-backend/internal/domain"
	"github.com/dfranco/finref-backend/internal/usecase/exposure"
	"github.com/dfranco/finref-backend/internal/usecase/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockRecordStore is a mock implementation of RecordStore for testing
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Fetch(ctx context.Context, kind domain.EntityKind, id string) (domain.Record, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Record), args.Error(1)
}

func (m *MockRecordStore) Scan(ctx context.Context, kind domain.EntityKind) (domain.RecordIterator, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RecordIterator), args.Error(1)
}

func (m *MockRecordStore) GetPortfolio(ctx context.Context, id string) (*domain.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockRecordStore) ScanPortfolios(ctx context.Context) ([]*domain.Portfolio, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Portfolio), args.Error(1)
}

// MockFxRateProvider is a mock implementation of FxRateProvider for testing
type MockFxRateProvider struct {
	mock.Mock
}

func (m *MockFxRateProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// sliceIterator is a RecordIterator over an in-memory slice
type sliceIterator struct {
	records []domain.Record
	pos     int
}

func (it *sliceIterator) Next() (domain.Record, bool) {
	if it.pos >= len(it.records) {
		return nil, false
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, true
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }

func newTestServer(store *MockRecordStore, fx *MockFxRateProvider) *Server {
	logger := zap.NewNop()
	return NewServer(
		logger,
		search.NewService(store, logger),
		exposure.NewService(store, fx, logger),
		time.Second,
		"CHF",
	)
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthz(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))
	resp := doRequest(server, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSearchPartners_ReturnsMatches(t *testing.T) {
	store := new(MockRecordStore)
	fx := new(MockFxRateProvider)
	server := newTestServer(store, fx)

	records := []domain.Record{
		{"id": "p-1", "name": "Julius Baer"},
		{"id": "p-2", "name": "Goldman Sachs"},
	}
	store.On("Scan", mock.Anything, domain.KindPartner).Return(&sliceIterator{records: records}, nil)

	resp := doRequest(server, http.MethodGet, "/api/v1/partners/search?query=name%3AJ%2A")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "p-1", body.Results[0]["id"])
}

func TestSearchPartners_MalformedQueryIs400(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))

	resp := doRequest(server, http.MethodGet, "/api/v1/partners/search?query=name%3AUBS+AND")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "syntax error")
}

func TestSearchInstruments_UnknownFieldIs400(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))

	resp := doRequest(server, http.MethodGet, "/api/v1/instruments/search?query=pep_flag%3Atrue")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "unknown field")
}

func TestAutocomplete_RequiresQuery(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))

	resp := doRequest(server, http.MethodGet, "/api/v1/partners/autocomplete")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAutocompleteInstruments_ReturnsSuggestions(t *testing.T) {
	store := new(MockRecordStore)
	server := newTestServer(store, new(MockFxRateProvider))

	records := []domain.Record{
		{"id": "i-1", "name": "CH Gov Bond 2031", "isin": "CH0012345678", "type": "bond", "currency": "CHF"},
	}
	store.On("Scan", mock.Anything, domain.KindInstrument).Return(&sliceIterator{records: records}, nil)

	resp := doRequest(server, http.MethodGet, "/api/v1/instruments/autocomplete?query=CH+Gov")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Suggestions []search.InstrumentSuggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "CH0012345678", body.Suggestions[0].ISIN)
}

func TestPortfolioExposure_ReturnsReport(t *testing.T) {
	store := new(MockRecordStore)
	fx := new(MockFxRateProvider)
	server := newTestServer(store, fx)

	store.On("GetPortfolio", mock.Anything, "port-1").Return(&domain.Portfolio{
		ID: "port-1",
		Positions: []domain.Position{{
			InstrumentID: "i-1",
			Quantity:     decimal.NewFromInt(100),
			MarketValue:  decimal.NewFromInt(1000),
			Currency:     "USD",
		}},
	}, nil)
	store.On("Fetch", mock.Anything, domain.KindInstrument, "i-1").
		Return(domain.Record{"id": "i-1", "type": "share"}, nil)

	resp := doRequest(server, http.MethodGet, "/api/v1/portfolios/port-1/exposure?reference_currency=USD")
	require.Equal(t, http.StatusOK, resp.Code)

	var report domain.ExposureReport
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	assert.Equal(t, "port-1", report.PortfolioID)
	assert.Equal(t, "USD", report.ReferenceCurrency)
	require.Len(t, report.Groups, 1)
	assert.True(t, report.Groups[0].TotalValue.Equal(decimal.NewFromInt(1000)))
	fx.AssertNotCalled(t, "Rate", mock.Anything, mock.Anything, mock.Anything)
}

func TestPortfolioExposure_DefaultsToConfiguredCurrency(t *testing.T) {
	store := new(MockRecordStore)
	server := newTestServer(store, new(MockFxRateProvider))

	store.On("GetPortfolio", mock.Anything, "port-1").Return(&domain.Portfolio{ID: "port-1"}, nil)

	resp := doRequest(server, http.MethodGet, "/api/v1/portfolios/port-1/exposure")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"reference_currency":"CHF"`)
}

func TestPortfolioExposure_UnknownPortfolioIs404(t *testing.T) {
	store := new(MockRecordStore)
	server := newTestServer(store, new(MockFxRateProvider))

	store.On("GetPortfolio", mock.Anything, "port-404").
		Return(nil, &domain.NotFoundError{Kind: "portfolio", ID: "port-404"})

	resp := doRequest(server, http.MethodGet, "/api/v1/portfolios/port-404/exposure")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPortfolioExposure_UnsupportedCurrencyIs400(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))

	resp := doRequest(server, http.MethodGet, "/api/v1/portfolios/port-1/exposure?reference_currency=SPACEBUCKS")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPortfolioExposure_MissingRateIs422(t *testing.T) {
	store := new(MockRecordStore)
	fx := new(MockFxRateProvider)
	server := newTestServer(store, fx)

	store.On("GetPortfolio", mock.Anything, "port-1").Return(&domain.Portfolio{
		ID: "port-1",
		Positions: []domain.Position{{
			InstrumentID: "i-1",
			Quantity:     decimal.NewFromInt(1),
			MarketValue:  decimal.NewFromInt(100),
			Currency:     "NOK",
		}},
	}, nil)
	store.On("Fetch", mock.Anything, domain.KindInstrument, "i-1").
		Return(domain.Record{"id": "i-1", "type": "share"}, nil)
	fx.On("Rate", mock.Anything, "NOK", "CHF").
		Return(decimal.Decimal{}, &domain.MissingRateError{From: "NOK", To: "CHF"})

	resp := doRequest(server, http.MethodGet, "/api/v1/portfolios/port-1/exposure")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestPortfolioExposure_IntegrityViolationIs500(t *testing.T) {
	store := new(MockRecordStore)
	server := newTestServer(store, new(MockFxRateProvider))

	store.On("GetPortfolio", mock.Anything, "port-1").Return(&domain.Portfolio{
		ID: "port-1",
		Positions: []domain.Position{{
			InstrumentID: "i-gone",
			Quantity:     decimal.NewFromInt(1),
			MarketValue:  decimal.NewFromInt(100),
			Currency:     "CHF",
		}},
	}, nil)
	store.On("Fetch", mock.Anything, domain.KindInstrument, "i-gone").
		Return(nil, &domain.NotFoundError{Kind: "instrument", ID: "i-gone"})

	resp := doRequest(server, http.MethodGet, "/api/v1/portfolios/port-1/exposure")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestSearchPortfolios_ReturnsMatches(t *testing.T) {
	store := new(MockRecordStore)
	server := newTestServer(store, new(MockFxRateProvider))

	portfolios := []*domain.Portfolio{
		{ID: "port-1", OwnerID: "p-1", Name: "Growth", Currency: "CHF"},
		{ID: "port-2", OwnerID: "p-2", Name: "Income", Currency: "USD"},
	}
	store.On("ScanPortfolios", mock.Anything).Return(portfolios, nil)

	resp := doRequest(server, http.MethodGet, "/api/v1/portfolios/search?query=currency%3AUSD")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Results []domain.Portfolio `json:"results"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "port-2", body.Results[0].ID)
}

func TestSearchPortfolios_NonPortfolioFieldIs400(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))

	resp := doRequest(server, http.MethodGet, "/api/v1/portfolios/search?query=isin%3ACH%2A")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "unknown field")
}

func TestPartnerCountries_ReturnsCounts(t *testing.T) {
	store := new(MockRecordStore)
	server := newTestServer(store, new(MockFxRateProvider))

	records := []domain.Record{
		{"id": "p-1", "nationality": "CH"},
		{"id": "p-2", "nationality": "CH"},
		{"id": "p-3", "nationality": "DE"},
	}
	store.On("Scan", mock.Anything, domain.KindPartner).Return(&sliceIterator{records: records}, nil)

	resp := doRequest(server, http.MethodGet, "/api/v1/partners/countries?field=nationality")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Values []search.CountryValue `json:"values"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Values, 2)
	assert.Equal(t, search.CountryValue{Value: "CH", Count: 2}, body.Values[0])
}

func TestPartnerCountries_RequiresField(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))

	resp := doRequest(server, http.MethodGet, "/api/v1/partners/countries")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPartnerCountries_NonCountryFieldIs400(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))

	resp := doRequest(server, http.MethodGet, "/api/v1/partners/countries?field=kyc_status")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "unknown field")
}

func TestRequestID_IsAssignedAndEchoed(t *testing.T) {
	server := newTestServer(new(MockRecordStore), new(MockFxRateProvider))

	resp := doRequest(server, http.MethodGet, "/healthz")
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	server.Router().ServeHTTP(recorder, req)
	assert.Equal(t, "req-123", recorder.Header().Get(requestIDHeader))
}
