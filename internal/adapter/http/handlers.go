package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dfranco/finref-backend/internal/domain"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) searchPartners(c *gin.Context) {
	s.handleSearch(c, domain.KindPartner)
}

func (s *Server) searchInstruments(c *gin.Context) {
	s.handleSearch(c, domain.KindInstrument)
}

func (s *Server) handleSearch(c *gin.Context, kind domain.EntityKind) {
	ctx, cancel := s.boundedContext(c)
	defer cancel()

	records, err := s.search.Search(ctx, kind, c.Query("query"), c.Query("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}

func (s *Server) autocompletePartners(c *gin.Context) {
	prefix := c.Query("query")
	if prefix == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}

	ctx, cancel := s.boundedContext(c)
	defer cancel()

	suggestions, err := s.search.AutocompletePartnerName(ctx, prefix)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (s *Server) autocompleteInstruments(c *gin.Context) {
	prefix := c.Query("query")
	if prefix == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}

	ctx, cancel := s.boundedContext(c)
	defer cancel()

	suggestions, err := s.search.AutocompleteInstrumentName(ctx, prefix)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (s *Server) searchPortfolios(c *gin.Context) {
	ctx, cancel := s.boundedContext(c)
	defer cancel()

	portfolios, err := s.search.SearchPortfolios(ctx, c.Query("query"), c.Query("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": portfolios})
}

func (s *Server) partnerCountries(c *gin.Context) {
	field := c.Query("field")
	if field == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field parameter is required"})
		return
	}

	ctx, cancel := s.boundedContext(c)
	defer cancel()

	values, err := s.search.UniqueCountryValues(ctx, field, c.Query("filter"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

func (s *Server) portfoliosByInstrument(c *gin.Context) {
	ctx, cancel := s.boundedContext(c)
	defer cancel()

	portfolios, err := s.search.PortfoliosByInstrument(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolios": portfolios})
}

func (s *Server) portfolioExposure(c *gin.Context) {
	ctx, cancel := s.boundedContext(c)
	defer cancel()

	reference := c.DefaultQuery("reference_currency", s.defaultCurrency)
	report, err := s.exposure.Aggregate(ctx, c.Param("id"), reference)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// boundedContext derives the request context with the collaborator deadline
func (s *Server) boundedContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.collaboratorTimeout)
}

// writeError maps domain errors to HTTP statuses. Recoverable caller
// mistakes map to 4xx; store corruption and unexpected failures map to 5xx
// and are logged; deadline overruns map to 504.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		syntaxErr      *domain.SyntaxError
		unknownField   *domain.UnknownFieldError
		notFound       *domain.NotFoundError
		badCurrency    *domain.UnsupportedCurrencyError
		missingRate    *domain.MissingRateError
		integrityError *domain.IntegrityError
	)

	switch {
	case errors.As(err, &syntaxErr),
		errors.As(err, &unknownField),
		errors.As(err, &badCurrency),
		errors.Is(err, domain.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &missingRate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("collaborator deadline exceeded",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "collaborator call timed out"})
	case errors.As(err, &integrityError):
		s.logger.Error("record store integrity violation",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
