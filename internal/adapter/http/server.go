package http

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dfranco/finref-backend/internal/usecase/exposure"
	"github.com/dfranco/finref-backend/internal/usecase/search"
)

// requestIDHeader carries the per-request correlation id
const requestIDHeader = "X-Request-ID"

// Server exposes the search and exposure services over HTTP
type Server struct {
	router   *gin.Engine
	logger   *zap.Logger
	search   *search.Service
	exposure *exposure.Service

	// collaboratorTimeout bounds store/FX work per request; exceeding it
	// surfaces as a timeout error, never a partial result
	collaboratorTimeout time.Duration
	defaultCurrency     string
}

// NewServer creates a new HTTP server instance and registers all routes
func NewServer(
	logger *zap.Logger,
	searchService *search.Service,
	exposureService *exposure.Service,
	collaboratorTimeout time.Duration,
	defaultCurrency string,
) *Server {
	s := &Server{
		logger:              logger,
		search:              searchService,
		exposure:            exposureService,
		collaboratorTimeout: collaboratorTimeout,
		defaultCurrency:     defaultCurrency,
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", s.health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/partners/search", s.searchPartners)
		v1.GET("/partners/autocomplete", s.autocompletePartners)
		v1.GET("/partners/countries", s.partnerCountries)
		v1.GET("/instruments/search", s.searchInstruments)
		v1.GET("/instruments/autocomplete", s.autocompleteInstruments)
		v1.GET("/instruments/:id/portfolios", s.portfoliosByInstrument)
		v1.GET("/portfolios/search", s.searchPortfolios)
		v1.GET("/portfolios/:id/exposure", s.portfolioExposure)
	}

	s.router = router
	return s
}

// Router returns the underlying gin engine, ready to serve
func (s *Server) Router() *gin.Engine {
	return s.router
}

// requestID assigns a correlation id to every request, reusing one the
// client already supplied
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
