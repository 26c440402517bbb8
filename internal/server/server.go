package server

import (
	"time"

	"fotobox-crm/config"
	"fotobox-crm/internal/database"
	"fotobox-crm/internal/handlers"
	"fotobox-crm/internal/mail"
	"fotobox-crm/internal/middleware"
	"fotobox-crm/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server represents the HTTP server
type Server struct {
	Router *gin.Engine
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// Handlers
	leadHandler     *handlers.LeadHandler
	offerHandler    *handlers.OfferHandler
	locationHandler *handlers.LocationHandler
	bookingHandler  *handlers.BookingHandler
	settingsHandler *handlers.SettingsHandler
}

// New creates a new server instance
func New(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Server {
	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Mail pipeline
	sender := mail.NewSender(cfg, logger)
	dispatcher := mail.NewDispatcher(db, sender, logger)

	// Domain services
	conversionService := service.NewConversionService(db, dispatcher, cfg, logger)
	offerService := service.NewOfferService(db, logger)

	server := &Server{
		Router:          router,
		config:          cfg,
		logger:          logger,
		db:              db,
		leadHandler:     handlers.NewLeadHandler(db, logger, cfg),
		offerHandler:    handlers.NewOfferHandler(offerService, conversionService, logger),
		locationHandler: handlers.NewLocationHandler(db, logger),
		bookingHandler:  handlers.NewBookingHandler(db, logger),
		settingsHandler: handlers.NewSettingsHandler(cfg),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.Router.Use(middleware.RequestIDMiddleware())
	s.Router.Use(middleware.RecoveryMiddleware(s.logger))
	s.Router.Use(middleware.SecurityHeadersMiddleware())

	s.Router.Use(middleware.CORSMiddleware(
		s.config.CORS.Origins,
		s.config.CORS.Credentials,
	))

	if s.config.IsDevelopment() {
		s.Router.Use(middleware.DetailedLoggingMiddleware(s.logger, false, false))
	} else {
		s.Router.Use(middleware.LoggingMiddleware(s.logger))
	}
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check endpoints
	s.Router.GET("/health", s.healthCheck)
	s.Router.HEAD("/health", s.healthCheck)
	s.Router.GET("/ready", s.readinessCheck)
	s.Router.HEAD("/ready", s.readinessCheck)

	// Swagger documentation
	if s.config.IsDevelopment() {
		s.Router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := s.Router.Group("/api/v1")
	{
		// Lead intake and management
		leads := v1.Group("/leads")
		{
			// The public intake webhook carries its own shared secret and
			// gets a rate limit on top
			intakeLimiter := middleware.NewRateLimit(30, time.Minute)
			leads.POST("", middleware.RateLimitMiddleware(intakeLimiter, s.logger), s.leadHandler.CreateLead)

			leads.GET("/group/:groupId", s.leadHandler.GetGroupLeads)
			leads.GET("/:id", s.leadHandler.GetLead)
			leads.POST("/:id/clone", s.leadHandler.CloneLead)
			leads.POST("/:id/angebot-link", s.offerHandler.IssueOfferLink)
		}

		// Customer-facing offer pages
		offers := v1.Group("/angebot")
		{
			offers.GET("/:token", s.offerHandler.GetOffer)
			offers.POST("/:token/bestaetigen", s.offerHandler.ConfirmOffer)
			offers.POST("/:token/gruppe-bestaetigen", s.offerHandler.ConfirmGroup)
		}

		// Venue locations
		locations := v1.Group("/locations")
		{
			locations.POST("", s.locationHandler.CreateLocation)
			locations.GET("", s.locationHandler.ListLocations)
		}

		// Customer order portal
		orders := v1.Group("/auftrag")
		{
			orders.GET("/:token", s.bookingHandler.GetOrder)
			orders.PATCH("/:token/layout", s.bookingHandler.UpdateLayout)
			orders.PATCH("/:token/rechnung", s.bookingHandler.UpdateInvoiceAddress)
		}

		// Operator settings
		settings := v1.Group("/settings")
		{
			settings.GET("/email", s.settingsHandler.GetEmailSettings)
		}
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
		"service":   "fotobox-crm-api",
	})
}

// readinessCheck handles readiness check requests
// @Summary Readiness check
// @Description Check if the service is ready to serve requests
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (s *Server) readinessCheck(c *gin.Context) {
	if err := database.IsHealthy(); err != nil {
		s.logger.Error("Database health check failed", zap.Error(err))
		c.JSON(503, gin.H{
			"status":    "not ready",
			"timestamp": time.Now().UTC(),
			"error":     "Database connection failed",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
		"service":   "fotobox-crm-api",
		"checks": gin.H{
			"database": "healthy",
		},
	})
}
