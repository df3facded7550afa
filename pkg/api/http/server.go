package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/internal/application/dispatcher"
	"github.com/nexuswealth/mcu/internal/application/ledger"
	"github.com/nexuswealth/mcu/internal/application/registry"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	server     *http.Server
	dispatcher *dispatcher.Dispatcher
	ledger     *ledger.Ledger
	registry   *registry.Registry
	feed       ports.DecisionLog
	search     ports.SearchProvider
	logger     *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port       int
	Dispatcher *dispatcher.Dispatcher
	Ledger     *ledger.Ledger
	Registry   *registry.Registry
	Feed       ports.DecisionLog
	Search     ports.SearchProvider
	Logger     *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:     router,
		dispatcher: cfg.Dispatcher,
		ledger:     cfg.Ledger,
		registry:   cfg.Registry,
		feed:       cfg.Feed,
		search:     cfg.Search,
		logger:     cfg.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Decision endpoints
		v1.POST("/decisions", s.handleSubmitDecision)
		v1.GET("/decisions", s.handleListDecisions)

		// Job endpoints
		v1.GET("/jobs/:id", s.handleGetJob)
		v1.GET("/jobs/:id/status", s.handleGetJobStatus)

		// Portfolio endpoints
		v1.GET("/portfolio", s.handleGetPortfolio)
		v1.GET("/portfolio/assets", s.handleGetAssets)
		v1.GET("/portfolio/transactions", s.handleGetTransactions)

		// Agent endpoints
		v1.GET("/agents", s.handleListAgents)

		// Retrieval endpoint
		v1.POST("/search", s.handleSearch)
	}
}

// SetupWebSocket adds a WebSocket handler to the server
func (s *Server) SetupWebSocket(handler interface {
	HandleOutcomeStream(*gin.Context)
}) {
	s.router.GET("/api/v1/outcomes/ws", handler.HandleOutcomeStream)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
