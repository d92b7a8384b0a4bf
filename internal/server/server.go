// Package server exposes the conversation service over HTTP for browser and
// script clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vulnagent/internal/conversation"
	"vulnagent/internal/observability"
	"vulnagent/internal/shared/logging"
)

// Config configures the HTTP server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Debug          bool
	Version        string
	// LogDir overrides where /api/conversations/:id/logs reads from.
	LogDir string
}

// Server serves the conversation API.
type Server struct {
	service    *conversation.Service
	metrics    *observability.MetricsCollector
	logger     logging.Logger
	engine     *gin.Engine
	httpServer *http.Server
	config     Config
	startTime  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(logger)
	}
}

// WithMetrics exposes the collector's registry on /metrics.
func WithMetrics(metrics *observability.MetricsCollector) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// New builds the gin engine and routes.
func New(service *conversation.Service, config Config, opts ...Option) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		service:   service,
		logger:    logging.Nop(),
		config:    config,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(s.logger))
	if len(config.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = config.AllowedOrigins
		corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
		engine.Use(cors.New(corsConfig))
	}
	s.engine = engine
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.engine.Group("/api")
	api.Use(JSONMiddleware())

	api.POST("/analyze", s.handleAnalyze)
	api.POST("/normalize", s.handleNormalize)
	api.GET("/session", s.handleSession)

	handoff := api.Group("/handoff")
	{
		handoff.POST("/decision", s.handleDecision)
		handoff.POST("/cancel", s.handleCancel)
	}

	conversations := api.Group("/conversations")
	{
		conversations.GET("", s.handleListConversations)
		conversations.GET("/:id", s.handleGetConversation)
		conversations.GET("/:id/logs", s.handleConversationLogs)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("vulnagent server listening on %s", s.config.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("vulnagent server stopping")
	return s.httpServer.Shutdown(ctx)
}
