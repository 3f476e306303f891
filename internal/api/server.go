// Package api assembles the gateway's HTTP server: the Gin engine, its
// middleware stack, and the route table for the auth flow and the proxied
// analytics API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/api/handlers"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/api/middleware"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/gitsphere"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/logging"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
	log "github.com/sirupsen/logrus"
)

// Server is the gateway HTTP server.
type Server struct {
	engine        *gin.Engine
	httpServer    *http.Server
	client        *gitsphere.Client
	sessions      *session.Manager
	requestLogger *logging.FileRequestLogger

	mu      sync.Mutex
	running bool
}

// NewServer wires the engine, middleware, and routes from the configuration.
func NewServer(cfg *config.Config) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	client := gitsphere.NewClient(cfg)
	sessions := session.NewManager(cfg)
	requestLogger := logging.NewFileRequestLogger(cfg)

	engine := gin.New()
	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(middleware.RequestLoggingMiddleware(requestLogger))

	s := &Server{
		engine:        engine,
		client:        client,
		sessions:      sessions,
		requestLogger: requestLogger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.registerRoutes(cfg)
	return s
}

// registerRoutes attaches the auth flow and the proxied analytics API.
func (s *Server) registerRoutes(cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(cfg, s.client, s.sessions)
	profileHandler := handlers.NewProfileHandler(s.client, s.sessions)
	repoHandler := handlers.NewRepositoryHandler(s.client, s.sessions)
	battleHandler := handlers.NewBattleHandler(s.client, s.sessions)
	healthHandler := handlers.NewHealthHandler(s.client)

	s.engine.GET("/api/v1/health", healthHandler.Health)

	auth := s.engine.Group("/api/auth")
	{
		auth.GET("/login", authHandler.Login)
		auth.GET("/callback", authHandler.Callback)
		auth.POST("/session", authHandler.CreateSession)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/status", authHandler.Status)
		auth.POST("/logout", authHandler.Logout)
	}

	requireSession := middleware.RequireSession(s.sessions)

	profile := s.engine.Group("/api/v1/profile-analyzer", requireSession)
	{
		profile.GET("/analyze/:username", profileHandler.Analyze)
		profile.GET("/profile/:username", profileHandler.Get)
		profile.GET("/insights/:username", profileHandler.Insights)
		profile.GET("/repositories/:username", profileHandler.Repositories)
	}

	repo := s.engine.Group("/api/v1/repository-analyzer", requireSession)
	{
		repo.GET("/analyze/:owner/:repo", repoHandler.Analyze)
		repo.GET("/info/:owner/:repo", repoHandler.Info)
		repo.GET("/insights/:owner/:repo", repoHandler.Insights)
		repo.GET("/languages/:owner/:repo", repoHandler.Languages)
		repo.GET("/contributors/:owner/:repo", repoHandler.Contributors)
		repo.GET("/file/:owner/:repo/*path", repoHandler.File)
		repo.GET("/tree/:owner/:repo", repoHandler.Tree)
		repo.POST("/bulk-analyze", repoHandler.BulkAnalyze)
	}

	battle := s.engine.Group("/api/v1/battle", requireSession)
	{
		battle.POST("/start", battleHandler.Start)
		battle.POST("/multi-battle", battleHandler.Multi)
		battle.POST("/quick-battle", battleHandler.Quick)
		battle.POST("/category-battle/:category", battleHandler.Category)
		battle.GET("/battle-types", battleHandler.Types)
	}
}

// Engine exposes the underlying Gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	log.Infof("gateway listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	log.Info("shutting down gateway")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.requestLogger.Close()
}

// OnConfigUpdated applies reloadable settings after a config change.
func (s *Server) OnConfigUpdated(cfg *config.Config) {
	s.requestLogger.SetEnabled(cfg.RequestLog)
}
