package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agency-portal/internal/config"
	"agency-portal/internal/handler"
	"agency-portal/internal/middleware"
	"agency-portal/internal/transport/httpdto"
	"agency-portal/internal/websocket"
	"agency-portal/pkg/database"
	"agency-portal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	db         *gorm.DB
}

var (
	ReleaseMode = "production"
	TestMode    = "test"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	Rooms    *handler.RoomHandler
	Messages *handler.MessageHandler
	Uploads  *handler.UploadHandler
	Chat     *websocket.Handler
}

// Middleware bundles the route-level middleware that needs wiring from
// main: the auth chain and the per-user rate limiters.
type Middleware struct {
	Auth        gin.HandlerFunc
	MessageRate gin.HandlerFunc
	UploadRate  gin.HandlerFunc
}

func New(cfg *config.Config, l *logger.Logger, db *gorm.DB) *Server {
	switch cfg.Server.Environment {
	case ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
		db:     db,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, mw *Middleware) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.MetricsMiddleware())
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rooms := s.engine.Group("/v1/rooms", mw.Auth)
	{
		rooms.GET("", handlers.Rooms.List)
		rooms.POST("", handlers.Rooms.Create)
		rooms.GET("/dashboard", handlers.Rooms.Dashboard)
		rooms.POST("/entity", handlers.Rooms.EnsureEntity)
		rooms.GET("/:id", handlers.Rooms.GetByID)
		rooms.PUT("/:id", handlers.Rooms.Update)
		rooms.DELETE("/:id", handlers.Rooms.Delete)
		rooms.POST("/:id/read", handlers.Rooms.MarkRead)
		rooms.GET("/:id/presence", handlers.Rooms.Presence)
		rooms.GET("/:id/messages", handlers.Messages.History)
	}

	messages := s.engine.Group("/v1/messages", mw.Auth, mw.MessageRate)
	{
		messages.PUT("/:message_id", handlers.Messages.Edit)
		messages.DELETE("/:message_id", handlers.Messages.Delete)
	}

	uploads := s.engine.Group("/v1/uploads", mw.Auth, mw.UploadRate)
	{
		uploads.POST("", handlers.Uploads.CreateBatch)
	}

	s.engine.GET("/v1/ws", mw.Auth, handlers.Chat.Serve)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
