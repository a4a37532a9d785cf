package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/handlers"
	"github.com/emilythestrangee/stackit/backend/internal/logger"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
)

type Server struct {
	cfg      config.AppConfig
	db       database.Service
	handler  *handlers.Handler
	sessions middleware.SessionResolver
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New creates a server over fully constructed services
func New(cfg config.AppConfig, db database.Service, handler *handlers.Handler, sessions middleware.SessionResolver, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		db:       db,
		handler:  handler,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
	}
}

// HTTPServer configures the router and wraps it in an http.Server
func (s *Server) HTTPServer() *http.Server {
	port := s.cfg.Port
	if port == 0 {
		port = 8080
	}

	// WriteTimeout stays unset: live streams are long-lived responses
	return &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logger.GinMiddleware(s.logger))
	r.Use(logger.Recovery(s.logger))
	if s.metrics != nil {
		r.Use(s.metrics.GinMiddleware())
	}

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		stats := s.db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// API routes; the session is optional on reads
	api := r.Group("/api")
	api.Use(middleware.Session(s.sessions, s.logger))
	{
		// Identity routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)
		api.POST("/session", s.handler.Auth.Session)

		// Question routes (public reads)
		api.GET("/questions", s.handler.Question.GetQuestions)
		api.GET("/questions/:id", s.handler.Question.GetQuestion)
		api.GET("/questions/:id/answers", s.handler.Answer.GetAnswers)

		// Live queries (public reads, per-stream checks)
		api.GET("/live/questions", s.handler.Live.Questions)
		api.GET("/live/questions/:id/answers", s.handler.Live.Answers)

		// Protected routes (session required)
		protected := api.Group("")
		protected.Use(middleware.RequireSession())
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			protected.POST("/questions", s.handler.Question.CreateQuestion)
			protected.POST("/questions/:id/accept", s.handler.Question.AcceptAnswer)
			protected.POST("/questions/:id/answers", s.handler.Answer.CreateAnswer)
			protected.GET("/questions/:id/votes", s.handler.Answer.GetMyVotes)
			protected.POST("/answers/:answerId/vote", s.handler.Answer.VoteAnswer)

			protected.GET("/notifications", s.handler.Notification.GetNotifications)
			protected.POST("/notifications/:id/read", s.handler.Notification.MarkRead)
			protected.GET("/live/notifications", s.handler.Live.Notifications)

			// Moderation routes (admin role checked by the services)
			protected.GET("/admin/users", s.handler.Admin.GetUsers)
			protected.POST("/admin/users/:id/ban", s.handler.Admin.ToggleBan)
			protected.DELETE("/admin/questions/:id", s.handler.Admin.DeleteQuestion)
			protected.GET("/live/admin/users", s.handler.Live.Users)
		}
	}

	return r
}
