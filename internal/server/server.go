package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Ridham19/GYM-flow/internal/auth"
	"github.com/Ridham19/GYM-flow/internal/config"
	"github.com/Ridham19/GYM-flow/internal/email"
	"github.com/Ridham19/GYM-flow/internal/logger"
	"github.com/Ridham19/GYM-flow/internal/reservation"
	"github.com/Ridham19/GYM-flow/internal/resource"

	"github.com/gin-gonic/gin"
)

// Deps are the handlers and probes the router is assembled from.
type Deps struct {
	Reservations *reservation.Handler
	Resources    *resource.Handler
	// Email is optional; when set admins get a test-email endpoint.
	Email *email.Service
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(cfg *config.Config, deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	router.GET("/health", Health(deps.Ready))
	router.GET("/metrics", Metrics())

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst), authMiddleware)
	{
		protected.GET("/resources", deps.Resources.ListResources)
		protected.GET("/resources/:resourceID/reservations", deps.Reservations.ListResourceReservations)
		protected.POST("/reservations", deps.Reservations.CreateReservation)
		protected.GET("/reservations", deps.Reservations.ListMyReservations)
		protected.POST("/reservations/:reservationID/cancel", deps.Reservations.CancelReservation)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/reservations/usage", deps.Reservations.Usage)
		if deps.Email != nil {
			admin.GET("/test-email", TestEmail(deps.Email))
		}
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
