// Package http provides the choosethere HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/backup"
	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/nearby"
	"github.com/fyrsmithlabs/choosethere/internal/preferences"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/roulette"
	"github.com/fyrsmithlabs/choosethere/internal/visits"
)

// FavoriteStore flags restaurants as favorites.
type FavoriteStore interface {
	SetFavorite(ctx context.Context, id string, favorite bool) error
}

// Services are the domain services the API serves. Nearby and Favorites
// are optional.
type Services struct {
	Roulette    *roulette.Service
	Visits      *visits.Service
	Learner     *preferences.Learner
	Backup      *backup.Service
	Nearby      *nearby.Service
	Restaurants restaurant.Source
	VisitLog    restaurant.VisitSource
	Favorites   FavoriteStore
	Version     string
}

func (s Services) validate() error {
	switch {
	case s.Roulette == nil:
		return errors.New("roulette service is required")
	case s.Visits == nil:
		return errors.New("visit service is required")
	case s.Learner == nil:
		return errors.New("learner is required")
	case s.Backup == nil:
		return errors.New("backup service is required")
	}
	return nil
}

// Server provides HTTP endpoints for choosethere.
type Server struct {
	echo     *echo.Echo
	svc      Services
	sessions *sessionRegistry
	logger   *logging.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// SessionTTL is how long an idle draw session is kept.
	SessionTTL time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(svc Services, logger *logging.Logger, cfg *Config) (*Server, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = goccySerializer{}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(requestLogger(logger))

	s := &Server{
		echo:     e,
		svc:      svc,
		sessions: newSessionRegistry(cfg.SessionTTL),
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// requestLogger puts the request id on the request context and logs each
// request once it completes.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), reqID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)

	v1.POST("/availability", s.handleAvailability)
	v1.POST("/draws", s.handleCreateDraw)
	v1.GET("/draws/:id", s.handleGetDraw)
	v1.POST("/draws/:id/reroll", s.handleReroll)
	v1.DELETE("/draws/:id", s.handleDeleteDraw)

	v1.POST("/visits", s.handleRecordVisit)
	v1.PUT("/restaurants/:id/favorite", s.handleSetFavorite)

	v1.GET("/preferences", s.handleGetPreferences)
	v1.DELETE("/preferences", s.handleResetPreferences)

	v1.POST("/nearby/draws", s.handleNearbyDraw)

	v1.GET("/backup", s.handleExportBackup)
	v1.POST("/backup", s.handleImportBackup)
	v1.POST("/backup/preview", s.handlePreviewBackup)
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	restaurants, visitCount := CountRecords(ctx, s.svc.Restaurants, s.svc.VisitLog)
	prefs := s.svc.Learner.Store().Snapshot()

	return c.JSON(http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: s.svc.Version,
		Counts: StatusCounts{
			Restaurants:    restaurants,
			Visits:         visitCount,
			LearnedWeights: prefs.Count(),
			DrawSessions:   s.sessions.len(),
		},
		LearningEnabled: s.svc.Learner.Enabled(),
		NearbyEnabled:   s.svc.Nearby != nil,
		MaxRerolls:      roulette.MaxRerolls,
	})
}

// storageHTTPError maps collaborator failures to 503 and anything else to 500.
func storageHTTPError(err error) error {
	if errors.Is(err, restaurant.ErrStorage) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
