// Package api implements the HTTP surface of the population engine: search
// endpoints that trigger auto-population, locally served photo variants and
// the Prometheus metrics endpoint.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/voyago/voyago-go/internal/conf"
	"github.com/voyago/voyago-go/internal/datastore"
	"github.com/voyago/voyago-go/internal/logging"
	"github.com/voyago/voyago-go/internal/observability"
	"github.com/voyago/voyago-go/internal/populate"
)

// Populator is the coverage workflow the search endpoints delegate to.
type Populator interface {
	EnsureCityCoverage(ctx context.Context, term string, needed int) (*populate.CityResult, error)
	EnsurePlaceCoverage(ctx context.Context, term string, cityID uint, needed int) (*populate.PlaceResult, error)
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DS        datastore.Interface
	Settings  *conf.Settings
	Populator Populator

	logger         *log.Logger
	apiLogger      *slog.Logger
	apiLevelVar    *slog.LevelVar
	apiLoggerClose func() error
	metrics        *observability.Metrics
	mediaBasePath  string
	startTime      time.Time
}

// New creates a new API controller and registers its routes on e.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	populator Populator, metrics *observability.Metrics, logger *log.Logger) (*Controller, error) {

	if logger == nil {
		logger = log.Default()
	}
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}

	c := &Controller{
		Echo:          e,
		DS:            ds,
		Settings:      settings,
		Populator:     populator,
		logger:        logger,
		metrics:       metrics,
		mediaBasePath: settings.Media.BasePath,
		startTime:     time.Now(),
	}

	// Structured logger for API requests, file-backed with rotation
	c.apiLevelVar = new(slog.LevelVar)
	if settings.WebServer.Debug {
		c.apiLevelVar.Set(slog.LevelDebug)
	} else {
		c.apiLevelVar.Set(slog.LevelInfo)
	}
	apiLogPath := filepath.Join("logs", "api.log")
	apiLogger, closeFunc, err := logging.NewFileLogger(apiLogPath, "api", c.apiLevelVar)
	if err != nil {
		logger.Printf("Failed to initialize API file logger at %s: %v. Continuing without it.", apiLogPath, err)
	} else {
		c.apiLogger = apiLogger
		c.apiLoggerClose = closeFunc
	}

	c.Group = e.Group("/api/v1")
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("1M"))
	c.Group.Use(c.LoggingMiddleware())

	c.initRoutes()

	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.initSearchRoutes()

	// Derived photo variants are served straight from disk.
	if c.mediaBasePath != "" {
		c.Echo.Static("/images", c.mediaBasePath)
	}

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// Shutdown closes the controller's log file.
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Error closing API logger: %v", err)
		}
	}
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"name":      c.Settings.Main.Name,
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(c.startTime).String(),
	}
	return ctx.JSON(http.StatusOK, response)
}

// LoggingMiddleware creates a middleware function that logs API requests
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			if c.apiLogger == nil {
				return err
			}

			req := ctx.Request()
			res := ctx.Response()

			c.apiLogger.Info("API request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"ip", ctx.RealIP(),
				"latency_ms", time.Since(start).Milliseconds())

			return err
		}
	}
}

// ErrorResponse is the standard JSON error envelope of the API.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an error response with a fresh correlation id.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	resp := &ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: uuid.New().String()[:8],
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// HandleError logs an error and sends the standard error envelope.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	c.logger.Printf("API Error [%s] from %s: %s: %v",
		errorResp.CorrelationID, ctx.RealIP(), message, err)

	if c.apiLogger != nil {
		c.apiLogger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", message,
			"error", err,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ctx.RealIP())
	}

	return ctx.JSON(code, errorResp)
}
