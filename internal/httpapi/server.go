// Package httpapi is the HTTP surface: routing, CORS, input validation,
// rate-limit gating, and the error taxonomy's mapping to status codes. It
// is a thin trust boundary around the cache, coalescer, rate limiter, and
// upstream client — no core logic lives here.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/wyverncodes/universalis-proxy/internal/cache"
	"github.com/wyverncodes/universalis-proxy/internal/ratelimit"
	"github.com/wyverncodes/universalis-proxy/internal/upstream"
)

// Config configures the Server.
type Config struct {
	AllowedOrigins []string
	Development    bool
	ServiceName    string
	ServiceVersion string
	RateLimit      ratelimit.Policy
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// Server wires the echo router to the core subsystems.
type Server struct {
	echo *echo.Echo

	cache    *cache.Cache
	upstream *upstream.Client
	limiter  *ratelimit.Limiter

	config         Config
	environment    string
	serviceName    string
	serviceVersion string
	logger         zerolog.Logger
}

// New builds a Server with routes and middleware registered.
func New(cfg Config, cacheSvc *cache.Cache, upstreamClient *upstream.Client, limiter *ratelimit.Limiter, logger zerolog.Logger) *Server {
	environment := "production"
	if cfg.Development {
		environment = "development"
	}

	s := &Server{
		echo:           echo.New(),
		cache:          cacheSvc,
		upstream:       upstreamClient,
		limiter:        limiter,
		config:         cfg,
		environment:    environment,
		serviceName:    cfg.ServiceName,
		serviceVersion: cfg.ServiceVersion,
		logger:         logger,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleEchoError

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(s.recover())
	s.echo.Use(echomiddleware.RequestID())
	s.echo.Use(s.requestLogging())
	s.echo.Use(CORS(corsConfig{
		allowedOrigins: s.config.AllowedOrigins,
		development:    s.config.Development,
	}))
	s.echo.Use(RateLimit(s.limiter, s.config.RateLimit))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api/v2")
	api.GET("/aggregated/:datacenter/:itemIds", s.handleAggregated)
	api.GET("/data-centers", s.handleDataCenters)
	api.GET("/worlds", s.handleWorlds)
}

// recover catches panics in the handler chain and logs them through this
// service's own structured logger, instead of echo's built-in recover
// middleware, which writes through its internal gommon logger in a
// different format than every other log line this service emits.
func (s *Server) recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					s.logger.Error().
						Err(err).
						Str("method", c.Request().Method).
						Str("path", c.Path()).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					s.handleEchoError(err, c)
				}
			}()
			return next(c)
		}
	}
}

// requestLogging logs each request at debug level with the same fields
// used elsewhere in this service's logging: method, path, status, duration.
func (s *Server) requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			s.logger.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Msg("request handled")
			return err
		}
	}
}

// handleEchoError is the top-level catch-all: echo HTTP errors keep their
// status, and unknown errors become a 500 with a generic body (the raw
// error text in development); CORS headers are already set by the CORS
// middleware, which runs on every request, matched route or not.
func (s *Server) handleEchoError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if httpErr, ok := err.(*echo.HTTPError); ok {
		_ = c.JSON(httpErr.Code, errorBody{Error: fmt.Sprint(httpErr.Message)})
		return
	}
	if s.config.Development {
		_ = writeInternalErrorDev(c, err)
		return
	}
	_ = writeInternalError(c, err)
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.StartServer(server)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}
