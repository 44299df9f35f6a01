// Package endpoint serves a store over the SPARQL 1.1 protocol.
//
// The endpoint answers on / and /sparql:
//   - GET with a query parameter runs the query
//   - POST accepts form-encoded query or update fields, or raw
//     application/sparql-query and application/sparql-update bodies
//   - a request without a query gets the HTML editor when the client
//     accepts HTML, and the service description in Turtle otherwise
//
// Updates are refused unless enabled. When an API key hash or a token
// secret is configured, updates must carry the matching credential, and
// every applied update can be written to the update journal.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/sync/errgroup"

	"evalgo.org/rdfendpoint/auth"
	_ "evalgo.org/rdfendpoint/docs"
	"evalgo.org/rdfendpoint/internal/helpers"
	"evalgo.org/rdfendpoint/internal/logging"
	"evalgo.org/rdfendpoint/internal/store"
)

// DefaultShutdownTimeout bounds the graceful shutdown of Run.
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the HTTP settings of the endpoint.
type Config struct {
	Host         string
	Port         int
	Title        string
	Description  string
	ExampleQuery string
	EnableUpdate bool

	APIKeyHash  string // bcrypt hash of the update API key
	TokenSecret string // HMAC secret of update bearer tokens
	Journal     *auth.AuditLogger

	QueryTimeout    time.Duration // zero means no limit
	ShutdownTimeout time.Duration
	BodyLimit       string
	Logger          *logrus.Entry
}

// Server binds one store to an echo application.
type Server struct {
	cfg   Config
	store store.Store
	mode  auth.AuthMode
	echo  *echo.Echo
	log   *logrus.Entry
}

// New builds the application. The store stays owned by the caller.
func New(s store.Store, cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = helpers.DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = helpers.DefaultPort
	}
	if cfg.Title == "" {
		cfg.Title = helpers.DefaultServiceTitle
	}
	if cfg.ExampleQuery == "" {
		cfg.ExampleQuery = helpers.ExampleQuery
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "100M"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Logger.WithField("component", "endpoint")
	}

	srv := &Server{
		cfg:   cfg,
		store: s,
		mode:  auth.ModeFor(cfg.APIKeyHash, cfg.TokenSecret),
		log:   cfg.Logger,
	}
	srv.echo = srv.routes()
	return srv
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(logrus.Fields{
				"method":     v.Method,
				"path":       v.URIPath,
				"status":     v.Status,
				"latency_ms": float64(v.Latency.Microseconds()) / 1000,
				"remote_ip":  v.RemoteIP,
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("Request failed")
				return nil
			}
			entry.Debug("Request served")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(s.cfg.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, apiKeyHeader},
	}))

	for _, path := range []string{"/", "/sparql"} {
		e.GET(path, s.handleSPARQL)
		e.POST(path, s.handleSPARQL)
	}
	e.GET("/health", s.handleHealth)
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	return e
}

// Handler exposes the application for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenerAddr returns the bound address once Run is listening, or nil.
func (s *Server) ListenerAddr() net.Addr {
	return s.echo.ListenerAddr()
}

// Run listens until ctx is done, then shuts down within the shutdown timeout.
// A failure to listen is returned; a clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.WithFields(logrus.Fields{
			"addr":    s.Addr(),
			"backend": s.store.Backend().String(),
			"update":  s.cfg.EnableUpdate,
			"auth":    string(s.mode),
		}).Info("Starting SPARQL endpoint")
		if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("Shutting down SPARQL endpoint")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
