// Package server exposes the fact-checking pipeline over HTTP and
// WebSocket.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/transcript"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker turns a claim into a verdict.
type Checker interface {
	Check(ctx context.Context, claim string) (core.Verdict, error)
}

type Server struct {
	app            *fiber.App
	checker        Checker
	validate       *validator.Validate
	requestTimeout time.Duration
	liveWindow     int
	liveInterval   time.Duration
	accessLog      bool
	logger         *slog.Logger
}

type Option func(*Server)

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithLive sets the rolling window size and check interval of /ws/live.
func WithLive(window int, interval time.Duration) Option {
	return func(s *Server) {
		s.liveWindow = window
		s.liveInterval = interval
	}
}

func WithAccessLog(enabled bool) Option {
	return func(s *Server) {
		s.accessLog = enabled
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func New(checker Checker, opts ...Option) *Server {
	s := &Server{
		checker:        checker,
		validate:       validator.New(),
		requestTimeout: 60 * time.Second,
		liveWindow:     transcript.DefaultCapacity,
		liveInterval:   transcript.DefaultInterval,
		accessLog:      true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "veritas",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(cors.New())
	if s.accessLog {
		s.app.Use(logger.New())
	}

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.app.Post("/query", s.handleQuery)
	s.app.Post("/invoke", s.handleInvoke)
	s.app.Post("/transcript", s.handleTranscript)

	s.app.Get("/ws/live", requireUpgrade, websocket.New(s.handleLive))
}

// App is the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}
