package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/matching"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxCandidates = 10

// Turner runs one conversation turn.
type Turner interface {
	Turn(ctx context.Context, req matching.Request) (*matching.Response, error)
}

var _ Turner = (*matching.Controller)(nil)

// Server is the HTTP front of the conversation engine.
type Server struct {
	app           *fiber.App
	turner        Turner
	gatherer      prometheus.Gatherer
	maxCandidates int
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithGatherer sets the registry served on /metrics.
// Default is prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) error {
		if g != nil {
			s.gatherer = g
		}
		return nil
	}
}

// WithMaxCandidates caps the candidates listed in a response.
func WithMaxCandidates(n int) Option {
	return func(s *Server) error {
		s.maxCandidates = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a server routing conversation turns to turner.
func New(turner Turner, opts ...Option) (*Server, error) {
	if turner == nil {
		return nil, ErrTurnerRequired
	}
	s := &Server{
		turner:        turner,
		gatherer:      prometheus.DefaultGatherer,
		maxCandidates: defaultMaxCandidates,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "api")

	s.app = fiber.New(fiber.Config{
		AppName:               "govchat",
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Get("/healthz", s.healthz)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	v1 := s.app.Group("/v1")
	v1.Post("/conversation", s.conversation)
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight turns up to timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) conversation(c *fiber.Ctx) error {
	var req ConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		return fiber.NewError(fiber.StatusBadRequest, matching.ErrEmptyMessage.Error())
	}
	if req.SessionId == "" {
		req.SessionId = uuid.NewString()
	}

	resp, err := s.turner.Turn(c.UserContext(), matching.Request{
		SessionId: req.SessionId,
		Message:   req.UserMessage,
	})
	switch {
	case errors.Is(err, matching.ErrEmptyMessage), errors.Is(err, core.ErrEmptySessionID):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("turn failed", "session", req.SessionId, "err", err)
		return fiber.NewError(fiber.StatusInternalServerError, "turn failed")
	}
	return c.JSON(newConversationResponse(resp, s.maxCandidates))
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
