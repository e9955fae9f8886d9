package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	detectionHandler "VisionGolang/internal/api/detection/handler"
	detectionRepository "VisionGolang/internal/api/detection/repository"
	detectionService "VisionGolang/internal/api/detection/service"
	"VisionGolang/internal/middleware"
	"VisionGolang/pkg/utils"
	"VisionGolang/pkg/worker"
	"VisionGolang/pkg/yolo"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	handlers   []handler
	detector   yolo.IDetector
	pool       worker.IPool
	artifacts  detectionRepository.Repository
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDetector loads the model at startup. A load failure here is fatal,
// the process must not accept traffic without weights.
func WithDetector() ServerOption {
	return func(s *Server) error {
		detector, err := yolo.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to load detection model: %v", err)
			}
			return fmt.Errorf("failed to load detection model: %w", err)
		}
		s.detector = detector
		return nil
	}
}

func WithWorkerPool() ServerOption {
	return func(s *Server) error {
		s.pool = worker.New(s.log)
		return nil
	}
}

func WithArtifactRepository() ServerOption {
	return func(s *Server) error {
		artifacts, err := detectionRepository.New(s.log)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize artifact repository: %v", err)
			}
			return fmt.Errorf("failed to initialize artifact repository: %w", err)
		}
		s.artifacts = artifacts
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Detection Domain
	detectionServices := detectionService.NewDetectionService(s.log, s.detector, s.pool, s.artifacts, s.utils)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, detectionHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())
	s.engine.Use(s.middleware.NewRateLimiter)

	// The UI collaborator calls /health and /detect directly, so handlers
	// mount at the root rather than under an API version group.
	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		return err
	}

	return nil
}

// Shutdown stops accepting traffic first so no request reaches a closed
// pool or destroyed inference sessions.
func (s *Server) Shutdown() {
	if s.engine != nil {
		if err := s.engine.Shutdown(); err != nil {
			s.log.Errorf("Failed to stop listener: %v", err)
		}
	}
	if s.pool != nil {
		s.pool.Shutdown()
	}
	if s.detector != nil {
		s.detector.Close()
	}
}

// setupHealthCheck registers the liveness probe. It never touches the
// worker pool, so it answers promptly regardless of inference load.
func (s *Server) setupHealthCheck() {
	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status": "ok",
		})
	})
}
