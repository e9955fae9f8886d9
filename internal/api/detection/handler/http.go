package detectionHandler

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	detectionService "VisionGolang/internal/api/detection/service"
	"VisionGolang/internal/middleware"
	"VisionGolang/pkg/utils"
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	defaultThreshold float64
	inferenceTimeout time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
) *DetectionHandler {
	defaultThreshold := 0.25
	if v := os.Getenv("CONFIDENCE_THRESHOLD_DEFAULT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			defaultThreshold = f
		}
	}

	inferenceTimeout := 30 * time.Second
	if v := os.Getenv("INFERENCE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			inferenceTimeout = time.Duration(n) * time.Second
		}
	}

	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
		defaultThreshold: defaultThreshold,
		inferenceTimeout: inferenceTimeout,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/detect", h.DetectObjects)
	srv.Use("/detect/ws", wsMiddleware)
	srv.Get("/detect/ws", websocket.New(h.handleDetectionWebSocket))
}
