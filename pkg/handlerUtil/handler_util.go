package handlerUtil

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"VisionGolang/internal/api/detection"
	"VisionGolang/pkg/log"
	"VisionGolang/pkg/response"
)

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Handle maps request-path errors to an HTTP status and structured body.
// Nothing escapes to crash the serving process.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	if errors.Is(err, detection.ErrImageRequired) {
		h.logger.WithFields(fields).Warn("Image file missing or invalid")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "An image file (JPG/JPEG/PNG) is required",
			"code":  "IMAGE_REQUIRED",
		})
	}

	if errors.Is(err, detection.ErrInvalidThreshold) {
		h.logger.WithFields(fields).Warn("Confidence threshold out of range")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "confidence_threshold must be between 0 and 1",
			"code":  "INVALID_THRESHOLD",
		})
	}

	if errors.Is(err, detection.ErrImageDecodeFailed) {
		h.logger.WithFields(fields).Warn("Uploaded image could not be decoded")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Uploaded image is corrupt or not a supported format",
			"code":  "IMAGE_DECODE_FAILED",
		})
	}

	if errors.Is(err, detection.ErrModelUnavailable) {
		h.logger.WithFields(fields).Error("Detection model unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Detection model is not available",
			"code":  "MODEL_UNAVAILABLE",
		})
	}

	if errors.Is(err, detection.ErrInferenceFailed) {
		h.logger.WithFields(fields).Error("Inference failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Object detection failed for this image",
			"code":  "INFERENCE_FAILED",
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":    "An unexpected error occurred",
		"trace_id": traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
