package detectionHandler

import (
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"

	"VisionGolang/internal/api/detection"
	contextPkg "VisionGolang/pkg/context"
	"VisionGolang/pkg/handlerUtil"
	"VisionGolang/pkg/log"
)

func (h *DetectionHandler) DetectObjects(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.inferenceTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing object detection request")

	req := detection.DetectRequest{ConfidenceThreshold: h.defaultThreshold}
	if raw := ctx.FormValue("confidence_threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errHandler.Handle(ctx, requestID, detection.ErrInvalidThreshold, ctx.Path(), "parse_threshold")
		}
		req.ConfidenceThreshold = parsed
	}

	// Threshold range is checked before any file or model work happens.
	if err := h.validator.Struct(req); err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrInvalidThreshold, ctx.Path(), "validate_threshold")
	}

	file, err := ctx.FormFile("image")
	if err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrImageRequired, ctx.Path(), "read_form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
		"threshold":  req.ConfidenceThreshold,
	}).Debug("Processing file upload")

	if err := h.utils.ValidateImageFile(file); err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrImageRequired, ctx.Path(), "validate_image_file")
	}

	fileContent, err := file.Open()
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_file")
	}
	defer fileContent.Close()

	imageData, err := io.ReadAll(fileContent)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_file")
	}

	result, err := h.detectionService.DetectObjects(c, imageData, req.ConfidenceThreshold)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect_objects")
	}

	select {
	case <-c.Done():
		// The deadline expired while the result was being produced; the
		// client is told inference failed, same as an in-flight expiry.
		return errHandler.Handle(ctx, requestID, detection.ErrInferenceFailed, ctx.Path(), "deadline_exceeded")
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"detections": len(result.Detections),
		}).Info("Object detection successful")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *DetectionHandler) handleDetectionWebSocket(c *websocket.Conn) {
	h.log.Info("Detection WebSocket client connected")
	defer h.log.Info("Detection WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Detection WebSocket error: %v", err)
			} else {
				h.log.Info("Detection WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		frameCtx, cancel := context.WithTimeout(context.Background(), h.inferenceTimeout)
		result, err := h.detectionService.ProcessFrame(frameCtx, message, h.defaultThreshold)
		cancel()

		if err != nil {
			h.log.Errorf("Error processing detection frame: %v", err)
			if writeErr := c.WriteJSON(map[string]string{"error": err.Error()}); writeErr != nil {
				h.log.Errorf("Error sending error response: %v", writeErr)
				break
			}
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(result); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}

		if err := c.SetWriteDeadline(time.Time{}); err != nil {
			h.log.Errorf("Error resetting write deadline: %v", err)
			break
		}
	}
}
