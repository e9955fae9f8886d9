package detection

import (
	"net/http"

	"VisionGolang/pkg/response"
)

var (
	ErrImageRequired     = response.NewError(http.StatusBadRequest, "image file is required")
	ErrInvalidThreshold  = response.NewError(http.StatusBadRequest, "confidence threshold must be within [0,1]")
	ErrImageDecodeFailed = response.NewError(http.StatusBadRequest, "failed to decode image")
	ErrModelUnavailable  = response.NewError(http.StatusServiceUnavailable, "detection model unavailable")
	ErrInferenceFailed   = response.NewError(http.StatusInternalServerError, "inference failed")
)
