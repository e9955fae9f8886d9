package detection

import "VisionGolang/internal/entity"

type DetectRequest struct {
	ConfidenceThreshold float64 `json:"confidence_threshold" validate:"gte=0,lte=1"`
}

type DetectionResponse struct {
	Detections     []entity.Detection `json:"detections"`
	Summary        map[string]int     `json:"summary"`
	AnnotatedImage string             `json:"annotated_image"`
}

// FrameResponse is the trimmed result sent per websocket frame. Frames skip
// annotation and persistence to keep the stream cheap.
type FrameResponse struct {
	Detections []entity.Detection `json:"detections"`
	Summary    map[string]int     `json:"summary"`
}
