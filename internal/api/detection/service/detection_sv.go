package detectionService

import (
	"fmt"
	"image"

	"golang.org/x/net/context"

	"VisionGolang/internal/api/detection"
	"VisionGolang/internal/entity"
	"VisionGolang/pkg/annotate"
	contextPkg "VisionGolang/pkg/context"
	"VisionGolang/pkg/log"
)

func (s *detectionService) DetectObjects(ctx context.Context, imageData []byte, confThreshold float64) (*detection.DetectionResponse, error) {
	img, detections, err := s.runDetection(ctx, imageData, confThreshold)
	if err != nil {
		return nil, err
	}

	annotated := annotate.Draw(img, detections)
	encoded, err := s.utils.EncodeJPEG(annotated)
	if err != nil {
		return nil, fmt.Errorf("%w: encode annotated image: %v", detection.ErrInferenceFailed, err)
	}

	// Persisting the latest annotated image is debug output, not part of
	// the response contract. It runs detached and failures are only logged.
	s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"bytes":      len(encoded),
	}).Debug("Dispatching annotated image persist")
	go s.persistAnnotated(ctx, encoded)

	return &detection.DetectionResponse{
		Detections:     detections,
		Summary:        summarize(detections),
		AnnotatedImage: s.utils.EncodeBase64(encoded),
	}, nil
}

func (s *detectionService) ProcessFrame(ctx context.Context, frame []byte, confThreshold float64) (*detection.FrameResponse, error) {
	_, detections, err := s.runDetection(ctx, frame, confThreshold)
	if err != nil {
		return nil, err
	}

	return &detection.FrameResponse{
		Detections: detections,
		Summary:    summarize(detections),
	}, nil
}

func (s *detectionService) runDetection(ctx context.Context, imageData []byte, confThreshold float64) (image.Image, []entity.Detection, error) {
	if confThreshold < 0 || confThreshold > 1 {
		return nil, nil, detection.ErrInvalidThreshold
	}

	if s.detector == nil || !s.detector.Ready() {
		return nil, nil, detection.ErrModelUnavailable
	}

	img, err := s.utils.DecodeImage(imageData)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", detection.ErrImageDecodeFailed, err)
	}

	result, err := s.pool.Submit(ctx, func() (interface{}, error) {
		return s.detector.Detect(ctx, img, float32(confThreshold))
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", detection.ErrInferenceFailed, err)
	}

	detections, ok := result.([]entity.Detection)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unexpected task result type", detection.ErrInferenceFailed)
	}

	if detections == nil {
		detections = []entity.Detection{}
	}

	return img, detections, nil
}

func (s *detectionService) persistAnnotated(ctx context.Context, encoded []byte) {
	if s.artifacts == nil {
		return
	}

	if err := s.artifacts.SaveAnnotated(encoded); err != nil {
		log.WithRequestID(ctx).WithField("error", err.Error()).Warn("failed to persist last annotated image")
	}
}

// summarize counts detections per class label. Keys are unique, iteration
// order is irrelevant.
func summarize(detections []entity.Detection) map[string]int {
	summary := make(map[string]int, len(detections))
	for _, det := range detections {
		summary[det.Label]++
	}
	return summary
}
