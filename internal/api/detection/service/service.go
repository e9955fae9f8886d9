package detectionService

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"VisionGolang/internal/api/detection"
	detectionRepository "VisionGolang/internal/api/detection/repository"
	"VisionGolang/pkg/utils"
	"VisionGolang/pkg/worker"
	"VisionGolang/pkg/yolo"
)

type IDetectionService interface {
	DetectObjects(ctx context.Context, imageData []byte, confThreshold float64) (*detection.DetectionResponse, error)
	ProcessFrame(ctx context.Context, frame []byte, confThreshold float64) (*detection.FrameResponse, error)
}

type detectionService struct {
	log       *logrus.Logger
	detector  yolo.IDetector
	pool      worker.IPool
	artifacts detectionRepository.Repository
	utils     utils.IUtils
}

func NewDetectionService(
	log *logrus.Logger,
	detector yolo.IDetector,
	pool worker.IPool,
	artifacts detectionRepository.Repository,
	utils utils.IUtils,
) IDetectionService {
	return &detectionService{
		log:       log,
		detector:  detector,
		pool:      pool,
		artifacts: artifacts,
		utils:     utils,
	}
}
