package detectionRepository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Repository owns the single "last annotated image" slot. The slot is
// overwritten on every successful detection; concurrent writers race and
// the documented behavior is last-writer-wins.
type Repository interface {
	SaveAnnotated(data []byte) error
	AnnotatedPath() string
}

type repository struct {
	outputDir string
	log       *logrus.Logger
}

func New(logger *logrus.Logger) (Repository, error) {
	outputDir := os.Getenv("OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "./output"
	}

	return NewWithDir(logger, outputDir)
}

func NewWithDir(logger *logrus.Logger, outputDir string) (Repository, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	return &repository{
		outputDir: outputDir,
		log:       logger,
	}, nil
}

func (r *repository) AnnotatedPath() string {
	return filepath.Join(r.outputDir, "last_annotated.jpg")
}
