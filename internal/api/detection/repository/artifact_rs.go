package detectionRepository

import (
	"fmt"
	"os"
)

func (r *repository) SaveAnnotated(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to persist empty annotated image")
	}

	if err := os.WriteFile(r.AnnotatedPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write annotated image: %w", err)
	}

	return nil
}
