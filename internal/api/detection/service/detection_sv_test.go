package detectionService

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"VisionGolang/internal/api/detection"
	"VisionGolang/internal/entity"
	"VisionGolang/pkg/log"
	"VisionGolang/pkg/utils"
	"VisionGolang/pkg/worker"
)

type stubDetector struct {
	detections []entity.Detection
	err        error
	delay      time.Duration
	calls      int32
}

func (d *stubDetector) Detect(ctx context.Context, img image.Image, confThreshold float32) ([]entity.Detection, error) {
	atomic.AddInt32(&d.calls, 1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}

	filtered := make([]entity.Detection, 0, len(d.detections))
	for _, det := range d.detections {
		if det.Score >= float64(confThreshold) {
			filtered = append(filtered, det)
		}
	}
	return filtered, nil
}

func (d *stubDetector) Ready() bool { return true }
func (d *stubDetector) Close()      {}

type fakeRepository struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
}

func (r *fakeRepository) SaveAnnotated(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, data)
	return nil
}

func (r *fakeRepository) AnnotatedPath() string { return "fake/last_annotated.jpg" }

func (r *fakeRepository) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes)
}

func newTestService(t *testing.T, detector *stubDetector, repo *fakeRepository) IDetectionService {
	t.Helper()

	// Persistence warnings go through the package-level logger, so it
	// must exist before the service runs.
	t.Setenv("APP_ENV", "test")
	logger := log.NewLogger()
	logger.SetOutput(io.Discard)

	pool := worker.NewWithSize(logger, 2)
	t.Cleanup(pool.Shutdown)

	return NewDetectionService(logger, detector, pool, repo, utils.New())
}

func sampleImageBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y += 4 {
		for x := 0; x < 640; x += 4 {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode sample image: %v", err)
	}
	return buf.Bytes()
}

func waitForWrites(t *testing.T, repo *fakeRepository, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if repo.writeCount() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("repository received %d writes, expected %d", repo.writeCount(), want)
}

func TestDetectObjects_PersonAndDog(t *testing.T) {
	detector := &stubDetector{
		detections: []entity.Detection{
			{Box: [4]int{100, 100, 200, 300}, Label: "person", Score: 0.92},
			{Box: [4]int{300, 200, 450, 330}, Label: "dog", Score: 0.81},
		},
	}
	repo := &fakeRepository{}
	svc := newTestService(t, detector, repo)

	result, err := svc.DetectObjects(context.Background(), sampleImageBytes(t), 0.5)
	if err != nil {
		t.Fatalf("DetectObjects failed: %v", err)
	}

	if len(result.Detections) != 2 {
		t.Fatalf("got %d detections, expected 2", len(result.Detections))
	}
	if result.Detections[0].Label != "person" || result.Detections[1].Label != "dog" {
		t.Errorf("detector order not preserved: %+v", result.Detections)
	}
	if result.Summary["person"] != 1 || result.Summary["dog"] != 1 {
		t.Errorf("summary = %v, expected person:1 dog:1", result.Summary)
	}
	if result.AnnotatedImage == "" {
		t.Fatal("annotated_image is empty")
	}
	if _, err := base64.StdEncoding.DecodeString(result.AnnotatedImage); err != nil {
		t.Errorf("annotated_image is not valid base64: %v", err)
	}

	waitForWrites(t, repo, 1)
}

func TestDetectObjects_ThresholdFiltersDetections(t *testing.T) {
	detector := &stubDetector{
		detections: []entity.Detection{
			{Box: [4]int{10, 10, 50, 50}, Label: "person", Score: 0.9},
			{Box: [4]int{60, 60, 90, 90}, Label: "cat", Score: 0.3},
		},
	}
	svc := newTestService(t, detector, &fakeRepository{})

	result, err := svc.DetectObjects(context.Background(), sampleImageBytes(t), 0.5)
	if err != nil {
		t.Fatalf("DetectObjects failed: %v", err)
	}

	for _, det := range result.Detections {
		if det.Score < 0.5 {
			t.Errorf("detection %+v below requested threshold", det)
		}
	}
	if len(result.Detections) != 1 {
		t.Errorf("got %d detections, expected 1", len(result.Detections))
	}
}

func TestDetectObjects_NoDetections(t *testing.T) {
	svc := newTestService(t, &stubDetector{}, &fakeRepository{})

	result, err := svc.DetectObjects(context.Background(), sampleImageBytes(t), 0.25)
	if err != nil {
		t.Fatalf("DetectObjects failed: %v", err)
	}

	if result.Detections == nil || len(result.Detections) != 0 {
		t.Errorf("detections = %v, expected empty non-nil slice", result.Detections)
	}
	if result.Summary == nil || len(result.Summary) != 0 {
		t.Errorf("summary = %v, expected empty non-nil map", result.Summary)
	}
	if result.AnnotatedImage == "" {
		t.Error("annotated_image should still contain the source image")
	}
}

func TestDetectObjects_InvalidThreshold(t *testing.T) {
	detector := &stubDetector{}
	svc := newTestService(t, detector, &fakeRepository{})

	for _, threshold := range []float64{-0.1, 1.5} {
		_, err := svc.DetectObjects(context.Background(), sampleImageBytes(t), threshold)
		if !errors.Is(err, detection.ErrInvalidThreshold) {
			t.Errorf("threshold %v: error = %v, expected ErrInvalidThreshold", threshold, err)
		}
	}

	if atomic.LoadInt32(&detector.calls) != 0 {
		t.Error("detector was invoked for an invalid threshold")
	}
}

func TestDetectObjects_CorruptImage(t *testing.T) {
	detector := &stubDetector{}
	svc := newTestService(t, detector, &fakeRepository{})

	_, err := svc.DetectObjects(context.Background(), []byte("not an image"), 0.25)
	if !errors.Is(err, detection.ErrImageDecodeFailed) {
		t.Fatalf("error = %v, expected ErrImageDecodeFailed", err)
	}
	if atomic.LoadInt32(&detector.calls) != 0 {
		t.Error("detector was invoked for a corrupt image")
	}
}

func TestDetectObjects_InferenceFailure(t *testing.T) {
	detector := &stubDetector{err: errors.New("session blew up")}
	svc := newTestService(t, detector, &fakeRepository{})

	_, err := svc.DetectObjects(context.Background(), sampleImageBytes(t), 0.25)
	if !errors.Is(err, detection.ErrInferenceFailed) {
		t.Fatalf("error = %v, expected ErrInferenceFailed", err)
	}
}

func TestDetectObjects_TimeoutMapsToInferenceFailure(t *testing.T) {
	detector := &stubDetector{delay: 500 * time.Millisecond}
	svc := newTestService(t, detector, &fakeRepository{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := svc.DetectObjects(ctx, sampleImageBytes(t), 0.25)
	if !errors.Is(err, detection.ErrInferenceFailed) {
		t.Fatalf("error = %v, expected ErrInferenceFailed on timeout", err)
	}
}

func TestDetectObjects_PersistenceFailureDoesNotFailResponse(t *testing.T) {
	repo := &fakeRepository{err: errors.New("disk full")}
	svc := newTestService(t, &stubDetector{
		detections: []entity.Detection{{Box: [4]int{10, 10, 40, 40}, Label: "car", Score: 0.7}},
	}, repo)

	result, err := svc.DetectObjects(context.Background(), sampleImageBytes(t), 0.25)
	if err != nil {
		t.Fatalf("DetectObjects failed despite persistence being best-effort: %v", err)
	}
	if len(result.Detections) != 1 {
		t.Errorf("got %d detections, expected 1", len(result.Detections))
	}
}

func TestDetectObjects_AnnotationDeterministic(t *testing.T) {
	detector := &stubDetector{
		detections: []entity.Detection{{Box: [4]int{50, 50, 150, 150}, Label: "person", Score: 0.88}},
	}
	svc := newTestService(t, detector, &fakeRepository{})

	data := sampleImageBytes(t)
	first, err := svc.DetectObjects(context.Background(), data, 0.25)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := svc.DetectObjects(context.Background(), data, 0.25)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if first.AnnotatedImage != second.AnnotatedImage {
		t.Error("identical inputs produced different annotated images")
	}
}

func TestProcessFrame_SkipsAnnotationAndPersistence(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, &stubDetector{
		detections: []entity.Detection{{Box: [4]int{10, 10, 40, 40}, Label: "person", Score: 0.9}},
	}, repo)

	result, err := svc.ProcessFrame(context.Background(), sampleImageBytes(t), 0.25)
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}

	if len(result.Detections) != 1 || result.Summary["person"] != 1 {
		t.Errorf("frame result = %+v, expected one person", result)
	}

	time.Sleep(50 * time.Millisecond)
	if repo.writeCount() != 0 {
		t.Error("ProcessFrame persisted an artifact, frames must not")
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		detections []entity.Detection
		expected   map[string]int
	}{
		{"empty", nil, map[string]int{}},
		{
			"mixed labels",
			[]entity.Detection{
				{Label: "person"}, {Label: "person"}, {Label: "dog"},
			},
			map[string]int{"person": 2, "dog": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarize(tt.detections)
			if len(got) != len(tt.expected) {
				t.Fatalf("summary = %v, expected %v", got, tt.expected)
			}
			total := 0
			for label, count := range tt.expected {
				if got[label] != count {
					t.Errorf("summary[%s] = %d, expected %d", label, got[label], count)
				}
				total += count
			}
			if total != len(tt.detections) {
				t.Errorf("summary total %d != detections %d", total, len(tt.detections))
			}
		})
	}
}
