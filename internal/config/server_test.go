package config

import (
	"image"
	"io"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"VisionGolang/internal/entity"
	"VisionGolang/pkg/worker"
)

type fakeDetector struct {
	events *[]string
}

func (d *fakeDetector) Detect(ctx context.Context, img image.Image, confThreshold float32) ([]entity.Detection, error) {
	return nil, nil
}

func (d *fakeDetector) Ready() bool { return true }

func (d *fakeDetector) Close() {
	*d.events = append(*d.events, "detector")
}

type fakePool struct {
	events *[]string
}

func (p *fakePool) Submit(ctx context.Context, task worker.Task) (interface{}, error) {
	return task()
}

func (p *fakePool) Size() int { return 1 }

func (p *fakePool) Shutdown() {
	*p.events = append(*p.events, "pool")
}

func TestShutdown_StopsListenerBeforeWorkersAndSessions(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var events []string

	app := fiber.New()
	app.Hooks().OnShutdown(func() error {
		events = append(events, "listener")
		return nil
	})

	s := &Server{
		engine:   app,
		log:      logger,
		detector: &fakeDetector{events: &events},
		pool:     &fakePool{events: &events},
	}
	s.Shutdown()

	want := []string{"listener", "pool", "detector"}
	if len(events) != len(want) {
		t.Fatalf("shutdown events = %v, expected %v", events, want)
	}
	for i, name := range want {
		if events[i] != name {
			t.Fatalf("shutdown order = %v, expected %v", events, want)
		}
	}
}
