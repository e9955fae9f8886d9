package yolo

import (
	"fmt"
	"image"
	"os"
	"runtime"
	"strconv"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/net/context"

	"VisionGolang/internal/entity"
)

const (
	inputSize    = 640
	numCells     = 8400
	numClasses   = 80
	iouThreshold = 0.7
)

// IDetector wraps a pretrained YOLOv8 model loaded once at startup. The
// value is shared by every request; Detect is safe for concurrent use
// because each call checks a session out of an internal pool.
type IDetector interface {
	Detect(ctx context.Context, img image.Image, confThreshold float32) ([]entity.Detection, error)
	Ready() bool
	Close()
}

type modelSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

type detector struct {
	sessions chan *modelSession
	size     int
}

// New initializes the ONNX runtime and pre-instantiates one session per
// pool slot from MODEL_PATH. Model weights are immutable after this point.
func New() (IDetector, error) {
	modelPath := os.Getenv("MODEL_PATH")
	if modelPath == "" {
		modelPath = "./models/yolov8n.onnx"
	}

	size := 2
	if v := os.Getenv("POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}

	ort.SetSharedLibraryPath(getSharedLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	d := &detector{
		sessions: make(chan *modelSession, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		session, err := createModelSession(modelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create model session %d: %w", i, err)
		}
		d.sessions <- session
	}

	return d, nil
}

func createModelSession(modelPath string) (*modelSession, error) {
	inputShape := ort.NewShape(1, 3, inputSize, inputSize)
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, inputSize*inputSize*3))
	if err != nil {
		return nil, err
	}

	outputShape := ort.NewShape(1, 4+numClasses, numCells)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	// Restrict threads per session so pool slots share cores evenly.
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		return nil, err
	}

	return &modelSession{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

// Detect runs one inference. A session is checked out for the duration of
// the call; sessions hold fixed input/output tensors and must not run
// concurrently.
func (d *detector) Detect(ctx context.Context, img image.Image, confThreshold float32) ([]entity.Detection, error) {
	input := prepareInput(img)

	var ms *modelSession
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ms = <-d.sessions:
	}
	defer func() { d.sessions <- ms }()

	copy(ms.input.GetData(), input)
	if err := ms.session.Run(); err != nil {
		return nil, fmt.Errorf("inference error: %w", err)
	}

	size := img.Bounds().Size()
	return processOutput(ms.output.GetData(), size.X, size.Y, confThreshold), nil
}

func (d *detector) Ready() bool {
	return d != nil && d.sessions != nil
}

func (d *detector) Close() {
	for i := 0; i < d.size; i++ {
		ms := <-d.sessions
		ms.session.Destroy()
		ms.input.Destroy()
		ms.output.Destroy()
	}
	ort.DestroyEnvironment()
}

func getSharedLibPath() string {
	if p := os.Getenv("ONNXRUNTIME_LIB_PATH"); p != "" {
		return p
	}
	if runtime.GOOS == "windows" && runtime.GOARCH == "amd64" {
		return "./third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "./third_party/onnxruntime_arm64.dylib"
	}
	if runtime.GOOS == "linux" {
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	panic("unable to find an onnxruntime library for this system")
}
