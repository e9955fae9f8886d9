package yolo

import (
	"math"
	"sort"

	"VisionGolang/internal/entity"
)

type rawBox struct {
	x1, y1, x2, y2 float32
	score          float32
	classID        int
}

// processOutput decodes the (84, 8400) output tensor: 4 box rows followed by
// 80 class probability rows, one column per candidate cell. Candidates below
// the confidence threshold are dropped, the rest are scaled back to source
// pixel coordinates and de-duplicated with NMS.
func processOutput(output []float32, imgWidth, imgHeight int, confThreshold float32) []entity.Detection {
	var boxes []rawBox

	for i := 0; i < numCells; i++ {
		classID, prob := 0, float32(0.0)
		for j := 0; j < numClasses; j++ {
			if curr := output[numCells*(j+4)+i]; curr > prob {
				prob = curr
				classID = j
			}
		}

		if prob < confThreshold {
			continue
		}

		xc := output[i]
		yc := output[numCells+i]
		w := output[2*numCells+i]
		h := output[3*numCells+i]

		boxes = append(boxes, rawBox{
			x1:      (xc - w/2) / inputSize * float32(imgWidth),
			y1:      (yc - h/2) / inputSize * float32(imgHeight),
			x2:      (xc + w/2) / inputSize * float32(imgWidth),
			y2:      (yc + h/2) / inputSize * float32(imgHeight),
			score:   prob,
			classID: classID,
		})
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].score > boxes[j].score
	})

	detections := make([]entity.Detection, 0, len(boxes))
	suppressed := make([]bool, len(boxes))

	for i := 0; i < len(boxes); i++ {
		if suppressed[i] {
			continue
		}

		if det, ok := toDetection(boxes[i], imgWidth, imgHeight); ok {
			detections = append(detections, det)
		}

		for j := i + 1; j < len(boxes); j++ {
			if suppressed[j] {
				continue
			}
			if iou(boxes[i], boxes[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return detections
}

func toDetection(b rawBox, imgWidth, imgHeight int) (entity.Detection, bool) {
	x1 := clamp(int(b.x1), 0, imgWidth-1)
	y1 := clamp(int(b.y1), 0, imgHeight-1)
	x2 := clamp(int(b.x2), 0, imgWidth)
	y2 := clamp(int(b.y2), 0, imgHeight)

	// Degenerate boxes can fall out of clamping, skip them.
	if x2 <= x1 || y2 <= y1 {
		return entity.Detection{}, false
	}

	return entity.Detection{
		Box:   [4]int{x1, y1, x2, y2},
		Label: cocoClasses[b.classID],
		Score: math.Round(float64(b.score)*100) / 100,
	}, true
}

func iou(a, b rawBox) float32 {
	x1 := float32(math.Max(float64(a.x1), float64(b.x1)))
	y1 := float32(math.Max(float64(a.y1), float64(b.y1)))
	x2 := float32(math.Min(float64(a.x2), float64(b.x2)))
	y2 := float32(math.Min(float64(a.y2), float64(b.y2)))

	var intersection float32
	if x2 > x1 && y2 > y1 {
		intersection = (x2 - x1) * (y2 - y1)
	}

	areaA := (a.x2 - a.x1) * (a.y2 - a.y1)
	areaB := (b.x2 - b.x1) * (b.y2 - b.y1)

	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
