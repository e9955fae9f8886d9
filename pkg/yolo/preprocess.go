package yolo

import (
	"image"

	"github.com/nfnt/resize"
)

// prepareInput resizes the image to the model's square input and lays the
// pixels out as CHW float32 normalized to [0,1].
func prepareInput(img image.Image) []float32 {
	resized := resize.Resize(inputSize, inputSize, img, resize.Lanczos3)
	input := make([]float32, inputSize*inputSize*3)

	idx := 0
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			input[idx] = float32(r>>8) / 255.0
			input[idx+inputSize*inputSize] = float32(g>>8) / 255.0
			input[idx+2*inputSize*inputSize] = float32(b>>8) / 255.0
			idx++
		}
	}

	return input
}
