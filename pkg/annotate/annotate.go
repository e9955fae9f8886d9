package annotate

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"VisionGolang/internal/entity"
)

const lineWidth = 2

// Fixed palette keyed by label hash so repeated runs color identically.
var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
	{R: 82, G: 0, B: 133, A: 255},
	{R: 203, G: 56, B: 255, A: 255},
	{R: 255, G: 149, B: 200, A: 255},
	{R: 255, G: 55, B: 199, A: 255},
}

// Draw renders boxes and "label score" captions onto a copy of img. The
// input image is never mutated; identical inputs produce identical pixels.
func Draw(img image.Image, detections []entity.Detection) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for _, det := range detections {
		c := colorFor(det.Label)
		rect := image.Rect(
			bounds.Min.X+det.Box[0],
			bounds.Min.Y+det.Box[1],
			bounds.Min.X+det.Box[2],
			bounds.Min.Y+det.Box[3],
		)
		drawRect(canvas, rect, c)
		drawLabel(canvas, rect, fmt.Sprintf("%s %.2f", det.Label, det.Score), c)
	}

	return canvas
}

func colorFor(label string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(label))
	return palette[h.Sum32()%uint32(len(palette))]
}

func drawRect(canvas *image.RGBA, rect image.Rectangle, c color.RGBA) {
	rect = rect.Intersect(canvas.Bounds())

	for t := 0; t < lineWidth; t++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			canvas.SetRGBA(x, clampY(canvas, rect.Min.Y+t), c)
			canvas.SetRGBA(x, clampY(canvas, rect.Max.Y-1-t), c)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			canvas.SetRGBA(clampX(canvas, rect.Min.X+t), y, c)
			canvas.SetRGBA(clampX(canvas, rect.Max.X-1-t), y, c)
		}
	}
}

func drawLabel(canvas *image.RGBA, rect image.Rectangle, text string, c color.RGBA) {
	face := basicfont.Face7x13

	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	// Caption sits above the box, or inside it at the image edge.
	bgTop := rect.Min.Y - textHeight
	if bgTop < canvas.Bounds().Min.Y {
		bgTop = rect.Min.Y
	}
	bg := image.Rect(rect.Min.X, bgTop, rect.Min.X+textWidth+4, bgTop+textHeight)
	draw.Draw(canvas, bg.Intersect(canvas.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(rect.Min.X + 2),
			Y: fixed.I(bgTop + face.Metrics().Ascent.Ceil()),
		},
	}
	drawer.DrawString(text)
}

func clampX(canvas *image.RGBA, x int) int {
	b := canvas.Bounds()
	if x < b.Min.X {
		return b.Min.X
	}
	if x >= b.Max.X {
		return b.Max.X - 1
	}
	return x
}

func clampY(canvas *image.RGBA, y int) int {
	b := canvas.Bounds()
	if y < b.Min.Y {
		return b.Min.Y
	}
	if y >= b.Max.Y {
		return b.Max.Y - 1
	}
	return y
}
