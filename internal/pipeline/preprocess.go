package pipeline

import (
	"image"
	"math"

	"github.com/nfnt/resize"
)

// pixelsFromImage resizes the image to size x size and lays pixels out in
// CHW order with each channel normalized to [0,1], the layout ViT-style
// ONNX exports expect.
func pixelsFromImage(img image.Image, size int) []float32 {
	target := uint(size)
	resized := resize.Resize(target, target, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := make([]float32, 3*width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*width + x
			out[idx] = float32(r) / 65535.0
			out[width*height+idx] = float32(g) / 65535.0
			out[2*width*height+idx] = float32(b) / 65535.0
		}
	}
	return out
}

// softmax converts raw logits into probabilities. Subtracting the max first
// keeps the exponentials from overflowing.
func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - max))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
