// Package library holds the compiled-in image transformations exposed
// through the plugin registry. Each file contributes one capability
// with its parameter schema; All returns the table handed to
// Registry.Discover at startup.
package library

import (
	"image"
	"image/color"

	"neuropixel/internal/plugin"
)

// All returns every built-in transformation in registration order.
func All() []plugin.Transformation {
	return []plugin.Transformation{
		&BrightnessContrast{},
		&GaussianBlur{},
		&Grayscale{},
		&OtsuThreshold{},
		&CannyEdge{},
		&RotateFlip{},
		&Resize{},
		&Saturation{},
	}
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// cloneRGBA copies any image into a fresh RGBA buffer anchored at the
// origin, so transformations never touch the caller's pixels.
func cloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// toGray collapses an image to 8-bit luminance.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return out
}
