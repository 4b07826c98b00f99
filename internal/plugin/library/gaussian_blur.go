package library

import (
	"image"
	"math"

	"neuropixel/internal/plugin"
)

// GaussianBlur smooths the image with a separable Gaussian kernel.
type GaussianBlur struct{}

func (GaussianBlur) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "gaussian_blur",
		DisplayName: "Gaussian Blur",
		Description: "Apply Gaussian smoothing to reduce noise and detail",
		Category:    "Preprocessing",
		Params: []plugin.ParamSpec{
			{
				Name:        "sigma",
				Label:       "Sigma",
				Description: "Standard deviation of the Gaussian kernel",
				Kind:        plugin.KindFloat,
				Default:     1.0,
				Min:         0.1,
				Max:         10.0,
				Step:        0.1,
			},
			{
				Name:        "kernel_size",
				Label:       "Kernel Size",
				Description: "Size of the Gaussian kernel (must be odd)",
				Kind:        plugin.KindInt,
				Default:     5,
				Min:         3,
				Max:         31,
				Step:        2,
			},
		},
	}
}

func (GaussianBlur) Apply(img image.Image, params map[string]any) (image.Image, error) {
	sigma := plugin.FloatParam(params, "sigma", 1.0)
	size := plugin.IntParam(params, "kernel_size", 5)
	if size%2 == 0 {
		size++
	}
	if sigma <= 0 {
		sigma = 0.1
	}

	src := cloneRGBA(img)
	return blurRGBA(src, gaussKernel(size, sigma)), nil
}

func gaussKernel(size int, sigma float64) []float64 {
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// blurRGBA runs a horizontal then vertical pass with the 1D kernel,
// clamping taps at the image edge.
func blurRGBA(src *image.RGBA, kernel []float64) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	half := len(kernel) / 2

	tmp := image.NewRGBA(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float64
			for i, kv := range kernel {
				sx := x + i - half
				if sx < 0 {
					sx = 0
				} else if sx >= w {
					sx = w - 1
				}
				o := src.PixOffset(sx, y)
				for c := 0; c < 4; c++ {
					acc[c] += kv * float64(src.Pix[o+c])
				}
			}
			o := tmp.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				tmp.Pix[o+c] = clampU8(acc[c])
			}
		}
	}

	out := image.NewRGBA(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float64
			for i, kv := range kernel {
				sy := y + i - half
				if sy < 0 {
					sy = 0
				} else if sy >= h {
					sy = h - 1
				}
				o := tmp.PixOffset(x, sy)
				for c := 0; c < 4; c++ {
					acc[c] += kv * float64(tmp.Pix[o+c])
				}
			}
			o := out.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				out.Pix[o+c] = clampU8(acc[c])
			}
		}
	}
	return out
}
