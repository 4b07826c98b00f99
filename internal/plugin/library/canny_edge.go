package library

import (
	"image"
	"image/color"
	"math"
	"sort"

	"neuropixel/internal/plugin"
)

// CannyEdge detects edges via Gaussian smoothing, Sobel gradients and
// hysteresis thresholding. The low/high thresholds arrive as a
// dual-range parameter (threshold_low / threshold_high).
type CannyEdge struct{}

func (CannyEdge) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "canny_edge",
		DisplayName: "Canny Edge Detection",
		Description: "Detect edges using the Canny algorithm with hysteresis thresholding",
		Category:    "Edge Detection",
		Params: []plugin.ParamSpec{
			{
				Name:        "sigma",
				Label:       "Sigma (Blur)",
				Description: "Gaussian blur sigma for noise reduction",
				Kind:        plugin.KindFloat,
				Default:     1.0,
				Min:         0.1,
				Max:         10.0,
				Step:        0.1,
			},
			{
				Name:        "threshold",
				Label:       "Thresholds",
				Description: "Low and high thresholds for hysteresis",
				Kind:        plugin.KindRange,
				Min:         0.0,
				Max:         1.0,
				Step:        0.01,
				DefaultLow:  0.1,
				DefaultHigh: 0.3,
			},
			{
				Name:        "use_quantiles",
				Label:       "Use Quantiles",
				Description: "Interpret thresholds as quantiles (0-1 range)",
				Kind:        plugin.KindBool,
				Default:     true,
			},
		},
	}
}

func (CannyEdge) Apply(img image.Image, params map[string]any) (image.Image, error) {
	sigma := plugin.FloatParam(params, "sigma", 1.0)
	low := plugin.FloatParam(params, "threshold_low", 0.1)
	high := plugin.FloatParam(params, "threshold_high", 0.3)
	useQuantiles := plugin.BoolParam(params, "use_quantiles", true)
	if low > high {
		low, high = high, low
	}

	gray := toGray(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()

	smoothed := blurGray(gray, gaussKernel(oddKernelFor(sigma), sigma))

	// Sobel gradient magnitude, normalized to [0,1].
	mag := make([]float64, w*h)
	var magMax float64
	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return float64(smoothed.GrayAt(x, y).Y)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			m := math.Hypot(gx, gy)
			mag[y*w+x] = m
			if m > magMax {
				magMax = m
			}
		}
	}
	if magMax > 0 {
		for i := range mag {
			mag[i] /= magMax
		}
	}

	if useQuantiles {
		low, high = quantile(mag, low), quantile(mag, high)
	}

	// Hysteresis: seed from strong pixels, grow through weak ones.
	const (
		unseen = 0
		weak   = 1
		strong = 2
	)
	marks := make([]uint8, w*h)
	var stack []int
	for i, m := range mag {
		if m >= high {
			marks[i] = strong
			stack = append(stack, i)
		} else if m >= low {
			marks[i] = weak
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if marks[j] == weak {
					marks[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, m := range marks {
		if m == strong {
			out.SetGray(i%w, i/w, color.Gray{Y: 255})
		}
	}
	return out, nil
}

func oddKernelFor(sigma float64) int {
	size := int(sigma*6) | 1
	if size < 3 {
		size = 3
	}
	if size > 31 {
		size = 31
	}
	return size
}

func blurGray(src *image.Gray, kernel []float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	half := len(kernel) / 2

	tmp := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range kernel {
				sx := x + i - half
				if sx < 0 {
					sx = 0
				} else if sx >= w {
					sx = w - 1
				}
				acc += kv * float64(src.GrayAt(sx, y).Y)
			}
			tmp.SetGray(x, y, color.Gray{Y: clampU8(acc)})
		}
	}
	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range kernel {
				sy := y + i - half
				if sy < 0 {
					sy = 0
				} else if sy >= h {
					sy = h - 1
				}
				acc += kv * float64(tmp.GrayAt(x, sy).Y)
			}
			out.SetGray(x, y, color.Gray{Y: clampU8(acc)})
		}
	}
	return out
}

func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(q * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
