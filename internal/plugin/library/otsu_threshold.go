package library

import (
	"image"
	"image/color"

	"neuropixel/internal/plugin"
)

// OtsuThreshold binarizes the image at a threshold chosen by Otsu's
// between-class variance maximization.
type OtsuThreshold struct{}

func (OtsuThreshold) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "otsu_threshold",
		DisplayName: "Otsu Threshold",
		Description: "Automatic binarization using Otsu's method",
		Category:    "Segmentation",
		Params: []plugin.ParamSpec{
			{
				Name:        "invert",
				Label:       "Invert",
				Description: "Invert the binary result",
				Kind:        plugin.KindBool,
				Default:     false,
			},
			{
				Name:        "method",
				Label:       "Method",
				Description: "Thresholding method variant",
				Kind:        plugin.KindSelect,
				Default:     "binary",
				Options: []plugin.Option{
					{Value: "binary", Label: "Binary"},
					{Value: "binary_inv", Label: "Binary Inverted"},
					{Value: "trunc", Label: "Truncate"},
					{Value: "tozero", Label: "To Zero"},
				},
			},
		},
	}
}

func (OtsuThreshold) Apply(img image.Image, params map[string]any) (image.Image, error) {
	invert := plugin.BoolParam(params, "invert", false)
	method := plugin.StringParam(params, "method", "binary")

	gray := toGray(img)
	thresh := otsuLevel(gray)

	b := gray.Bounds()
	out := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := gray.GrayAt(x, y).Y
			var o uint8
			switch method {
			case "binary_inv":
				if v <= thresh {
					o = 255
				}
			case "trunc":
				o = v
				if v > thresh {
					o = thresh
				}
			case "tozero":
				if v > thresh {
					o = v
				}
			default: // binary
				if v > thresh {
					o = 255
				}
			}
			if invert {
				o = 255 - o
			}
			out.SetGray(x, y, color.Gray{Y: o})
		}
	}
	return out, nil
}

// otsuLevel picks the histogram split that maximizes between-class
// variance.
func otsuLevel(img *image.Gray) uint8 {
	var hist [256]int
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			hist[img.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var best float64
	var level uint8
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = uint8(i)
		}
	}
	return level
}
