package library

import (
	"image"
	"image/color"

	"neuropixel/internal/plugin"
)

// Grayscale converts color images to gray using a selectable weighting.
type Grayscale struct{}

func (Grayscale) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "rgb_to_grayscale",
		DisplayName: "RGB to Grayscale",
		Description: "Converts color images to grayscale using various conversion methods",
		Category:    "Preprocessing",
		Params: []plugin.ParamSpec{
			{
				Name:        "method",
				Label:       "Method",
				Description: "Grayscale conversion algorithm",
				Kind:        plugin.KindSelect,
				Default:     "luminance",
				Options: []plugin.Option{
					{Value: "luminance", Label: "Luminance (Rec. 709)"},
					{Value: "average", Label: "Average (R+G+B)/3"},
					{Value: "lightness", Label: "Lightness (max+min)/2"},
				},
			},
			{
				Name:        "output_channels",
				Label:       "Output",
				Description: "Output format",
				Kind:        plugin.KindSelect,
				Default:     "single",
				Options: []plugin.Option{
					{Value: "single", Label: "Single Channel (Grayscale)"},
					{Value: "rgb", Label: "3-Channel (Gray RGB)"},
				},
			},
		},
	}
}

func (Grayscale) Apply(img image.Image, params map[string]any) (image.Image, error) {
	method := plugin.StringParam(params, "method", "luminance")
	outputChannels := plugin.StringParam(params, "output_channels", "single")

	src := cloneRGBA(img)
	b := src.Bounds()
	gray := image.NewGray(b)

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			o := src.PixOffset(x, y)
			r := float64(src.Pix[o])
			g := float64(src.Pix[o+1])
			bl := float64(src.Pix[o+2])

			var v float64
			switch method {
			case "average":
				v = (r + g + bl) / 3
			case "lightness":
				v = (max3(r, g, bl) + min3(r, g, bl)) / 2
			default: // luminance
				v = 0.2126*r + 0.7152*g + 0.0722*bl
			}
			gray.SetGray(x, y, color.Gray{Y: clampU8(v)})
		}
	}

	if outputChannels == "rgb" {
		out := image.NewRGBA(b)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				v := gray.GrayAt(x, y).Y
				out.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
			}
		}
		return out, nil
	}
	return gray, nil
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
