package library

import (
	"image"

	"neuropixel/internal/plugin"
)

// Saturation scales color intensity, with a vibrance term that boosts
// muted colors more than already-saturated ones.
type Saturation struct{}

func (Saturation) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "saturation",
		DisplayName: "Saturation & Vibrance",
		Description: "Adjust color saturation and vibrance",
		Category:    "Adjustments",
		Params: []plugin.ParamSpec{
			{
				Name:        "saturation",
				Label:       "Saturation",
				Description: "Saturation multiplier (0 = grayscale, 1 = normal, 2 = vivid)",
				Kind:        plugin.KindFloat,
				Default:     1.0,
				Min:         0.0,
				Max:         3.0,
				Step:        0.1,
			},
			{
				Name:        "vibrance",
				Label:       "Vibrance",
				Description: "Vibrance adjustment (smart saturation for muted colors)",
				Kind:        plugin.KindFloat,
				Default:     0.0,
				Min:         -100.0,
				Max:         100.0,
				Step:        5.0,
			},
		},
	}
}

func (Saturation) Apply(img image.Image, params map[string]any) (image.Image, error) {
	sat := plugin.FloatParam(params, "saturation", 1)
	vib := plugin.FloatParam(params, "vibrance", 0) / 100

	out := cloneRGBA(img)
	px := out.Pix
	for i := 0; i < len(px); i += 4 {
		r := float64(px[i])
		g := float64(px[i+1])
		b := float64(px[i+2])
		luma := 0.2126*r + 0.7152*g + 0.0722*b

		// Vibrance scales with how far the pixel already is from gray.
		mx := max3(r, g, b)
		colorfulness := (mx - min3(r, g, b)) / 255
		factor := sat + vib*(1-colorfulness)

		px[i] = clampU8(luma + (r-luma)*factor)
		px[i+1] = clampU8(luma + (g-luma)*factor)
		px[i+2] = clampU8(luma + (b-luma)*factor)
	}
	return out, nil
}
