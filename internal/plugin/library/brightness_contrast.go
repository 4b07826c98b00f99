package library

import (
	"image"

	"neuropixel/internal/plugin"
)

// BrightnessContrast adjusts brightness additively and contrast as a
// multiplier around the mid-gray point.
type BrightnessContrast struct{}

func (BrightnessContrast) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "brightness_contrast",
		DisplayName: "Brightness & Contrast",
		Description: "Adjust image brightness and contrast",
		Category:    "Adjustments",
		Params: []plugin.ParamSpec{
			{
				Name:        "brightness",
				Label:       "Brightness",
				Description: "Brightness adjustment (-100 to 100)",
				Kind:        plugin.KindFloat,
				Default:     0.0,
				Min:         -100.0,
				Max:         100.0,
				Step:        1.0,
			},
			{
				Name:        "contrast",
				Label:       "Contrast",
				Description: "Contrast multiplier (0.5 to 2.0)",
				Kind:        plugin.KindFloat,
				Default:     1.0,
				Min:         0.5,
				Max:         2.0,
				Step:        0.05,
			},
		},
	}
}

func (BrightnessContrast) Apply(img image.Image, params map[string]any) (image.Image, error) {
	brightness := plugin.FloatParam(params, "brightness", 0)
	contrast := plugin.FloatParam(params, "contrast", 1)

	out := cloneRGBA(img)
	px := out.Pix
	for i := 0; i < len(px); i += 4 {
		for c := 0; c < 3; c++ {
			v := (float64(px[i+c])-127.5)*contrast + 127.5 + brightness
			px[i+c] = clampU8(v)
		}
	}
	return out, nil
}
