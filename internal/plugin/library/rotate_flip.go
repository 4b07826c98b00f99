package library

import (
	"image"
	"math"

	"neuropixel/internal/plugin"
)

// RotateFlip rotates by an arbitrary angle (or a quick 90-degree
// preset) and mirrors horizontally or vertically.
type RotateFlip struct{}

func (RotateFlip) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "rotate_flip",
		DisplayName: "Rotate & Flip",
		Description: "Rotate and flip images",
		Category:    "Transform",
		Params: []plugin.ParamSpec{
			{
				Name:        "angle",
				Label:       "Angle",
				Description: "Rotation angle in degrees",
				Kind:        plugin.KindFloat,
				Default:     0.0,
				Min:         -180.0,
				Max:         180.0,
				Step:        1.0,
			},
			{
				Name:        "quick_rotate",
				Label:       "Quick Rotate",
				Description: "Quick rotation presets (overrides angle)",
				Kind:        plugin.KindSelect,
				Default:     "none",
				Options: []plugin.Option{
					{Value: "none", Label: "Use Angle"},
					{Value: "90", Label: "90° CW"},
					{Value: "-90", Label: "90° CCW"},
					{Value: "180", Label: "180°"},
				},
			},
			{
				Name:        "flip_horizontal",
				Label:       "Flip Horizontal",
				Description: "Mirror image horizontally",
				Kind:        plugin.KindBool,
				Default:     false,
			},
			{
				Name:        "flip_vertical",
				Label:       "Flip Vertical",
				Description: "Mirror image vertically",
				Kind:        plugin.KindBool,
				Default:     false,
			},
			{
				Name:        "expand",
				Label:       "Expand Canvas",
				Description: "Expand canvas to fit rotated image (vs crop)",
				Kind:        plugin.KindBool,
				Default:     true,
			},
		},
	}
}

func (RotateFlip) Apply(img image.Image, params map[string]any) (image.Image, error) {
	angle := plugin.FloatParam(params, "angle", 0)
	quick := plugin.StringParam(params, "quick_rotate", "none")
	flipH := plugin.BoolParam(params, "flip_horizontal", false)
	flipV := plugin.BoolParam(params, "flip_vertical", false)
	expand := plugin.BoolParam(params, "expand", true)

	out := cloneRGBA(img)

	switch quick {
	case "90":
		out = rotate90(out, true)
	case "-90":
		out = rotate90(out, false)
	case "180":
		out = rotate90(rotate90(out, true), true)
	default:
		if angle != 0 {
			out = rotateArbitrary(out, angle, expand)
		}
	}

	if flipH {
		out = flip(out, true)
	}
	if flipV {
		out = flip(out, false)
	}
	return out, nil
}

func rotate90(src *image.RGBA, clockwise bool) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if clockwise {
				out.SetRGBA(h-1-y, x, src.RGBAAt(x, y))
			} else {
				out.SetRGBA(y, w-1-x, src.RGBAAt(x, y))
			}
		}
	}
	return out
}

func flip(src *image.RGBA, horizontal bool) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if horizontal {
				out.SetRGBA(w-1-x, y, src.RGBAAt(x, y))
			} else {
				out.SetRGBA(x, h-1-y, src.RGBAAt(x, y))
			}
		}
	}
	return out
}

// rotateArbitrary maps destination pixels back through the inverse
// rotation with nearest-neighbor sampling.
func rotateArbitrary(src *image.RGBA, degrees float64, expand bool) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)

	ow, oh := w, h
	if expand {
		ow = int(math.Ceil(math.Abs(float64(w)*cos) + math.Abs(float64(h)*sin)))
		oh = int(math.Ceil(math.Abs(float64(w)*sin) + math.Abs(float64(h)*cos)))
	}

	out := image.NewRGBA(image.Rect(0, 0, ow, oh))
	cx, cy := float64(w)/2, float64(h)/2
	ocx, ocy := float64(ow)/2, float64(oh)/2

	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			dx := float64(x) + 0.5 - ocx
			dy := float64(y) + 0.5 - ocy
			sx := int(dx*cos + dy*sin + cx)
			sy := int(-dx*sin + dy*cos + cy)
			if sx >= 0 && sx < w && sy >= 0 && sy < h {
				out.SetRGBA(x, y, src.RGBAAt(sx, sy))
			}
		}
	}
	return out
}
