package library

import (
	"fmt"
	"image"
	"image/color"

	"neuropixel/internal/plugin"
)

// Resize scales the image to explicit dimensions or by percentage.
type Resize struct{}

func (Resize) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "resize",
		DisplayName: "Resize",
		Description: "Resize images by dimensions or percentage",
		Category:    "Transform",
		Params: []plugin.ParamSpec{
			{
				Name:        "width",
				Label:       "Width",
				Description: "Target width in pixels (0 = auto from height)",
				Kind:        plugin.KindInt,
				Default:     0,
				Min:         0,
				Max:         8192,
				Step:        1,
			},
			{
				Name:        "height",
				Label:       "Height",
				Description: "Target height in pixels (0 = auto from width)",
				Kind:        plugin.KindInt,
				Default:     0,
				Min:         0,
				Max:         8192,
				Step:        1,
			},
			{
				Name:        "scale",
				Label:       "Scale %",
				Description: "Scale percentage (overrides width/height if not 100)",
				Kind:        plugin.KindFloat,
				Default:     100.0,
				Min:         1.0,
				Max:         500.0,
				Step:        5.0,
			},
			{
				Name:        "keep_aspect",
				Label:       "Keep Aspect Ratio",
				Description: "Maintain original aspect ratio",
				Kind:        plugin.KindBool,
				Default:     true,
			},
			{
				Name:        "interpolation",
				Label:       "Interpolation",
				Description: "Interpolation method",
				Kind:        plugin.KindSelect,
				Default:     "linear",
				Options: []plugin.Option{
					{Value: "nearest", Label: "Nearest Neighbor"},
					{Value: "linear", Label: "Bilinear"},
				},
			},
		},
	}
}

func (Resize) Apply(img image.Image, params map[string]any) (image.Image, error) {
	width := plugin.IntParam(params, "width", 0)
	height := plugin.IntParam(params, "height", 0)
	scale := plugin.FloatParam(params, "scale", 100)
	keepAspect := plugin.BoolParam(params, "keep_aspect", true)
	interp := plugin.StringParam(params, "interpolation", "linear")

	src := cloneRGBA(img)
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()

	var tw, th int
	switch {
	case scale != 100:
		tw = int(float64(sw) * scale / 100)
		th = int(float64(sh) * scale / 100)
	case width == 0 && height == 0:
		return src, nil
	case width == 0:
		th = height
		tw = sw * height / sh
	case height == 0:
		tw = width
		th = sh * width / sw
	default:
		tw, th = width, height
		if keepAspect {
			// Fit within the requested box.
			if sw*th > sh*tw {
				th = sh * tw / sw
			} else {
				tw = sw * th / sh
			}
		}
	}
	if tw < 1 || th < 1 {
		return nil, fmt.Errorf("resize: target %dx%d is degenerate", tw, th)
	}

	out := image.NewRGBA(image.Rect(0, 0, tw, th))
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			fx := (float64(x) + 0.5) * float64(sw) / float64(tw)
			fy := (float64(y) + 0.5) * float64(sh) / float64(th)
			if interp == "nearest" {
				sx, sy := int(fx), int(fy)
				if sx >= sw {
					sx = sw - 1
				}
				if sy >= sh {
					sy = sh - 1
				}
				out.SetRGBA(x, y, src.RGBAAt(sx, sy))
				continue
			}
			out.SetRGBA(x, y, bilinear(src, fx-0.5, fy-0.5))
		}
	}
	return out, nil
}

func bilinear(src *image.RGBA, fx, fy float64) color.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	x0 := int(fx)
	y0 := int(fy)
	if fx < 0 {
		x0, fx = 0, 0
	}
	if fy < 0 {
		y0, fy = 0, 0
	}
	x1, y1 := x0+1, y0+1
	if x0 >= w {
		x0 = w - 1
	}
	if y0 >= h {
		y0 = h - 1
	}
	if x1 >= w {
		x1 = w - 1
	}
	if y1 >= h {
		y1 = h - 1
	}
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	p00 := src.RGBAAt(x0, y0)
	p10 := src.RGBAAt(x1, y0)
	p01 := src.RGBAAt(x0, y1)
	p11 := src.RGBAAt(x1, y1)

	mix := func(a, b, c2, d uint8) uint8 {
		top := float64(a)*(1-dx) + float64(b)*dx
		bot := float64(c2)*(1-dx) + float64(d)*dx
		return clampU8(top*(1-dy) + bot*dy)
	}
	return color.RGBA{
		R: mix(p00.R, p10.R, p01.R, p11.R),
		G: mix(p00.G, p10.G, p01.G, p11.G),
		B: mix(p00.B, p10.B, p01.B, p11.B),
		A: mix(p00.A, p10.A, p01.A, p11.A),
	}
}
