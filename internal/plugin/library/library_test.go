package library

import (
	"image"
	"image/color"
	"testing"

	"neuropixel/internal/plugin"
)

func testImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func defaultsFor(t plugin.Transformation) map[string]any {
	return plugin.NormalizeParams(t.Descriptor(), nil)
}

func TestAllDescriptorsValid(t *testing.T) {
	seen := make(map[string]struct{})
	for _, tr := range All() {
		desc := tr.Descriptor()
		if err := desc.Validate(); err != nil {
			t.Errorf("descriptor %q invalid: %v", desc.Name, err)
		}
		if _, dup := seen[desc.Name]; dup {
			t.Errorf("duplicate capability name %q", desc.Name)
		}
		seen[desc.Name] = struct{}{}
	}
}

func TestAllRegisterCleanly(t *testing.T) {
	reg := plugin.NewRegistry(nil)
	n, err := reg.Discover(All())
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if n != len(All()) {
		t.Fatalf("registered %d of %d transformations", n, len(All()))
	}
}

func TestAllApplyWithDefaultsDoNotMutateInput(t *testing.T) {
	for _, tr := range All() {
		desc := tr.Descriptor()
		in := testImage(12, 9, color.RGBA{R: 120, G: 80, B: 200, A: 255})
		before := make([]uint8, len(in.Pix))
		copy(before, in.Pix)

		out, err := tr.Apply(in, defaultsFor(tr))
		if err != nil {
			t.Errorf("%s: apply with defaults failed: %v", desc.Name, err)
			continue
		}
		if out == nil {
			t.Errorf("%s: nil output", desc.Name)
			continue
		}
		for i := range before {
			if in.Pix[i] != before[i] {
				t.Errorf("%s: input image mutated at pix[%d]", desc.Name, i)
				break
			}
		}
	}
}

func TestBrightnessShiftsPixels(t *testing.T) {
	tr := &BrightnessContrast{}
	in := testImage(4, 4, color.RGBA{R: 100, G: 100, B: 100, A: 255})

	params := plugin.NormalizeParams(tr.Descriptor(), map[string]any{"brightness": 50.0})
	out, err := tr.Apply(in, params)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	r, _, _, _ := out.At(0, 0).RGBA()
	if got := uint8(r >> 8); got != 150 {
		t.Fatalf("brightness +50 on 100 gave %d, want 150", got)
	}
}

func TestGrayscaleOutputs(t *testing.T) {
	tr := &Grayscale{}
	in := testImage(3, 3, color.RGBA{R: 200, G: 40, B: 90, A: 255})

	out, err := tr.Apply(in, defaultsFor(tr))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if _, ok := out.(*image.Gray); !ok {
		t.Fatalf("single-channel mode must return *image.Gray, got %T", out)
	}

	params := plugin.NormalizeParams(tr.Descriptor(), map[string]any{"output_channels": "rgb"})
	out, err = tr.Apply(in, params)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	r, g, b, _ := out.At(1, 1).RGBA()
	if r != g || g != b {
		t.Fatalf("rgb mode must produce equal channels, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestRotateQuickSwapsDimensions(t *testing.T) {
	tr := &RotateFlip{}
	in := testImage(8, 4, color.RGBA{A: 255})

	params := plugin.NormalizeParams(tr.Descriptor(), map[string]any{"quick_rotate": "90"})
	out, err := tr.Apply(in, params)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 8 {
		t.Fatalf("90 degree rotate gave %v, want 4x8", out.Bounds())
	}
}

func TestFlipHorizontalMirrors(t *testing.T) {
	tr := &RotateFlip{}
	in := image.NewRGBA(image.Rect(0, 0, 2, 1))
	in.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	in.SetRGBA(1, 0, color.RGBA{B: 255, A: 255})

	params := plugin.NormalizeParams(tr.Descriptor(), map[string]any{"flip_horizontal": true})
	out, err := tr.Apply(in, params)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	r, _, _, _ := out.At(1, 0).RGBA()
	if uint8(r>>8) != 255 {
		t.Fatalf("left pixel did not move right on horizontal flip")
	}
}

func TestResizeByScale(t *testing.T) {
	tr := &Resize{}
	in := testImage(10, 6, color.RGBA{R: 50, G: 50, B: 50, A: 255})

	params := plugin.NormalizeParams(tr.Descriptor(), map[string]any{"scale": 50.0})
	out, err := tr.Apply(in, params)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out.Bounds().Dx() != 5 || out.Bounds().Dy() != 3 {
		t.Fatalf("50%% scale gave %v, want 5x3", out.Bounds())
	}
}

func TestResizeKeepAspectFitsBox(t *testing.T) {
	tr := &Resize{}
	in := testImage(100, 50, color.RGBA{A: 255})

	params := plugin.NormalizeParams(tr.Descriptor(), map[string]any{
		"width": 40, "height": 40, "keep_aspect": true,
	})
	out, err := tr.Apply(in, params)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 20 {
		t.Fatalf("aspect fit gave %v, want 40x20", out.Bounds())
	}
}

func TestOtsuProducesBinaryOutput(t *testing.T) {
	tr := &OtsuThreshold{}
	// Half dark, half bright gives a clean histogram valley.
	in := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.RGBA{R: 30, G: 30, B: 30, A: 255}
			if x >= 4 {
				c = color.RGBA{R: 220, G: 220, B: 220, A: 255}
			}
			in.SetRGBA(x, y, c)
		}
	}

	out, err := tr.Apply(in, defaultsFor(tr))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v, _, _, _ := out.At(x, y).RGBA()
			g := uint8(v >> 8)
			if g != 0 && g != 255 {
				t.Fatalf("binary threshold emitted %d at (%d,%d)", g, x, y)
			}
		}
	}
}

func TestGaussianBlurSmoothsEdge(t *testing.T) {
	tr := &GaussianBlur{}
	in := image.NewRGBA(image.Rect(0, 0, 9, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			c := color.RGBA{A: 255}
			if x >= 5 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			in.SetRGBA(x, y, c)
		}
	}

	out, err := tr.Apply(in, defaultsFor(tr))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	// A pixel right at the edge must end up between the two extremes.
	r, _, _, _ := out.At(4, 4).RGBA()
	g := uint8(r >> 8)
	if g == 0 || g == 255 {
		t.Fatalf("edge pixel not blurred, got %d", g)
	}
}

func TestSaturationZeroDesaturates(t *testing.T) {
	tr := &Saturation{}
	in := testImage(4, 4, color.RGBA{R: 250, G: 20, B: 20, A: 255})

	params := plugin.NormalizeParams(tr.Descriptor(), map[string]any{"saturation": 0.0})
	out, err := tr.Apply(in, params)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	r, g, b, _ := out.At(2, 2).RGBA()
	if r != g || g != b {
		t.Fatalf("saturation 0 must be gray, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestCannyEdgeRuns(t *testing.T) {
	tr := &CannyEdge{}
	in := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := color.RGBA{A: 255}
			if x >= 8 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			in.SetRGBA(x, y, c)
		}
	}

	out, err := tr.Apply(in, defaultsFor(tr))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	edges := 0
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v, _, _, _ := out.At(x, y).RGBA()
			if v > 0 {
				edges++
			}
		}
	}
	if edges == 0 {
		t.Fatal("vertical step edge produced no edge pixels")
	}
}
