package pipeline

import (
	"errors"
	"testing"

	"github.com/renderease/surfacekit/blend"
	"github.com/renderease/surfacekit/imaging"
	"github.com/renderease/surfacekit/segment"
)

func blockImage(w, h int, block imaging.BoundingBox, fg, bg [3]uint8) *imaging.PixelBuffer {
	img := imaging.NewColor(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := bg
			if block.Contains(x, y) {
				c = fg
			}
			o := img.Offset(x, y)
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = c[0], c[1], c[2]
		}
	}
	return img
}

func solidColor(w, h int, r, g, b uint8) *imaging.PixelBuffer {
	img := imaging.NewColor(w, h)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = r, g, b
	}
	return img
}

func TestSegmentEnforcesPixelBudget(t *testing.T) {
	p := New(100)
	img := imaging.NewColor(20, 20)
	hint := segment.Hint{Seed: &imaging.Point{X: 5, Y: 5}}

	_, err := p.Segment(img, hint, segment.MethodFloodFill, segment.Params{})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("err = %v, want ErrImageTooLarge", err)
	}
}

func TestRefineMaskFeathersBand(t *testing.T) {
	p := New(0)
	raw := imaging.NewGray(30, 30)
	for y := 8; y < 22; y++ {
		for x := 8; x < 22; x++ {
			raw.Pix[y*30+x] = 255
		}
	}
	raw.Pix[2*30+2] = 255 // noise to clean

	alpha, err := p.RefineMask(raw, 2)
	if err != nil {
		t.Fatalf("RefineMask: %v", err)
	}
	if alpha.Pix[2*30+2] != 0 {
		t.Error("noise speck survived refinement")
	}
	if alpha.Pix[15*30+15] != 255 {
		t.Error("interior lost alpha")
	}

	intermediate := false
	for _, v := range alpha.Pix {
		if v > 0 && v < 255 {
			intermediate = true
			break
		}
	}
	if !intermediate {
		t.Error("feathering produced no transition band")
	}
}

func TestApplyCompositesInsideQuad(t *testing.T) {
	p := New(0)
	target := solidColor(40, 40, 20, 20, 20)
	tex := solidColor(8, 8, 0, 200, 0)
	quad := imaging.Quad{
		{X: 10, Y: 10},
		{X: 30, Y: 10},
		{X: 30, Y: 30},
		{X: 10, Y: 30},
	}
	rawMask := quad.Fill(40, 40)

	out, err := p.Apply(target, tex, rawMask, quad, blend.Settings{Mode: blend.ModeNormal, Opacity: 1})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := out.ColorAt(20, 20); got.G != 200 || got.R != 0 {
		t.Errorf("quad interior = %+v, want the texture color", got)
	}
	if got := out.ColorAt(2, 2); got.R != 20 || got.G != 20 || got.B != 20 {
		t.Errorf("outside quad = %+v, want untouched target", got)
	}
}

func TestProcessEndToEnd(t *testing.T) {
	block := imaging.BoundingBox{X: 15, Y: 15, Width: 20, Height: 20}
	target := blockImage(60, 60, block, [3]uint8{200, 40, 40}, [3]uint8{40, 40, 200})
	tex := solidColor(8, 8, 0, 200, 0)

	p := New(0)
	hint := segment.Hint{Seed: &imaging.Point{X: 25, Y: 25}}
	res, err := p.Process(target, tex, hint, segment.MethodFloodFill, segment.Params{Tolerance: 10},
		nil, blend.Settings{Mode: blend.ModeNormal, Opacity: 1})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if res.EmptyMask {
		t.Fatal("segmentation came back empty")
	}
	if res.Image.Width != 60 || res.Image.Height != 60 {
		t.Fatalf("output size %dx%d", res.Image.Width, res.Image.Height)
	}
	if res.Confidence <= 0 {
		t.Errorf("confidence = %v", res.Confidence)
	}

	if got := res.Image.ColorAt(25, 25); got.G != 200 {
		t.Errorf("block center = %+v, want textured green", got)
	}
	if got := res.Image.ColorAt(2, 2); got.B != 200 {
		t.Errorf("far background = %+v, want untouched blue", got)
	}
}

func TestProcessEmptySegmentationReturnsTarget(t *testing.T) {
	// A single-pixel region refines away entirely, leaving nothing to
	// texture.
	target := solidColor(40, 40, 10, 10, 120)
	target.Set(20, 20, 0, 250)
	tex := solidColor(8, 8, 0, 200, 0)

	p := New(0)
	hint := segment.Hint{Seed: &imaging.Point{X: 20, Y: 20}}
	res, err := p.Process(target, tex, hint, segment.MethodFloodFill, segment.Params{Tolerance: 5},
		nil, blend.Settings{Mode: blend.ModeNormal, Opacity: 1})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !res.EmptyMask {
		t.Error("refined-away mask should report as empty")
	}
	for i := range res.Image.Pix {
		if res.Image.Pix[i] != target.Pix[i] {
			t.Fatal("target should come back unchanged when nothing was found")
		}
	}
}
