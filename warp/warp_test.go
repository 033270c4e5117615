package warp

import (
	"errors"
	"math"
	"testing"

	"github.com/renderease/surfacekit/imaging"
)

func TestEstimateMapsCorners(t *testing.T) {
	src := imaging.BoundingBox{Width: 100, Height: 50}
	dst := imaging.Quad{
		{X: 10, Y: 5},
		{X: 180, Y: 20},
		{X: 170, Y: 140},
		{X: 20, Y: 120},
	}

	hom, err := Estimate(src, dst)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	corners := src.ToQuad()
	for i := 0; i < 4; i++ {
		got := hom.Apply(corners[i])
		if math.Abs(got.X-dst[i].X) > 1e-6 || math.Abs(got.Y-dst[i].Y) > 1e-6 {
			t.Errorf("corner %d maps to (%v,%v), want (%v,%v)", i, got.X, got.Y, dst[i].X, dst[i].Y)
		}
	}
}

func TestEstimateIdentityRect(t *testing.T) {
	src := imaging.BoundingBox{Width: 10, Height: 10}
	hom, err := Estimate(src, src.ToQuad())
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	p := imaging.Point{X: 3.5, Y: 7.25}
	got := hom.Apply(p)
	if math.Abs(got.X-p.X) > 1e-6 || math.Abs(got.Y-p.Y) > 1e-6 {
		t.Errorf("identity mapping moved (%v,%v) to (%v,%v)", p.X, p.Y, got.X, got.Y)
	}
}

func TestInvertRoundTrip(t *testing.T) {
	src := imaging.BoundingBox{Width: 64, Height: 64}
	dst := imaging.Quad{
		{X: 5, Y: 12},
		{X: 90, Y: 3},
		{X: 100, Y: 88},
		{X: 0, Y: 95},
	}
	hom, err := Estimate(src, dst)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	inv, err := hom.Invert()
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}

	for _, p := range []imaging.Point{{X: 1, Y: 1}, {X: 30, Y: 40}, {X: 63, Y: 10}} {
		back := inv.Apply(hom.Apply(p))
		if math.Abs(back.X-p.X) > 1e-3 || math.Abs(back.Y-p.Y) > 1e-3 {
			t.Errorf("round trip moved (%v,%v) to (%v,%v)", p.X, p.Y, back.X, back.Y)
		}
	}
}

func TestEstimateDegenerate(t *testing.T) {
	src := imaging.BoundingBox{Width: 10, Height: 10}

	collinear := imaging.Quad{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	if _, err := Estimate(src, collinear); !errors.Is(err, ErrDegenerateCorrespondence) {
		t.Errorf("collinear corners: err = %v, want ErrDegenerateCorrespondence", err)
	}

	coincident := imaging.Quad{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 9, Y: 2}, {X: 1, Y: 8}}
	if _, err := Estimate(src, coincident); !errors.Is(err, ErrDegenerateCorrespondence) {
		t.Errorf("coincident corners: err = %v, want ErrDegenerateCorrespondence", err)
	}

	if _, err := Estimate(imaging.BoundingBox{}, collinear); !errors.Is(err, ErrDegenerateCorrespondence) {
		t.Errorf("empty source rect: err = %v, want ErrDegenerateCorrespondence", err)
	}
}

func checkerTexture(size int) *imaging.PixelBuffer {
	tex := imaging.NewColor(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			o := tex.Offset(x, y)
			tex.Pix[o], tex.Pix[o+1], tex.Pix[o+2] = v, v, v
		}
	}
	return tex
}

func TestApplyTiles(t *testing.T) {
	tex := checkerTexture(4)
	out, err := Apply(tex, Identity(), 8, 8, WrapTile)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := tex.At(x%4, y%4, 0)
			if got := out.At(x, y, 0); got != want {
				t.Fatalf("tiled sample at (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestApplyClamps(t *testing.T) {
	tex := checkerTexture(4)
	out, err := Apply(tex, Identity(), 8, 8, WrapClamp)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := out.At(7, 7, 0), tex.At(3, 3, 0); got != want {
		t.Errorf("clamped sample = %d, want edge texel %d", got, want)
	}
}
