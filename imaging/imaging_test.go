package imaging

import (
	"bytes"
	"testing"
)

func TestPixelBufferBasics(t *testing.T) {
	p := NewColor(4, 3)
	if len(p.Pix) != 4*3*3 {
		t.Fatalf("pix length = %d, want %d", len(p.Pix), 36)
	}

	p.Set(2, 1, 0, 200)
	if got := p.At(2, 1, 0); got != 200 {
		t.Errorf("At = %d, want 200", got)
	}
	if !p.Inside(3, 2) || p.Inside(4, 0) || p.Inside(0, -1) {
		t.Error("Inside bounds check wrong")
	}

	clone := p.Clone()
	clone.Pix[0] = 99
	if p.Pix[0] == 99 {
		t.Error("Clone shares backing storage")
	}
}

func TestGrayPreservesNeutral(t *testing.T) {
	p := NewColor(2, 2)
	for i := 0; i < len(p.Pix); i++ {
		p.Pix[i] = 137
	}
	g := p.Gray()
	if g.Channels != 1 {
		t.Fatalf("gray channels = %d", g.Channels)
	}
	for i, v := range g.Pix {
		if v != 137 {
			t.Fatalf("gray[%d] = %d, want 137", i, v)
		}
	}
}

func TestValidate(t *testing.T) {
	good := NewGray(5, 5)
	if err := good.Validate(); err != nil {
		t.Errorf("valid buffer rejected: %v", err)
	}

	bad := &PixelBuffer{Width: 5, Height: 5, Channels: 1, Pix: make([]uint8, 3)}
	if err := bad.Validate(); err == nil {
		t.Error("truncated buffer accepted")
	}
	zero := &PixelBuffer{Channels: 1}
	if err := zero.Validate(); err == nil {
		t.Error("zero-size buffer accepted")
	}
}

func TestResizeHalves(t *testing.T) {
	p := NewColor(8, 8)
	p.Fill(90)
	out := p.Resize(4, 4, InterpBilinear)
	if out.Width != 4 || out.Height != 4 || out.Channels != 3 {
		t.Fatalf("resize produced %dx%dx%d", out.Width, out.Height, out.Channels)
	}
	for _, v := range out.Pix {
		if v != 90 {
			t.Fatalf("flat image changed value to %d on resize", v)
		}
	}
}

func TestFitWithin(t *testing.T) {
	p := NewColor(2400, 1200)
	out, scale := p.FitWithin(1200)
	if out.Width != 1200 || out.Height != 600 {
		t.Errorf("fit produced %dx%d, want 1200x600", out.Width, out.Height)
	}
	if scale != 0.5 {
		t.Errorf("scale = %v, want 0.5", scale)
	}

	small := NewColor(300, 200)
	kept, scale := small.FitWithin(1200)
	if kept.Width != 300 || kept.Height != 200 || scale != 1.0 {
		t.Errorf("small image should pass through, got %dx%d scale %v", kept.Width, kept.Height, scale)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	p := NewColor(5, 4)
	for i := range p.Pix {
		p.Pix[i] = uint8(i * 7)
	}

	data, err := p.EncodePNG()
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Width != 5 || back.Height != 4 {
		t.Fatalf("decoded size %dx%d", back.Width, back.Height)
	}
	if !bytes.Equal(back.Pix, p.Pix) {
		t.Error("PNG round trip altered pixels")
	}
}

func TestGrayCodecRoundTrip(t *testing.T) {
	m := NewGray(6, 5)
	for i := range m.Pix {
		m.Pix[i] = uint8(i * 9)
	}

	data, err := m.EncodePNG()
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Channels != GrayChannels {
		t.Fatalf("gray PNG decoded to %d channels, want 1", back.Channels)
	}
	if back.Width != 6 || back.Height != 5 {
		t.Fatalf("decoded size %dx%d", back.Width, back.Height)
	}
	if !bytes.Equal(back.Pix, m.Pix) {
		t.Error("gray PNG round trip altered pixels")
	}
}

func TestDecodeBase64DataURL(t *testing.T) {
	p := NewGray(3, 3)
	p.Fill(128)
	encoded, err := p.EncodeBase64PNG()
	if err != nil {
		t.Fatal(err)
	}

	for _, payload := range []string{encoded, "data:image/png;base64," + encoded} {
		img, err := DecodeBase64(payload)
		if err != nil {
			t.Fatalf("DecodeBase64: %v", err)
		}
		if img.Width != 3 || img.Height != 3 {
			t.Errorf("decoded size %dx%d", img.Width, img.Height)
		}
	}

	if _, err := DecodeBase64("%%%not-base64%%%"); err == nil {
		t.Error("garbage payload should fail")
	}
}

func TestBoundingBoxClip(t *testing.T) {
	b := BoundingBox{X: -5, Y: 10, Width: 30, Height: 30}
	clipped := b.Clip(20, 20)
	if clipped.X != 0 || clipped.Y != 10 || clipped.Width != 20 || clipped.Height != 10 {
		t.Errorf("clipped = %+v", clipped)
	}

	outside := BoundingBox{X: 50, Y: 50, Width: 10, Height: 10}
	if !outside.Clip(20, 20).Empty() {
		t.Error("fully outside box should clip to empty")
	}
}

func TestBoundingBoxToQuadOrder(t *testing.T) {
	b := BoundingBox{X: 2, Y: 3, Width: 10, Height: 5}
	q := b.ToQuad()
	want := Quad{
		{X: 2, Y: 3},
		{X: 12, Y: 3},
		{X: 12, Y: 8},
		{X: 2, Y: 8},
	}
	if q != want {
		t.Errorf("quad = %+v, want clockwise from top-left %+v", q, want)
	}
}

func TestQuadDegenerate(t *testing.T) {
	line := Quad{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	if !line.Degenerate() {
		t.Error("collinear quad not flagged")
	}
	ok := Quad{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	if ok.Degenerate() {
		t.Error("square flagged degenerate")
	}
}

func TestQuadFillCoversInterior(t *testing.T) {
	q := Quad{{X: 2, Y: 2}, {X: 8, Y: 2}, {X: 8, Y: 8}, {X: 2, Y: 8}}
	m := q.Fill(12, 12)

	if m.Pix[5*12+5] != 255 {
		t.Error("interior pixel not filled")
	}
	if m.Pix[0] != 0 || m.Pix[11*12+11] != 0 {
		t.Error("exterior pixel filled")
	}
}

func TestSobelFlatImageIsQuiet(t *testing.T) {
	p := NewGray(10, 10)
	p.Fill(77)
	grad := p.SobelMagnitude()
	for i, v := range grad.Pix {
		if v != 0 {
			t.Fatalf("gradient %d at flat pixel %d", v, i)
		}
	}
	if d := p.EdgeDensity(10); d != 0 {
		t.Errorf("edge density = %v on a flat image", d)
	}
}

func TestEdgeDensityStep(t *testing.T) {
	p := NewGray(10, 10)
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			p.Pix[y*10+x] = 255
		}
	}
	if d := p.EdgeDensity(50); d == 0 {
		t.Error("step edge produced no gradient response")
	}
}
