package imaging

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Interpolation selects the resampling kernel for Resize.
type Interpolation int

const (
	InterpNearest Interpolation = iota
	InterpBilinear
)

// Resize resamples the buffer to width x height. Color buffers go through
// x/image/draw scalers; nearest on masks keeps them binary.
func (p *PixelBuffer) Resize(width, height int, interp Interpolation) *PixelBuffer {
	if width == p.Width && height == p.Height {
		return p.Clone()
	}
	var scaler xdraw.Scaler
	switch interp {
	case InterpNearest:
		scaler = xdraw.NearestNeighbor
	default:
		scaler = xdraw.BiLinear
	}

	if p.Channels == GrayChannels {
		src := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
		copy(src.Pix, p.Pix)
		dst := image.NewGray(image.Rect(0, 0, width, height))
		scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		out := NewGray(width, height)
		copy(out.Pix, dst.Pix)
		return out
	}

	src := p.ToImage().(*image.RGBA)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	out := NewColor(width, height)
	for i, j := 0, 0; j < len(dst.Pix); i, j = i+ColorChannels, j+4 {
		out.Pix[i] = dst.Pix[j]
		out.Pix[i+1] = dst.Pix[j+1]
		out.Pix[i+2] = dst.Pix[j+2]
	}
	return out
}

// FitWithin scales the buffer down so its longest side is at most maxSide,
// preserving aspect ratio. Returns the (possibly cloned) buffer and the
// applied scale factor.
func (p *PixelBuffer) FitWithin(maxSide int) (*PixelBuffer, float64) {
	longest := max(p.Width, p.Height)
	if longest <= maxSide {
		return p.Clone(), 1.0
	}
	scale := float64(maxSide) / float64(longest)
	w := int(float64(p.Width) * scale)
	h := int(float64(p.Height) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return p.Resize(w, h, InterpBilinear), scale
}
