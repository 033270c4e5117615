package imaging

import (
	"fmt"
	"image"
	"image/color"
)

// Channel counts used throughout the pipeline.
const (
	GrayChannels  = 1
	ColorChannels = 3
)

// PixelBuffer is the shared image representation: a contiguous row-major
// grid of uint8 samples with a fixed channel count (3 for color, 1 for
// mask/alpha). Masks store the [0,1] range as 0..255 fixed point.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewPixelBuffer allocates a zeroed buffer of the given geometry.
func NewPixelBuffer(width, height, channels int) *PixelBuffer {
	return &PixelBuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// NewGray allocates a single-channel buffer.
func NewGray(width, height int) *PixelBuffer {
	return NewPixelBuffer(width, height, GrayChannels)
}

// NewColor allocates a three-channel buffer.
func NewColor(width, height int) *PixelBuffer {
	return NewPixelBuffer(width, height, ColorChannels)
}

// Clone returns a deep copy.
func (p *PixelBuffer) Clone() *PixelBuffer {
	out := &PixelBuffer{
		Width:    p.Width,
		Height:   p.Height,
		Channels: p.Channels,
		Pix:      make([]uint8, len(p.Pix)),
	}
	copy(out.Pix, p.Pix)
	return out
}

// Offset returns the index of the first sample of pixel (x, y).
func (p *PixelBuffer) Offset(x, y int) int {
	return (y*p.Width + x) * p.Channels
}

// At returns sample c of pixel (x, y). Callers must stay in bounds.
func (p *PixelBuffer) At(x, y, c int) uint8 {
	return p.Pix[(y*p.Width+x)*p.Channels+c]
}

// Set writes sample c of pixel (x, y).
func (p *PixelBuffer) Set(x, y, c int, v uint8) {
	p.Pix[(y*p.Width+x)*p.Channels+c] = v
}

// Inside reports whether (x, y) lies inside the buffer.
func (p *PixelBuffer) Inside(x, y int) bool {
	return x >= 0 && x < p.Width && y >= 0 && y < p.Height
}

// Fill sets every sample to v.
func (p *PixelBuffer) Fill(v uint8) {
	for i := range p.Pix {
		p.Pix[i] = v
	}
}

// IsMask reports whether the buffer is single channel.
func (p *PixelBuffer) IsMask() bool {
	return p.Channels == GrayChannels
}

// SameSize reports whether two buffers share width and height.
func (p *PixelBuffer) SameSize(o *PixelBuffer) bool {
	return p.Width == o.Width && p.Height == o.Height
}

// Validate checks the structural invariant width*height*channels == len(Pix).
func (p *PixelBuffer) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("imaging: non-positive dimensions %dx%d", p.Width, p.Height)
	}
	if p.Channels != GrayChannels && p.Channels != ColorChannels {
		return fmt.Errorf("imaging: unsupported channel count %d", p.Channels)
	}
	if want := p.Width * p.Height * p.Channels; len(p.Pix) != want {
		return fmt.Errorf("imaging: pixel slice has %d samples, want %d", len(p.Pix), want)
	}
	return nil
}

// Gray converts a color buffer to single channel luminance using the
// Rec.601 weights. Single-channel input is copied through.
func (p *PixelBuffer) Gray() *PixelBuffer {
	if p.Channels == GrayChannels {
		return p.Clone()
	}
	out := NewGray(p.Width, p.Height)
	for i, j := 0, 0; i < len(p.Pix); i, j = i+ColorChannels, j+1 {
		r := int(p.Pix[i])
		g := int(p.Pix[i+1])
		b := int(p.Pix[i+2])
		out.Pix[j] = uint8((299*r + 587*g + 114*b) / 1000)
	}
	return out
}

// FromImage copies a decoded image.Image into a three-channel buffer.
func FromImage(img image.Image) *PixelBuffer {
	b := img.Bounds()
	out := NewColor(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out.Pix[i] = uint8(r >> 8)
			out.Pix[i+1] = uint8(g >> 8)
			out.Pix[i+2] = uint8(bl >> 8)
			i += ColorChannels
		}
	}
	return out
}

// FromGray converts a stdlib gray image into a one-channel buffer.
func FromGray(img *image.Gray) *PixelBuffer {
	b := img.Bounds()
	out := NewGray(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*out.Width:(y+1)*out.Width], img.Pix[off:off+out.Width])
	}
	return out
}

// ToImage converts the buffer back to a stdlib image for encoding.
func (p *PixelBuffer) ToImage() image.Image {
	if p.Channels == GrayChannels {
		img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
		copy(img.Pix, p.Pix)
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	for i, j := 0, 0; i < len(p.Pix); i, j = i+ColorChannels, j+4 {
		img.Pix[j] = p.Pix[i]
		img.Pix[j+1] = p.Pix[i+1]
		img.Pix[j+2] = p.Pix[i+2]
		img.Pix[j+3] = 255
	}
	return img
}

// ColorAt returns pixel (x, y) as a color.RGBA, mostly for tests.
func (p *PixelBuffer) ColorAt(x, y int) color.RGBA {
	if p.Channels == GrayChannels {
		v := p.At(x, y, 0)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return color.RGBA{
		R: p.At(x, y, 0),
		G: p.At(x, y, 1),
		B: p.At(x, y, 2),
		A: 255,
	}
}
