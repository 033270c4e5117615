// Package blend merges a warped, masked texture into a target photograph:
// a per-pixel blend mode, a linear brightness offset on the texture, and
// alpha compositing against the mask.
package blend

import (
	"fmt"

	"github.com/renderease/surfacekit/imaging"
)

// Mode is a per-pixel arithmetic rule combining target and texture. The
// set is closed.
type Mode int

const (
	ModeNormal Mode = iota
	ModeMultiply
	ModeOverlay
	ModeSoftLight
)

// String implements fmt.Stringer for logging.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeMultiply:
		return "multiply"
	case ModeOverlay:
		return "overlay"
	case ModeSoftLight:
		return "softlight"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps the wire name of a blend mode to its Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "normal":
		return ModeNormal, nil
	case "multiply":
		return ModeMultiply, nil
	case "overlay":
		return ModeOverlay, nil
	case "softlight":
		return ModeSoftLight, nil
	default:
		return 0, fmt.Errorf("blend: unknown mode %q", name)
	}
}

// Settings carries the per-request compositing knobs.
type Settings struct {
	Mode Mode
	// Opacity scales the mask, 0..1.
	Opacity float64
	// Brightness is added to every texture channel before blending,
	// clamped to the valid range. -255..255.
	Brightness int
	// FeatherRadius is consumed by the mask refiner before compositing;
	// it rides along here so one struct describes a blend request.
	FeatherRadius int
}

// DefaultSettings is a fully opaque normal blend with no adjustment.
func DefaultSettings() Settings {
	return Settings{Mode: ModeNormal, Opacity: 1.0}
}

// Composite merges texture into target wherever alphaMask allows. The
// texture is brightness-adjusted, blended with the target according to
// the mode, then mixed in proportion to alpha*opacity per channel. Pixels
// with zero alpha pass the target through untouched.
func Composite(target, texture, alphaMask *imaging.PixelBuffer, settings Settings) (*imaging.PixelBuffer, error) {
	if !target.SameSize(texture) {
		return nil, fmt.Errorf("blend: texture %dx%d does not match target %dx%d",
			texture.Width, texture.Height, target.Width, target.Height)
	}
	if !target.SameSize(alphaMask) || !alphaMask.IsMask() {
		return nil, fmt.Errorf("blend: alpha mask must be single channel at %dx%d", target.Width, target.Height)
	}
	opacity := settings.Opacity
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}

	out := target.Clone()
	channels := target.Channels
	for i := 0; i < target.Width*target.Height; i++ {
		alpha := float64(alphaMask.Pix[i]) / 255.0 * opacity
		if alpha == 0 {
			continue
		}
		ti := i * channels
		for c := 0; c < channels; c++ {
			base := float64(target.Pix[ti+c])
			tex := clampChannel(int(texture.Pix[ti+c]) + settings.Brightness)
			blended := blendChannel(settings.Mode, base, tex)
			v := base*(1-alpha) + blended*alpha
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out.Pix[ti+c] = uint8(v + 0.5)
		}
	}
	return out, nil
}

// AdjustBrightness applies the linear brightness offset to a buffer,
// clamping each channel to 0..255.
func AdjustBrightness(img *imaging.PixelBuffer, offset int) *imaging.PixelBuffer {
	out := img.Clone()
	if offset == 0 {
		return out
	}
	for i, v := range out.Pix {
		out.Pix[i] = uint8(clampChannel(int(v) + offset))
	}
	return out
}

func blendChannel(mode Mode, base, tex float64) float64 {
	switch mode {
	case ModeMultiply:
		return base * tex / 255.0
	case ModeOverlay:
		if base < 128 {
			return 2 * base * tex / 255.0
		}
		return 255 - 2*(255-base)*(255-tex)/255.0
	case ModeSoftLight:
		// Pegtop soft light: contrast-reduced overlay without the
		// discontinuity at mid-gray.
		return (1-tex/255.0)*base*base/255.0 + tex/255.0*(255-(255-base)*(255-base)/255.0)
	default:
		return tex
	}
}

func clampChannel(v int) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return float64(v)
}
