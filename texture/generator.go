// Package texture produces procedural material samples: flat pixel
// buffers the compositing pipeline treats as opaque input, no different
// from an uploaded photo of real material.
package texture

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/renderease/surfacekit/imaging"
)

// Kind names a material family.
type Kind string

const (
	KindWood     Kind = "wood"
	KindMarble   Kind = "marble"
	KindTile     Kind = "tile"
	KindBrick    Kind = "brick"
	KindConcrete Kind = "concrete"
	KindCarpet   Kind = "carpet"
)

// RGB is a plain 8-bit color triple.
type RGB struct {
	R, G, B uint8
}

// Options tunes a generated sample. Zero values fall back to material
// defaults.
type Options struct {
	BaseColor *RGB
	// Seed makes generation reproducible; 0 picks a fixed default so
	// cached samples stay stable across runs.
	Seed int64
}

// Generate renders a width x height sample of the given material kind.
func Generate(kind Kind, width, height int, opts Options) (*imaging.PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture: non-positive size %dx%d", width, height)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	switch kind {
	case KindWood:
		return wood(width, height, baseOr(opts, RGB{139, 90, 43}), rng), nil
	case KindMarble:
		return marble(width, height, baseOr(opts, RGB{235, 231, 221}), rng), nil
	case KindTile:
		return tile(width, height, baseOr(opts, RGB{235, 235, 235})), nil
	case KindBrick:
		return brick(width, height, baseOr(opts, RGB{158, 62, 52}), rng), nil
	case KindConcrete:
		return concrete(width, height, baseOr(opts, RGB{169, 169, 169}), rng), nil
	case KindCarpet:
		return carpet(width, height, baseOr(opts, RGB{120, 110, 100}), rng), nil
	default:
		return nil, fmt.Errorf("texture: unknown kind %q", kind)
	}
}

func baseOr(opts Options, fallback RGB) RGB {
	if opts.BaseColor != nil {
		return *opts.BaseColor
	}
	return fallback
}

func solid(width, height int, base RGB) *imaging.PixelBuffer {
	out := imaging.NewColor(width, height)
	for i := 0; i < len(out.Pix); i += 3 {
		out.Pix[i] = base.R
		out.Pix[i+1] = base.G
		out.Pix[i+2] = base.B
	}
	return out
}

func addOffset(out *imaging.PixelBuffer, x, y, delta int) {
	o := out.Offset(x, y)
	for c := 0; c < 3; c++ {
		v := int(out.Pix[o+c]) + delta
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out.Pix[o+c] = uint8(v)
	}
}

// wood lays horizontal sine-wave grain over the base color plus a handful
// of darker grain lines wandering across the plank.
func wood(width, height int, base RGB, rng *rand.Rand) *imaging.PixelBuffer {
	out := solid(width, height, base)
	rowPhase := make([]float64, height)
	for y := range rowPhase {
		rowPhase[y] = math.Sin(float64(y)/10.0+rng.NormFloat64()*0.1) * 30
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			grain := rowPhase[y] + math.Sin(float64(x)/50.0)*10
			addOffset(out, x, y, int(grain*0.3))
		}
	}
	for n := 0; n < width/20; n++ {
		yPos := rng.Intn(height)
		thickness := 1 + rng.Intn(2)
		shade := -10 - rng.Intn(11)
		for x := 0; x < width; x++ {
			y := yPos + int(math.Sin(float64(x)/30.0)*5)
			for t := 0; t < thickness; t++ {
				if y+t >= 0 && y+t < height {
					addOffset(out, x, y+t, shade)
				}
			}
		}
	}
	return out
}

// marble overlays turbulent veins on a light base using octaves of value
// noise bent through a sine.
func marble(width, height int, base RGB, rng *rand.Rand) *imaging.PixelBuffer {
	out := solid(width, height, base)
	noise := newValueNoise(rng, 64)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			turb := noise.turbulence(float64(x)/64.0, float64(y)/64.0, 4)
			vein := math.Abs(math.Sin((float64(x)+float64(y)*0.6)/40.0 + turb*5))
			// Sharpen the valleys into thin gray veins.
			delta := -int(math.Pow(1-vein, 6) * 70)
			addOffset(out, x, y, delta)
		}
	}
	return out
}

// tile draws a checker of glazed tiles separated by darker grout lines.
func tile(width, height int, base RGB) *imaging.PixelBuffer {
	const tileSize = 64
	const groutWidth = 3
	out := solid(width, height, base)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tx, ty := x%tileSize, y%tileSize
			if tx < groutWidth || ty < groutWidth {
				addOffset(out, x, y, -80)
				continue
			}
			if ((x/tileSize)+(y/tileSize))%2 == 1 {
				addOffset(out, x, y, -18)
			}
			// Faint glaze highlight toward the tile's top-left.
			addOffset(out, x, y, (tileSize-tx-ty)/8)
		}
	}
	return out
}

// brick renders a running bond with mortar joints, each course offset by
// half a brick, with slight per-brick shade variation.
func brick(width, height int, base RGB, rng *rand.Rand) *imaging.PixelBuffer {
	const brickW, brickH = 96, 32
	const mortar = 4
	out := solid(width, height, base)
	for y := 0; y < height; y++ {
		course := y / brickH
		shift := 0
		if course%2 == 1 {
			shift = brickW / 2
		}
		for x := 0; x < width; x++ {
			bx := (x + shift) % brickW
			by := y % brickH
			if bx < mortar || by < mortar {
				addOffset(out, x, y, 60) // light mortar
				continue
			}
			brickIdx := (x+shift)/brickW + course*131
			shade := (brickIdx * 2654435761) % 17
			addOffset(out, x, y, shade-8+int(rng.Float64()*4-2))
		}
	}
	return out
}

// concrete is speckle noise smoothed into soft blotches.
func concrete(width, height int, base RGB, rng *rand.Rand) *imaging.PixelBuffer {
	out := solid(width, height, base)
	noise := newValueNoise(rng, 64)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			blotch := noise.turbulence(float64(x)/48.0, float64(y)/48.0, 3)
			speck := rng.Float64()*10 - 5
			addOffset(out, x, y, int(blotch*24-12+speck))
		}
	}
	return out
}

// carpet is dense high-frequency fiber noise with a faint weave.
func carpet(width, height int, base RGB, rng *rand.Rand) *imaging.PixelBuffer {
	out := solid(width, height, base)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fiber := rng.Float64()*30 - 15
			weave := math.Sin(float64(x)/3.0)*3 + math.Sin(float64(y)/3.0)*3
			addOffset(out, x, y, int(fiber+weave))
		}
	}
	return out
}

// valueNoise is a small tileable lattice noise for marble and concrete.
type valueNoise struct {
	size int
	grid []float64
}

func newValueNoise(rng *rand.Rand, size int) *valueNoise {
	n := &valueNoise{size: size, grid: make([]float64, size*size)}
	for i := range n.grid {
		n.grid[i] = rng.Float64()
	}
	return n
}

func (n *valueNoise) at(x, y int) float64 {
	x %= n.size
	if x < 0 {
		x += n.size
	}
	y %= n.size
	if y < 0 {
		y += n.size
	}
	return n.grid[y*n.size+x]
}

// sample bilinearly interpolates the lattice at a fractional coordinate.
func (n *valueNoise) sample(x, y float64) float64 {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)
	sx := fx * fx * (3 - 2*fx)
	sy := fy * fy * (3 - 2*fy)
	top := n.at(x0, y0)*(1-sx) + n.at(x0+1, y0)*sx
	bot := n.at(x0, y0+1)*(1-sx) + n.at(x0+1, y0+1)*sx
	return top*(1-sy) + bot*sy
}

// turbulence sums octaves of sampled noise with halving amplitude.
func (n *valueNoise) turbulence(x, y float64, octaves int) float64 {
	sum, amp, freq := 0.0, 1.0, 1.0
	norm := 0.0
	for o := 0; o < octaves; o++ {
		sum += n.sample(x*freq, y*freq) * amp
		norm += amp
		amp /= 2
		freq *= 2
	}
	return sum / norm
}
