package warp

import (
	"math"
	"runtime"
	"sync"

	"github.com/renderease/surfacekit/imaging"
)

// WrapMode controls sampling when an inverse-mapped coordinate leaves the
// texture bounds.
type WrapMode int

const (
	// WrapTile repeats the texture, so every destination pixel samples a
	// defined texel.
	WrapTile WrapMode = iota
	// WrapClamp samples the nearest edge texel instead.
	WrapClamp
)

// Apply inverse-warps texture through hom into an output of the given
// size: every destination pixel is mapped back through the inverse
// homography and bilinearly sampled from the texture. hom maps texture
// coordinates to destination coordinates, the way Estimate produces it.
func Apply(texture *imaging.PixelBuffer, hom Homography, outWidth, outHeight int, mode WrapMode) (*imaging.PixelBuffer, error) {
	inv, err := hom.Invert()
	if err != nil {
		return nil, err
	}
	out := imaging.NewPixelBuffer(outWidth, outHeight, texture.Channels)

	// Rows are independent, so split them into bands across the CPUs.
	workers := runtime.GOMAXPROCS(0)
	if workers > outHeight {
		workers = outHeight
	}
	if workers < 1 {
		workers = 1
	}
	band := (outHeight + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < outHeight; y0 += band {
		y1 := y0 + band
		if y1 > outHeight {
			y1 = outHeight
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := 0; x < outWidth; x++ {
					src := inv.Apply(imaging.Point{X: float64(x), Y: float64(y)})
					sampleBilinear(texture, src.X, src.Y, mode, out, out.Offset(x, y))
				}
			}
		}(y0, y1)
	}
	wg.Wait()
	return out, nil
}

// sampleBilinear writes the interpolated texel at (sx, sy) into dst at
// dstOffset, one sample per channel.
func sampleBilinear(tex *imaging.PixelBuffer, sx, sy float64, mode WrapMode, dst *imaging.PixelBuffer, dstOffset int) {
	x0 := int(math.Floor(sx))
	y0 := int(math.Floor(sy))
	fx := sx - float64(x0)
	fy := sy - float64(y0)

	x0w, y0w := wrapCoord(x0, tex.Width, mode), wrapCoord(y0, tex.Height, mode)
	x1w, y1w := wrapCoord(x0+1, tex.Width, mode), wrapCoord(y0+1, tex.Height, mode)

	for c := 0; c < tex.Channels; c++ {
		c00 := float64(tex.At(x0w, y0w, c))
		c10 := float64(tex.At(x1w, y0w, c))
		c01 := float64(tex.At(x0w, y1w, c))
		c11 := float64(tex.At(x1w, y1w, c))
		top := c00 + (c10-c00)*fx
		bot := c01 + (c11-c01)*fx
		dst.Pix[dstOffset+c] = uint8(top + (bot-top)*fy + 0.5)
	}
}

func wrapCoord(v, size int, mode WrapMode) int {
	switch mode {
	case WrapTile:
		v %= size
		if v < 0 {
			v += size
		}
		return v
	default:
		if v < 0 {
			return 0
		}
		if v >= size {
			return size - 1
		}
		return v
	}
}
