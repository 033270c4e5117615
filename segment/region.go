package segment

import (
	"fmt"
	"math"

	"github.com/renderease/surfacekit/imaging"
)

// BySeed grows a region outward from seed over 4-connected neighbors. A
// neighbor is admitted when its color sits within colorThreshold of the
// running mean of everything admitted so far, so gradual shading drift
// across a surface passes while abrupt edges stop the frontier.
func BySeed(img *imaging.PixelBuffer, seed imaging.Point, colorThreshold float64) (*Result, error) {
	sx, sy := int(seed.X), int(seed.Y)
	if !img.Inside(sx, sy) {
		return nil, fmt.Errorf("%w: (%d,%d) in %dx%d image",
			ErrSeedOutOfBounds, sx, sy, img.Width, img.Height)
	}

	w, h := img.Width, img.Height
	mask := imaging.NewGray(w, h)
	visited := make([]bool, w*h)

	var meanSum [3]float64
	admitted := 0
	admit := func(i int) {
		c := pixelColor(img, i*img.Channels)
		for k := 0; k < 3; k++ {
			meanSum[k] += c[k]
		}
		admitted++
		mask.Pix[i] = 255
	}

	start := sy*w + sx
	visited[start] = true
	admit(start)
	frontier := []int{start}

	for len(frontier) > 0 {
		i := frontier[0]
		frontier = frontier[1:]
		x, y := i%w, i/w

		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			j := ny*w + nx
			if visited[j] {
				continue
			}
			visited[j] = true

			c := pixelColor(img, j*img.Channels)
			dist := 0.0
			for k := 0; k < 3; k++ {
				dd := c[k] - meanSum[k]/float64(admitted)
				dist += dd * dd
			}
			if math.Sqrt(dist) <= colorThreshold {
				admit(j)
				frontier = append(frontier, j)
			}
		}
	}
	return resultFromMask(mask), nil
}
