package segment

import (
	"fmt"
	"math"

	"github.com/renderease/surfacekit/imaging"
)

// edgeFactor derives the per-step gradient cap from the caller's color
// tolerance.
const edgeFactor = 2.0

// ByFloodFill expands from seed like BySeed but compares each candidate to
// the seed pixel's original color, and additionally refuses to step across
// a strong local gradient even when both sides look alike. No model is
// re-estimated, so this is the fastest interactive strategy.
func ByFloodFill(img *imaging.PixelBuffer, seed imaging.Point, tolerance float64) (*Result, error) {
	sx, sy := int(seed.X), int(seed.Y)
	if !img.Inside(sx, sy) {
		return nil, fmt.Errorf("%w: (%d,%d) in %dx%d image",
			ErrSeedOutOfBounds, sx, sy, img.Width, img.Height)
	}

	w, h := img.Width, img.Height
	mask := imaging.NewGray(w, h)
	visited := make([]bool, w*h)

	start := sy*w + sx
	seedColor := pixelColor(img, start*img.Channels)
	edgeThreshold := edgeFactor * tolerance

	visited[start] = true
	mask.Pix[start] = 255
	frontier := []int{start}

	for len(frontier) > 0 {
		i := frontier[0]
		frontier = frontier[1:]
		x, y := i%w, i/w
		from := pixelColor(img, i*img.Channels)

		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			j := ny*w + nx
			if visited[j] {
				continue
			}

			c := pixelColor(img, j*img.Channels)
			if math.Sqrt(sqDist3(c, seedColor)) > tolerance {
				continue
			}
			// Edge stop: the step from the admitted pixel must not
			// cross a strong boundary.
			if math.Sqrt(sqDist3(c, from)) > edgeThreshold {
				continue
			}
			visited[j] = true
			mask.Pix[j] = 255
			frontier = append(frontier, j)
		}
	}
	return resultFromMask(mask), nil
}
