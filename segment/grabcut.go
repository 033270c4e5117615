package segment

import (
	"fmt"
	"math"

	"github.com/renderease/surfacekit/imaging"
)

const (
	// neighborWeight scales the smoothness term relative to the color
	// data term (the classic gamma).
	neighborWeight = 50.0
	// hardConstraint pins pixels outside the box to the background
	// terminal for every iteration.
	hardConstraint = 1e9
)

// ByBox runs box-seeded iterative foreground extraction: two 5-component
// Gaussian mixtures model foreground (box interior) and background, a
// pixel graph with contrast-weighted neighbor links is cut between the two
// virtual terminals, and the mixtures are refit from the cut until the
// labels settle or the iteration budget runs out.
func ByBox(img *imaging.PixelBuffer, box imaging.BoundingBox, iterations int) (*Result, error) {
	clipped := box.Clip(img.Width, img.Height)
	if clipped.Empty() {
		return nil, fmt.Errorf("%w: %dx%d box at (%d,%d) in %dx%d image",
			ErrInvalidBoundingBox, box.Width, box.Height, box.X, box.Y, img.Width, img.Height)
	}
	if iterations < 1 {
		iterations = 1
	}

	n := img.Width * img.Height
	fg := make([]bool, n)
	inBox := make([]bool, n)
	for y := clipped.Y; y < clipped.Y+clipped.Height; y++ {
		row := y * img.Width
		for x := clipped.X; x < clipped.X+clipped.Width; x++ {
			fg[row+x] = true
			inBox[row+x] = true
		}
	}

	colors := make([][3]float64, n)
	for i := 0; i < n; i++ {
		colors[i] = pixelColor(img, i*img.Channels)
	}
	beta := contrastBeta(img, colors)

	for iter := 0; iter < iterations; iter++ {
		fgModel, bgModel, err := fitModels(colors, fg)
		if err != nil {
			return fallbackBoxResult(img, clipped), err
		}

		g := buildCutGraph(img, colors, fg, inBox, fgModel, bgModel, beta)
		g.maxFlow()
		cut := g.minCut()

		changed := false
		for i := 0; i < n; i++ {
			keep := cut[i] && inBox[i]
			if keep != fg[i] {
				changed = true
			}
			fg[i] = keep
		}
		// Unchanged cut means the loop has converged early.
		if !changed && iter > 0 {
			break
		}
	}

	mask := imaging.NewGray(img.Width, img.Height)
	empty := true
	for i, f := range fg {
		if f {
			mask.Pix[i] = 255
			empty = false
		}
	}
	if empty {
		return fallbackBoxResult(img, clipped), ErrDegenerateSegmentation
	}
	return resultFromMask(mask), nil
}

// fitModels estimates the two mixtures from the current partition. Pixels
// outside the box always feed the background model.
func fitModels(colors [][3]float64, fg []bool) (*mixture, *mixture, error) {
	var fgColors, bgColors [][3]float64
	for i, c := range colors {
		if fg[i] {
			fgColors = append(fgColors, c)
		} else {
			bgColors = append(bgColors, c)
		}
	}
	fgModel := fitMixture(fgColors)
	bgModel := fitMixture(bgColors)
	if fgModel == nil || bgModel == nil {
		return nil, nil, ErrDegenerateSegmentation
	}
	return fgModel, bgModel, nil
}

// contrastBeta is 1 / (2 * mean squared neighbor color distance), the
// normalization that makes the smoothness term contrast adaptive.
func contrastBeta(img *imaging.PixelBuffer, colors [][3]float64) float64 {
	sum := 0.0
	count := 0
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := y*img.Width + x
			if x+1 < img.Width {
				sum += sqDist3(colors[i], colors[i+1])
				count++
			}
			if y+1 < img.Height {
				sum += sqDist3(colors[i], colors[i+img.Width])
				count++
			}
		}
	}
	if count == 0 || sum == 0 {
		return 0
	}
	return 1.0 / (2.0 * sum / float64(count))
}

// buildCutGraph assembles the pixel graph: 8-neighbor links weighted down
// across color edges, terminal links from the mixture likelihoods, hard
// background links outside the box.
func buildCutGraph(img *imaging.PixelBuffer, colors [][3]float64, fg, inBox []bool,
	fgModel, bgModel *mixture, beta float64,
) *flowGraph {
	w, h := img.Width, img.Height
	n := w * h
	g := newFlowGraph(n, n*5)

	// Neighbor links. Diagonals are attenuated by 1/sqrt(2) like the
	// straight distance they span.
	offsets := [4]struct {
		dx, dy int
		scale  float64
	}{
		{1, 0, 1},
		{0, 1, 1},
		{1, 1, 1 / math.Sqrt2},
		{-1, 1, 1 / math.Sqrt2},
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			for _, o := range offsets {
				nx, ny := x+o.dx, y+o.dy
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				wgt := neighborWeight * o.scale * math.Exp(-beta*sqDist3(colors[i], colors[j]))
				g.addEdge(int32(i), int32(j), wgt, wgt)
			}
		}
	}

	// Terminal links: source is the foreground terminal, so the cost of
	// cutting a pixel from it is how badly the background model fits.
	for i := 0; i < n; i++ {
		if !inBox[i] {
			g.addTerminal(int32(i), 0, hardConstraint)
			continue
		}
		g.addTerminal(int32(i), bgModel.negLogLikelihood(colors[i]), fgModel.negLogLikelihood(colors[i]))
	}
	return g
}

// fallbackBoxResult returns the box interior as the mask, the documented
// degenerate-segmentation fallback.
func fallbackBoxResult(img *imaging.PixelBuffer, box imaging.BoundingBox) *Result {
	mask := imaging.NewGray(img.Width, img.Height)
	for y := box.Y; y < box.Y+box.Height; y++ {
		row := y * img.Width
		for x := box.X; x < box.X+box.Width; x++ {
			mask.Pix[row+x] = 255
		}
	}
	return resultFromMask(mask)
}

func pixelColor(img *imaging.PixelBuffer, offset int) [3]float64 {
	if img.Channels == 1 {
		v := float64(img.Pix[offset])
		return [3]float64{v, v, v}
	}
	return [3]float64{
		float64(img.Pix[offset]),
		float64(img.Pix[offset+1]),
		float64(img.Pix[offset+2]),
	}
}
