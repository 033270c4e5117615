// Package segment isolates a foreground surface in a photograph from a
// rough user hint: a bounding box or a click point. Four strategies share
// one result shape so callers can trade accuracy against latency.
package segment

import (
	"errors"
	"fmt"
	"math"

	"github.com/renderease/surfacekit/imaging"
)

var (
	// ErrInvalidBoundingBox flags a zero-area box or one fully outside
	// the image.
	ErrInvalidBoundingBox = errors.New("segment: invalid bounding box")
	// ErrSeedOutOfBounds flags a seed point outside the image.
	ErrSeedOutOfBounds = errors.New("segment: seed point out of bounds")
	// ErrDegenerateSegmentation flags a run where one class collapsed to
	// zero pixels. The returned result falls back to the box interior.
	ErrDegenerateSegmentation = errors.New("segment: segmentation collapsed to one class")
)

// Method selects a segmentation strategy. The set is closed; Segment
// dispatches exhaustively over it.
type Method int

const (
	// MethodGrabCut is box-seeded iterative mixture/min-cut separation.
	MethodGrabCut Method = iota
	// MethodRegionGrow expands from a seed against a running mean color.
	MethodRegionGrow
	// MethodFloodFill expands from a seed against the seed color with an
	// edge-stop. Fastest interactive strategy.
	MethodFloodFill
	// MethodMultiScale combines grab cuts at several resolutions by
	// majority vote. Slowest, most accurate.
	MethodMultiScale
)

// String implements fmt.Stringer for logging.
func (m Method) String() string {
	switch m {
	case MethodGrabCut:
		return "grabcut"
	case MethodRegionGrow:
		return "region"
	case MethodFloodFill:
		return "flood"
	case MethodMultiScale:
		return "multiscale"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod maps the wire name of a strategy to its Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "grabcut":
		return MethodGrabCut, nil
	case "region":
		return MethodRegionGrow, nil
	case "flood":
		return MethodFloodFill, nil
	case "multiscale":
		return MethodMultiScale, nil
	default:
		return 0, fmt.Errorf("segment: unknown method %q", name)
	}
}

// Params carries per-strategy tuning. Zero values fall back to defaults.
type Params struct {
	// Iterations bounds the mixture/min-cut loop for MethodGrabCut.
	Iterations int
	// ColorThreshold is the running-mean admission distance for
	// MethodRegionGrow, in Euclidean RGB units.
	ColorThreshold float64
	// Tolerance is the seed-color admission distance for MethodFloodFill.
	Tolerance float64
	// Scales lists the resolutions for MethodMultiScale as fractions of
	// full size. Full resolution is always included.
	Scales []float64
}

// Hint is the user's rough marking of the surface: exactly one of Box or
// Seed depending on the strategy.
type Hint struct {
	Box  *imaging.BoundingBox
	Seed *imaging.Point
}

// Result is the outcome of one segmentation call. Confidence is the
// foreground pixel ratio; it is descriptive only and never gates success.
type Result struct {
	Mask        *imaging.PixelBuffer
	Confidence  float64
	BoundingBox imaging.BoundingBox
}

const (
	defaultIterations     = 5
	defaultColorThreshold = 30.0
	defaultTolerance      = 20.0
)

// Segment dispatches to the strategy selected by method.
func Segment(img *imaging.PixelBuffer, hint Hint, method Method, params Params) (*Result, error) {
	switch method {
	case MethodGrabCut:
		if hint.Box == nil {
			return nil, fmt.Errorf("%w: grabcut needs a box hint", ErrInvalidBoundingBox)
		}
		iters := params.Iterations
		if iters <= 0 {
			iters = defaultIterations
		}
		return ByBox(img, *hint.Box, iters)
	case MethodRegionGrow:
		if hint.Seed == nil {
			return nil, fmt.Errorf("%w: region growing needs a seed hint", ErrSeedOutOfBounds)
		}
		th := params.ColorThreshold
		if th <= 0 {
			th = defaultColorThreshold
		}
		return BySeed(img, *hint.Seed, th)
	case MethodFloodFill:
		if hint.Seed == nil {
			return nil, fmt.Errorf("%w: flood fill needs a seed hint", ErrSeedOutOfBounds)
		}
		tol := params.Tolerance
		if tol <= 0 {
			tol = defaultTolerance
		}
		return ByFloodFill(img, *hint.Seed, tol)
	case MethodMultiScale:
		if hint.Box == nil {
			return nil, fmt.Errorf("%w: multi-scale needs a box hint", ErrInvalidBoundingBox)
		}
		return ByMultiScale(img, *hint.Box, params.Scales)
	default:
		return nil, fmt.Errorf("segment: unknown method %d", int(method))
	}
}

// resultFromMask fills in the descriptive metadata shared by every
// strategy: confidence is foreground count over total count, the box is
// the tight bound of foreground pixels.
func resultFromMask(mask *imaging.PixelBuffer) *Result {
	total := mask.Width * mask.Height
	count := 0
	minX, minY := mask.Width, mask.Height
	maxX, maxY := -1, -1
	for y := 0; y < mask.Height; y++ {
		row := y * mask.Width
		for x := 0; x < mask.Width; x++ {
			if mask.Pix[row+x] == 0 {
				continue
			}
			count++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	res := &Result{Mask: mask}
	if total > 0 {
		res.Confidence = float64(count) / float64(total)
	}
	if maxX >= 0 {
		res.BoundingBox = imaging.BoundingBox{
			X:      minX,
			Y:      minY,
			Width:  maxX - minX + 1,
			Height: maxY - minY + 1,
		}
	}
	return res
}

// colorDistance is the Euclidean distance between two pixels of img.
func colorDistance(img *imaging.PixelBuffer, i, j int) float64 {
	var sum float64
	for c := 0; c < img.Channels; c++ {
		d := float64(img.Pix[i+c]) - float64(img.Pix[j+c])
		sum += d * d
	}
	return math.Sqrt(sum)
}
