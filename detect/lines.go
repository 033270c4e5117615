// Package detect proposes surface structure in a photograph without user
// hints: strong edges, dominant straight lines, and their intersections
// as candidate corners for a texture destination quad.
package detect

import (
	"math"
	"sort"

	"github.com/renderease/surfacekit/imaging"
)

// Line is a detected straight line in normal form (rho, theta) with a
// representative segment clipped to the image.
type Line struct {
	Rho   float64 `json:"rho"`
	Theta float64 `json:"theta"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Votes int     `json:"votes"`
}

// Options tunes the Hough accumulator.
type Options struct {
	// EdgeThreshold binarizes the gradient magnitude (default 60).
	EdgeThreshold uint8
	// VoteThreshold is the minimum accumulator count for a line
	// (default 100).
	VoteThreshold int
	// MaxLines caps the result, strongest first (default 32).
	MaxLines int
}

func (o *Options) defaults() {
	if o.EdgeThreshold == 0 {
		o.EdgeThreshold = 60
	}
	if o.VoteThreshold == 0 {
		o.VoteThreshold = 100
	}
	if o.MaxLines == 0 {
		o.MaxLines = 32
	}
}

// Lines runs a standard Hough transform over the image's thresholded
// Sobel edge map: one-degree angular bins, one-pixel rho bins, local
// maxima above the vote threshold.
func Lines(img *imaging.PixelBuffer, opts Options) []Line {
	opts.defaults()
	edges := img.SobelMagnitude()
	w, h := edges.Width, edges.Height

	const angleBins = 180
	maxRho := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	rhoBins := 2*maxRho + 1

	sin := make([]float64, angleBins)
	cos := make([]float64, angleBins)
	for t := 0; t < angleBins; t++ {
		theta := float64(t) * math.Pi / float64(angleBins)
		sin[t] = math.Sin(theta)
		cos[t] = math.Cos(theta)
	}

	acc := make([]int32, angleBins*rhoBins)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges.Pix[y*w+x] < opts.EdgeThreshold {
				continue
			}
			for t := 0; t < angleBins; t++ {
				rho := float64(x)*cos[t] + float64(y)*sin[t]
				r := int(math.Round(rho)) + maxRho
				acc[t*rhoBins+r]++
			}
		}
	}

	var lines []Line
	for t := 0; t < angleBins; t++ {
		for r := 0; r < rhoBins; r++ {
			votes := int(acc[t*rhoBins+r])
			if votes < opts.VoteThreshold {
				continue
			}
			if !isLocalMax(acc, t, r, angleBins, rhoBins) {
				continue
			}
			rho := float64(r - maxRho)
			theta := float64(t) * math.Pi / float64(angleBins)
			x1, y1, x2, y2 := clipLine(rho, theta, w, h)
			lines = append(lines, Line{
				Rho: rho, Theta: theta,
				X1: x1, Y1: y1, X2: x2, Y2: y2,
				Votes: votes,
			})
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Votes > lines[j].Votes })
	if len(lines) > opts.MaxLines {
		lines = lines[:opts.MaxLines]
	}
	return lines
}

func isLocalMax(acc []int32, t, r, angleBins, rhoBins int) bool {
	v := acc[t*rhoBins+r]
	for dt := -1; dt <= 1; dt++ {
		for dr := -2; dr <= 2; dr++ {
			nt, nr := t+dt, r+dr
			if nt < 0 || nt >= angleBins || nr < 0 || nr >= rhoBins {
				continue
			}
			n := acc[nt*rhoBins+nr]
			if n > v || (n == v && (dt < 0 || (dt == 0 && dr < 0))) {
				return false
			}
		}
	}
	return true
}

// clipLine extends the (rho, theta) normal form into a long segment and
// clamps the endpoints to the image.
func clipLine(rho, theta float64, w, h int) (int, int, int, int) {
	a, b := math.Cos(theta), math.Sin(theta)
	x0, y0 := a*rho, b*rho
	ext := float64(w + h)
	x1 := int(math.Round(x0 - ext*b))
	y1 := int(math.Round(y0 + ext*a))
	x2 := int(math.Round(x0 + ext*b))
	y2 := int(math.Round(y0 - ext*a))
	clampI := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return clampI(x1, 0, w-1), clampI(y1, 0, h-1), clampI(x2, 0, w-1), clampI(y2, 0, h-1)
}

// FilterHorizontal keeps lines within angleThreshold radians of
// horizontal.
func FilterHorizontal(lines []Line, angleThreshold float64) []Line {
	var out []Line
	for _, l := range lines {
		// Horizontal image lines have theta near pi/2 in normal form.
		if math.Abs(l.Theta-math.Pi/2) < angleThreshold {
			out = append(out, l)
		}
	}
	return out
}

// FilterVertical keeps lines within angleThreshold radians of vertical.
func FilterVertical(lines []Line, angleThreshold float64) []Line {
	var out []Line
	for _, l := range lines {
		if l.Theta < angleThreshold || math.Pi-l.Theta < angleThreshold {
			out = append(out, l)
		}
	}
	return out
}

// Intersections returns pairwise intersection points of the lines that
// fall inside a width x height image — candidate quad corners.
func Intersections(lines []Line, width, height int) []imaging.Point {
	var pts []imaging.Point
	for i := 0; i < len(lines); i++ {
		for j := i + 1; j < len(lines); j++ {
			p, ok := intersect(lines[i], lines[j])
			if !ok {
				continue
			}
			if p.X < 0 || p.X >= float64(width) || p.Y < 0 || p.Y >= float64(height) {
				continue
			}
			pts = append(pts, p)
		}
	}
	return pts
}

func intersect(a, b Line) (imaging.Point, bool) {
	// rho = x cos(theta) + y sin(theta) per line; solve the 2x2 system.
	det := math.Cos(a.Theta)*math.Sin(b.Theta) - math.Sin(a.Theta)*math.Cos(b.Theta)
	if math.Abs(det) < 1e-10 {
		return imaging.Point{}, false
	}
	x := (a.Rho*math.Sin(b.Theta) - b.Rho*math.Sin(a.Theta)) / det
	y := (b.Rho*math.Cos(a.Theta) - a.Rho*math.Cos(b.Theta)) / det
	return imaging.Point{X: x, Y: y}, true
}
