// Package warp estimates projective mappings between a rectangle and an
// arbitrary quadrilateral and applies them by inverse bilinear resampling.
package warp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/renderease/surfacekit/imaging"
)

// ErrDegenerateCorrespondence flags four destination points that are
// collinear or coincident, which leaves the projective system singular.
var ErrDegenerateCorrespondence = errors.New("warp: degenerate point correspondence")

// Homography is a 3x3 projective transform in homogeneous coordinates
// with the bottom-right element normalized to 1.
type Homography struct {
	M [3][3]float64
}

// Identity returns the identity mapping.
func Identity() Homography {
	return Homography{M: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// Estimate solves the eight unknowns mapping the corners of sourceRect
// onto destQuad via the direct linear transform: each correspondence
// contributes two rows of an 8x9 homogeneous system whose null space,
// found by singular value decomposition, is the flattened matrix.
func Estimate(sourceRect imaging.BoundingBox, destQuad imaging.Quad) (Homography, error) {
	if sourceRect.Empty() {
		return Homography{}, fmt.Errorf("%w: empty source rectangle", ErrDegenerateCorrespondence)
	}
	if destQuad.Degenerate() {
		return Homography{}, fmt.Errorf("%w: destination corners collinear or coincident", ErrDegenerateCorrespondence)
	}

	src := sourceRect.ToQuad()
	a := mat.NewDense(8, 9, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := destQuad[i].X, destQuad[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y, -u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y, -v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFullV) {
		return Homography{}, fmt.Errorf("%w: SVD failed to converge", ErrDegenerateCorrespondence)
	}
	var v mat.Dense
	svd.VTo(&v)

	var hvec [9]float64
	for i := 0; i < 9; i++ {
		hvec[i] = v.At(i, 8) // null-space column for the smallest singular value
	}
	if math.Abs(hvec[8]) < 1e-12 {
		return Homography{}, fmt.Errorf("%w: mapping sends the plane to infinity", ErrDegenerateCorrespondence)
	}
	var hom Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			hom.M[r][c] = hvec[r*3+c] / hvec[8]
		}
	}
	if math.Abs(hom.det()) < 1e-9 {
		return Homography{}, fmt.Errorf("%w: singular matrix", ErrDegenerateCorrespondence)
	}
	return hom, nil
}

// Apply maps a point through the homography, dividing out the homogeneous
// coordinate.
func (h Homography) Apply(p imaging.Point) imaging.Point {
	w := h.M[2][0]*p.X + h.M[2][1]*p.Y + h.M[2][2]
	if w == 0 {
		w = 1e-12
	}
	return imaging.Point{
		X: (h.M[0][0]*p.X + h.M[0][1]*p.Y + h.M[0][2]) / w,
		Y: (h.M[1][0]*p.X + h.M[1][1]*p.Y + h.M[1][2]) / w,
	}
}

// Invert returns the inverse mapping.
func (h Homography) Invert() (Homography, error) {
	src := mat.NewDense(3, 3, []float64{
		h.M[0][0], h.M[0][1], h.M[0][2],
		h.M[1][0], h.M[1][1], h.M[1][2],
		h.M[2][0], h.M[2][1], h.M[2][2],
	})
	var inv mat.Dense
	if err := inv.Inverse(src); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateCorrespondence, err)
	}
	var out Homography
	scale := inv.At(2, 2)
	if math.Abs(scale) < 1e-15 {
		scale = 1
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.M[r][c] = inv.At(r, c) / scale
		}
	}
	return out, nil
}

func (h Homography) det() float64 {
	m := h.M
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}
