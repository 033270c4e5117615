package imaging

import "math"

// Point is a real-valued coordinate in image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is an ordered quadrilateral, wound consistently (clockwise in
// image coordinates, y growing downward).
type Quad [4]Point

// BoundingBox is an axis-aligned rectangle in pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns width*height.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Empty reports whether the box covers no pixels.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Clip intersects the box with an image of the given size. The result may
// be empty.
func (b BoundingBox) Clip(width, height int) BoundingBox {
	x0 := max(b.X, 0)
	y0 := max(b.Y, 0)
	x1 := min(b.X+b.Width, width)
	y1 := min(b.Y+b.Height, height)
	if x1 <= x0 || y1 <= y0 {
		return BoundingBox{}
	}
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Contains reports whether pixel (x, y) lies inside the box.
func (b BoundingBox) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// ToQuad returns the box corners in clockwise order starting top-left.
func (b BoundingBox) ToQuad() Quad {
	return Quad{
		{X: float64(b.X), Y: float64(b.Y)},
		{X: float64(b.X + b.Width), Y: float64(b.Y)},
		{X: float64(b.X + b.Width), Y: float64(b.Y + b.Height)},
		{X: float64(b.X), Y: float64(b.Y + b.Height)},
	}
}

// Scale returns the box scaled by s, rounding outward enough to keep at
// least one pixel.
func (b BoundingBox) Scale(s float64) BoundingBox {
	out := BoundingBox{
		X:      int(float64(b.X) * s),
		Y:      int(float64(b.Y) * s),
		Width:  int(math.Round(float64(b.Width) * s)),
		Height: int(math.Round(float64(b.Height) * s)),
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the quad, clipped to the
// given image size.
func (q Quad) Bounds(width, height int) BoundingBox {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := q[0].X, q[0].Y
	for _, p := range q[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	box := BoundingBox{
		X:      int(math.Floor(minX)),
		Y:      int(math.Floor(minY)),
		Width:  int(math.Ceil(maxX)) - int(math.Floor(minX)) + 1,
		Height: int(math.Ceil(maxY)) - int(math.Floor(minY)) + 1,
	}
	return box.Clip(width, height)
}

// Degenerate reports whether any three corners are (near) collinear or two
// corners coincide, which makes a projective mapping unsolvable.
func (q Quad) Degenerate() bool {
	const eps = 1e-6
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			dx := q[i].X - q[j].X
			dy := q[i].Y - q[j].Y
			if dx*dx+dy*dy < eps {
				return true
			}
		}
	}
	for i := 0; i < 4; i++ {
		a := q[i]
		b := q[(i+1)%4]
		c := q[(i+2)%4]
		cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
		if math.Abs(cross) < eps {
			return true
		}
	}
	return false
}

// Fill rasterizes the quad interior into a binary mask of the given size.
// Scanline crossing test, so concave winds still fill sensibly.
func (q Quad) Fill(width, height int) *PixelBuffer {
	out := NewGray(width, height)
	for y := 0; y < height; y++ {
		py := float64(y) + 0.5
		var xs []float64
		for i := 0; i < 4; i++ {
			a := q[i]
			b := q[(i+1)%4]
			if (a.Y <= py && b.Y > py) || (b.Y <= py && a.Y > py) {
				t := (py - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		if len(xs) < 2 {
			continue
		}
		sortFloats(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Ceil(xs[i] - 0.5))
			x1 := int(math.Floor(xs[i+1] - 0.5))
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= width {
				x1 = width - 1
			}
			for x := x0; x <= x1; x++ {
				out.Pix[y*width+x] = 255
			}
		}
	}
	return out
}

func sortFloats(xs []float64) {
	// Four entries at most, insertion sort is plenty.
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
