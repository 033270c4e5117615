package detect

import (
	"math"
	"testing"

	"github.com/renderease/surfacekit/imaging"
)

// crossImage draws a bright vertical stripe and a bright horizontal
// stripe on black so the Hough transform has two clean structural lines.
func crossImage(w, h, vx, hy int) *imaging.PixelBuffer {
	img := imaging.NewGray(w, h)
	for y := 0; y < h; y++ {
		img.Pix[y*w+vx] = 255
	}
	for x := 0; x < w; x++ {
		img.Pix[hy*w+x] = 255
	}
	return img
}

func TestLinesFindsCross(t *testing.T) {
	img := crossImage(100, 100, 50, 30)
	lines := Lines(img, Options{VoteThreshold: 50})
	if len(lines) == 0 {
		t.Fatal("no lines detected on a clean cross")
	}

	vertical := FilterVertical(lines, 0.26)
	horizontal := FilterHorizontal(lines, 0.26)
	if len(vertical) == 0 {
		t.Error("vertical stripe not detected")
	}
	if len(horizontal) == 0 {
		t.Error("horizontal stripe not detected")
	}

	for _, l := range vertical {
		if math.Abs(math.Abs(l.Rho)-50) > 3 {
			t.Errorf("vertical line at rho %v, want near 50", l.Rho)
		}
	}
	for _, l := range horizontal {
		if math.Abs(l.Rho-30) > 3 {
			t.Errorf("horizontal line at rho %v, want near 30", l.Rho)
		}
	}
}

func TestIntersectionsNearCrossing(t *testing.T) {
	img := crossImage(100, 100, 50, 30)
	lines := Lines(img, Options{VoteThreshold: 50})

	structural := append(FilterVertical(lines, 0.26), FilterHorizontal(lines, 0.26)...)
	corners := Intersections(structural, 100, 100)
	if len(corners) == 0 {
		t.Fatal("no intersections found")
	}

	found := false
	for _, c := range corners {
		if math.Abs(c.X-50) <= 3 && math.Abs(c.Y-30) <= 3 {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no intersection near (50,30); got %v", corners)
	}
}

func TestLinesQuietOnFlatImage(t *testing.T) {
	img := imaging.NewGray(80, 80)
	img.Fill(128)
	if lines := Lines(img, Options{}); len(lines) != 0 {
		t.Errorf("flat image produced %d lines", len(lines))
	}
}

func TestFilterSplitsOrientations(t *testing.T) {
	lines := []Line{
		{Theta: 0.01},           // near vertical
		{Theta: math.Pi / 2},    // horizontal
		{Theta: math.Pi - 0.02}, // near vertical, wrapped
		{Theta: math.Pi / 4},    // diagonal
	}

	if got := len(FilterVertical(lines, 0.26)); got != 2 {
		t.Errorf("vertical filter kept %d lines, want 2", got)
	}
	if got := len(FilterHorizontal(lines, 0.26)); got != 1 {
		t.Errorf("horizontal filter kept %d lines, want 1", got)
	}
}

func TestFilterThresholdIsRadians(t *testing.T) {
	tilted := []Line{{Theta: 0.1}, {Theta: math.Pi/2 - 0.1}}

	if got := len(FilterVertical(tilted, 0.26)); got != 1 {
		t.Errorf("vertical filter kept %d tilted lines, want 1", got)
	}
	if got := len(FilterHorizontal(tilted, 0.26)); got != 1 {
		t.Errorf("horizontal filter kept %d tilted lines, want 1", got)
	}
	if got := len(FilterVertical(tilted, 0.05)); got != 0 {
		t.Errorf("tight vertical filter kept %d lines, want 0", got)
	}
}
