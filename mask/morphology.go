// Package mask turns a raw binary segmentation mask into a blend-ready
// alpha channel: morphological cleanup, edge smoothing and distance
// feathering.
package mask

import "github.com/renderease/surfacekit/imaging"

// Erode shrinks foreground by a square structuring element of the given
// radius (radius 1 = 3x3). A pixel survives only if its whole
// neighborhood is foreground; borders count as background.
func Erode(m *imaging.PixelBuffer, radius int) *imaging.PixelBuffer {
	return morph(m, radius, true)
}

// Dilate grows foreground by a square structuring element of the given
// radius.
func Dilate(m *imaging.PixelBuffer, radius int) *imaging.PixelBuffer {
	return morph(m, radius, false)
}

// Open removes isolated foreground specks: erosion then dilation.
func Open(m *imaging.PixelBuffer, radius int) *imaging.PixelBuffer {
	return Dilate(Erode(m, radius), radius)
}

// Close fills small background gaps enclosed by foreground: dilation then
// erosion.
func Close(m *imaging.PixelBuffer, radius int) *imaging.PixelBuffer {
	return Erode(Dilate(m, radius), radius)
}

func morph(m *imaging.PixelBuffer, radius int, erode bool) *imaging.PixelBuffer {
	if radius <= 0 {
		return m.Clone()
	}
	w, h := m.Width, m.Height
	out := imaging.NewGray(w, h)

	// Separable: horizontal min/max pass then vertical, O(r) per pixel.
	tmp := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			v := scanLine(m.Pix[row:row+w], x, radius, erode)
			tmp[row+x] = v
		}
	}
	col := make([]uint8, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = tmp[y*w+x]
		}
		for y := 0; y < h; y++ {
			out.Pix[y*w+x] = scanLine(col, y, radius, erode)
		}
	}
	return out
}

func scanLine(line []uint8, i, radius int, erode bool) uint8 {
	lo := i - radius
	hi := i + radius
	if erode {
		if lo < 0 || hi >= len(line) {
			return 0 // border counts as background
		}
		for j := lo; j <= hi; j++ {
			if line[j] < 128 {
				return 0
			}
		}
		return 255
	}
	if lo < 0 {
		lo = 0
	}
	if hi >= len(line) {
		hi = len(line) - 1
	}
	for j := lo; j <= hi; j++ {
		if line[j] >= 128 {
			return 255
		}
	}
	return 0
}
