package mask

import "github.com/renderease/surfacekit/imaging"

// kernelRadius is the structuring-element radius for the cleanup passes
// (1 = 3x3 square).
const kernelRadius = 1

// Refine cleans a raw binary mask into a stable binary mask: opening
// removes isolated specks, closing fills enclosed gaps, then a small blur
// with re-threshold at 0.5 knocks off single-pixel staircasing. A second
// pass over an already-clean mask changes nothing.
func Refine(m *imaging.PixelBuffer) *imaging.PixelBuffer {
	cleaned := Close(Open(m, kernelRadius), kernelRadius)
	return smoothEdges(cleaned)
}

// smoothEdges is a 3x3 box blur of the binary mask re-thresholded at 0.5,
// which reduces to a 9-sample majority on binary input.
func smoothEdges(m *imaging.PixelBuffer) *imaging.PixelBuffer {
	w, h := m.Width, m.Height
	out := imaging.NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			count := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					if m.Pix[ny*w+nx] >= 128 {
						count++
					}
				}
			}
			if count >= 5 {
				out.Pix[y*w+x] = 255
			}
		}
	}
	return out
}

// KeepLargest retains only the largest 8-connected foreground component.
// An all-background mask is returned unchanged.
func KeepLargest(m *imaging.PixelBuffer) *imaging.PixelBuffer {
	w, h := m.Width, m.Height
	labels := make([]int32, w*h)
	out := imaging.NewGray(w, h)

	bestLabel, bestSize := int32(0), 0
	next := int32(1)
	queue := make([]int32, 0, 256)
	for start := range labels {
		if m.Pix[start] < 128 || labels[start] != 0 {
			continue
		}
		labels[start] = next
		queue = append(queue[:0], int32(start))
		size := 0
		for qi := 0; qi < len(queue); qi++ {
			i := int(queue[qi])
			size++
			x, y := i%w, i/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					j := ny*w + nx
					if m.Pix[j] >= 128 && labels[j] == 0 {
						labels[j] = next
						queue = append(queue, int32(j))
					}
				}
			}
		}
		if size > bestSize {
			bestSize = size
			bestLabel = next
		}
		next++
	}
	if bestLabel == 0 {
		return m.Clone()
	}
	for i, l := range labels {
		if l == bestLabel {
			out.Pix[i] = 255
		}
	}
	return out
}
