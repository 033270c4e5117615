package mask

import "github.com/renderease/surfacekit/imaging"

// Feather converts a binary mask into a continuous alpha ramp across the
// boundary: pixels at the edge land near 0.5, pixels radius or more inside
// reach 1, pixels radius or more outside reach 0, linearly in between.
// radius 0 returns the sharp binary mask untouched.
func Feather(m *imaging.PixelBuffer, radius int) *imaging.PixelBuffer {
	if radius <= 0 {
		return m.Clone()
	}
	w, h := m.Width, m.Height
	dist := crossDistance(m, radius)

	out := imaging.NewGray(w, h)
	for i := range out.Pix {
		fg := m.Pix[i] >= 128
		d := dist[i]
		if d > radius {
			if fg {
				out.Pix[i] = 255
			}
			continue
		}
		// d is the distance to the nearest opposite-class pixel, at
		// least 1 next to the boundary.
		t := float64(d) / float64(radius)
		var alpha float64
		if fg {
			alpha = 0.5 + 0.5*t
		} else {
			alpha = 0.5 - 0.5*t
		}
		out.Pix[i] = uint8(alpha*255 + 0.5)
	}
	return out
}

// crossDistance is the per-pixel Chebyshev distance to the nearest pixel
// of the opposite class, computed by a multi-source BFS seeded on both
// sides of the boundary and capped at radius+1.
func crossDistance(m *imaging.PixelBuffer, radius int) []int {
	w, h := m.Width, m.Height
	dist := make([]int, w*h)
	for i := range dist {
		dist[i] = radius + 1
	}

	queue := make([]int32, 0, w*h/4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			fg := m.Pix[i] >= 128
			boundary := false
			for dy := -1; dy <= 1 && !boundary; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					if (m.Pix[ny*w+nx] >= 128) != fg {
						boundary = true
						break
					}
				}
			}
			if boundary {
				dist[i] = 1
				queue = append(queue, int32(i))
			}
		}
	}

	for qi := 0; qi < len(queue); qi++ {
		i := int(queue[qi])
		if dist[i] > radius {
			continue
		}
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if dist[j] > dist[i]+1 {
					dist[j] = dist[i] + 1
					queue = append(queue, int32(j))
				}
			}
		}
	}
	return dist
}
