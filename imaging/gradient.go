package imaging

import "math"

// SobelMagnitude computes the per-pixel gradient magnitude of the buffer's
// luminance with 3x3 Sobel kernels, scaled into 0..255. Border pixels use
// clamped neighborhoods.
func (p *PixelBuffer) SobelMagnitude() *PixelBuffer {
	gray := p
	if p.Channels != GrayChannels {
		gray = p.Gray()
	}
	w, h := gray.Width, gray.Height
	out := NewGray(w, h)

	sample := func(x, y int) int {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return int(gray.Pix[y*w+x])
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -sample(x-1, y-1) + sample(x+1, y-1) +
				-2*sample(x-1, y) + 2*sample(x+1, y) +
				-sample(x-1, y+1) + sample(x+1, y+1)
			gy := -sample(x-1, y-1) - 2*sample(x, y-1) - sample(x+1, y-1) +
				sample(x-1, y+1) + 2*sample(x, y+1) + sample(x+1, y+1)
			m := math.Hypot(float64(gx), float64(gy)) / 4.0
			if m > 255 {
				m = 255
			}
			out.Pix[y*w+x] = uint8(m)
		}
	}
	return out
}

// EdgeDensity is the fraction of pixels whose gradient magnitude exceeds
// the threshold. Used to size segmentation effort to scene complexity.
func (p *PixelBuffer) EdgeDensity(threshold uint8) float64 {
	grad := p.SobelMagnitude()
	count := 0
	for _, v := range grad.Pix {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(grad.Pix))
}

// ColorVariance returns the mean per-channel standard deviation, a cheap
// proxy for how busy the palette is.
func (p *PixelBuffer) ColorVariance() float64 {
	n := float64(p.Width * p.Height)
	if n == 0 {
		return 0
	}
	total := 0.0
	for c := 0; c < p.Channels; c++ {
		sum, sumSq := 0.0, 0.0
		for i := c; i < len(p.Pix); i += p.Channels {
			v := float64(p.Pix[i])
			sum += v
			sumSq += v * v
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		total += math.Sqrt(variance)
	}
	return total / float64(p.Channels)
}
