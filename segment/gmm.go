package segment

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// mixtureComponents is the number of Gaussians modelling each side of the
// cut, matching the classic five-per-class setup.
const mixtureComponents = 5

// covRegularization keeps covariances invertible on flat color patches.
const covRegularization = 1e-2

type gaussian struct {
	mean    [3]float64
	inv     [3][3]float64
	logNorm float64 // log weight - 0.5 log det - 1.5 log(2 pi)
	weight  float64
}

// mixture is a multi-component Gaussian color model over RGB.
type mixture struct {
	comps []gaussian
}

// fitMixture estimates a mixture from a pixel sample: k-means to group the
// colors, then per-cluster mean and full covariance. Returns nil when the
// sample is empty.
func fitMixture(colors [][3]float64) *mixture {
	if len(colors) == 0 {
		return nil
	}
	k := mixtureComponents
	if len(colors) < k {
		k = len(colors)
	}
	labels := kmeansLabels(colors, k, 8)

	m := &mixture{}
	total := float64(len(colors))
	for comp := 0; comp < k; comp++ {
		var mean [3]float64
		count := 0
		for i, l := range labels {
			if l != comp {
				continue
			}
			count++
			for c := 0; c < 3; c++ {
				mean[c] += colors[i][c]
			}
		}
		if count == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			mean[c] /= float64(count)
		}

		var cov [3][3]float64
		for i, l := range labels {
			if l != comp {
				continue
			}
			var d [3]float64
			for c := 0; c < 3; c++ {
				d[c] = colors[i][c] - mean[c]
			}
			for r := 0; r < 3; r++ {
				for c := 0; c < 3; c++ {
					cov[r][c] += d[r] * d[c]
				}
			}
		}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				cov[r][c] /= float64(count)
			}
			cov[r][r] += covRegularization
		}

		g, ok := newGaussian(mean, cov, float64(count)/total)
		if !ok {
			continue
		}
		m.comps = append(m.comps, g)
	}
	if len(m.comps) == 0 {
		return nil
	}
	return m
}

func newGaussian(mean [3]float64, cov [3][3]float64, weight float64) (gaussian, bool) {
	dense := mat.NewDense(3, 3, []float64{
		cov[0][0], cov[0][1], cov[0][2],
		cov[1][0], cov[1][1], cov[1][2],
		cov[2][0], cov[2][1], cov[2][2],
	})
	det := mat.Det(dense)
	if det <= 0 || math.IsNaN(det) {
		return gaussian{}, false
	}
	var inv mat.Dense
	if err := inv.Inverse(dense); err != nil {
		return gaussian{}, false
	}
	g := gaussian{
		mean:    mean,
		weight:  weight,
		logNorm: math.Log(weight) - 0.5*math.Log(det) - 1.5*math.Log(2*math.Pi),
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			g.inv[r][c] = inv.At(r, c)
		}
	}
	return g, true
}

// logDensity is the log of weight * N(c; mean, cov).
func (g *gaussian) logDensity(c [3]float64) float64 {
	var d [3]float64
	for i := 0; i < 3; i++ {
		d[i] = c[i] - g.mean[i]
	}
	q := 0.0
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			q += d[r] * g.inv[r][col] * d[col]
		}
	}
	return g.logNorm - 0.5*q
}

// negLogLikelihood is -log of the mixture density at color c, the data
// term feeding the terminal links of the cut graph.
func (m *mixture) negLogLikelihood(c [3]float64) float64 {
	// Log-sum-exp over components for stability at the color extremes.
	best := math.Inf(-1)
	for i := range m.comps {
		if l := m.comps[i].logDensity(c); l > best {
			best = l
		}
	}
	if math.IsInf(best, -1) {
		return 100 // vanishing density, cap the penalty
	}
	sum := 0.0
	for i := range m.comps {
		sum += math.Exp(m.comps[i].logDensity(c) - best)
	}
	nll := -(best + math.Log(sum))
	if nll > 100 {
		nll = 100
	}
	return nll
}

// kmeansLabels clusters colors into k groups with Lloyd's algorithm.
// Centers are seeded deterministically from the luminance-sorted sample so
// repeated runs produce identical mixtures.
func kmeansLabels(colors [][3]float64, k, iterations int) []int {
	n := len(colors)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	luma := func(c [3]float64) float64 {
		return 0.299*c[0] + 0.587*c[1] + 0.114*c[2]
	}
	sortByLuma(order, colors, luma)

	centers := make([][3]float64, k)
	for i := 0; i < k; i++ {
		centers[i] = colors[order[(2*i+1)*n/(2*k)]]
	}

	labels := make([]int, n)
	counts := make([]int, k)
	sums := make([][3]float64, k)
	for it := 0; it < iterations; it++ {
		changed := false
		for i, c := range colors {
			best, bestDist := 0, math.Inf(1)
			for j, ctr := range centers {
				d := sqDist3(c, ctr)
				if d < bestDist {
					best, bestDist = j, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && it > 0 {
			break
		}
		for j := range centers {
			counts[j] = 0
			sums[j] = [3]float64{}
		}
		for i, l := range labels {
			counts[l]++
			for c := 0; c < 3; c++ {
				sums[l][c] += colors[i][c]
			}
		}
		for j := range centers {
			if counts[j] == 0 {
				continue
			}
			for c := 0; c < 3; c++ {
				centers[j][c] = sums[j][c] / float64(counts[j])
			}
		}
	}
	return labels
}

func sqDist3(a, b [3]float64) float64 {
	d0 := a[0] - b[0]
	d1 := a[1] - b[1]
	d2 := a[2] - b[2]
	return d0*d0 + d1*d1 + d2*d2
}

func sortByLuma(order []int, colors [][3]float64, luma func([3]float64) float64) {
	sort.Slice(order, func(a, b int) bool {
		return luma(colors[order[a]]) < luma(colors[order[b]])
	})
}
