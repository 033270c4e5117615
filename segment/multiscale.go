package segment

import (
	"errors"
	"math"

	"github.com/renderease/surfacekit/imaging"
)

// defaultScales adds a half and quarter resolution pass next to the full
// one. Coarse passes shrug off local texture noise, the full pass keeps
// boundary detail.
var defaultScales = []float64{0.5, 0.25}

// coarseIterations bounds the cheaper downsampled passes.
const coarseIterations = 3

// ByMultiScale runs box-seeded extraction at full resolution and at the
// given downsampled fractions, upsamples every coarse mask back to full
// size and keeps the per-pixel majority. Slowest strategy, best quality.
func ByMultiScale(img *imaging.PixelBuffer, box imaging.BoundingBox, scales []float64) (*Result, error) {
	if len(scales) == 0 {
		scales = defaultScales
	}

	full, err := ByBox(img, box, defaultIterations)
	if err != nil && !errors.Is(err, ErrDegenerateSegmentation) {
		return nil, err
	}
	masks := []*imaging.PixelBuffer{full.Mask}

	for _, s := range scales {
		if s <= 0 || s >= 1 {
			continue
		}
		w := int(math.Round(float64(img.Width) * s))
		h := int(math.Round(float64(img.Height) * s))
		if w < 8 || h < 8 {
			continue
		}
		scaled := img.Resize(w, h, imaging.InterpBilinear)
		scaledBox := box.Scale(s).Clip(w, h)
		if scaledBox.Empty() {
			continue
		}
		res, err := ByBox(scaled, scaledBox, coarseIterations)
		if err != nil && !errors.Is(err, ErrDegenerateSegmentation) {
			continue
		}
		masks = append(masks, res.Mask.Resize(img.Width, img.Height, imaging.InterpNearest))
	}

	combined := majorityVote(masks, img.Width, img.Height)
	return resultFromMask(combined), nil
}

// majorityVote keeps pixels marked foreground by at least half the masks.
func majorityVote(masks []*imaging.PixelBuffer, width, height int) *imaging.PixelBuffer {
	out := imaging.NewGray(width, height)
	need := (len(masks) + 1) / 2
	for i := range out.Pix {
		votes := 0
		for _, m := range masks {
			if m.Pix[i] > 127 {
				votes++
			}
		}
		if votes >= need {
			out.Pix[i] = 255
		}
	}
	return out
}
