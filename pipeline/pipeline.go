// Package pipeline sequences the core stages — segmentation, mask
// refinement, perspective warping and compositing — behind the four
// callable surfaces the service layer consumes.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/renderease/surfacekit/blend"
	"github.com/renderease/surfacekit/imaging"
	"github.com/renderease/surfacekit/mask"
	"github.com/renderease/surfacekit/segment"
	"github.com/renderease/surfacekit/warp"
)

// ErrImageTooLarge reports an input over the configured pixel budget. The
// caller decides whether to downsample and retry; the core never resizes
// silently.
var ErrImageTooLarge = errors.New("pipeline: image exceeds configured pixel budget")

// DefaultMaxPixels bounds worst-case latency of the cut-based strategies.
const DefaultMaxPixels = 4096 * 4096

// Pipeline is stateless between calls; it only carries configuration.
type Pipeline struct {
	maxPixels int
}

// New builds a pipeline with the given pixel budget; zero or negative
// budget means DefaultMaxPixels.
func New(maxPixels int) *Pipeline {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Pipeline{maxPixels: maxPixels}
}

func (p *Pipeline) checkBudget(img *imaging.PixelBuffer) error {
	if img.Width*img.Height > p.maxPixels {
		return fmt.Errorf("%w: %dx%d > %d pixels", ErrImageTooLarge, img.Width, img.Height, p.maxPixels)
	}
	return nil
}

// Segment produces a raw mask from a user hint with the selected
// strategy.
func (p *Pipeline) Segment(img *imaging.PixelBuffer, hint segment.Hint, method segment.Method, params segment.Params) (*segment.Result, error) {
	if err := p.checkBudget(img); err != nil {
		return nil, err
	}
	return segment.Segment(img, hint, method, params)
}

// RefineMask cleans a raw binary mask and feathers it into a blend-ready
// alpha channel. radius 0 keeps the cleaned mask sharp.
func (p *Pipeline) RefineMask(raw *imaging.PixelBuffer, featherRadius int) (*imaging.PixelBuffer, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	refined := mask.Refine(raw)
	if featherRadius <= 0 {
		return refined, nil
	}
	return mask.Feather(refined, featherRadius), nil
}

// EstimateAndWarp maps the texture rectangle onto destQuad and renders it
// into an output buffer of the given size, tiling the texture so every
// destination pixel is defined.
func (p *Pipeline) EstimateAndWarp(texture *imaging.PixelBuffer, sourceRect imaging.BoundingBox, destQuad imaging.Quad, outWidth, outHeight int) (*imaging.PixelBuffer, error) {
	hom, err := warp.Estimate(sourceRect, destQuad)
	if err != nil {
		return nil, err
	}
	return warp.Apply(texture, hom, outWidth, outHeight, warp.WrapTile)
}

// Composite merges the warped texture into the target under the alpha
// mask. Thin passthrough so the four surfaces live on one type.
func (p *Pipeline) Composite(target, texture, alphaMask *imaging.PixelBuffer, settings blend.Settings) (*imaging.PixelBuffer, error) {
	return blend.Composite(target, texture, alphaMask, settings)
}

// Apply runs the "apply with mask" use case: warp the texture onto
// destQuad, restrict the supplied mask to the quad footprint, feather,
// and composite into the target.
func (p *Pipeline) Apply(target, texture *imaging.PixelBuffer, rawMask *imaging.PixelBuffer, destQuad imaging.Quad, settings blend.Settings) (*imaging.PixelBuffer, error) {
	if err := p.checkBudget(target); err != nil {
		return nil, err
	}
	srcRect := imaging.BoundingBox{Width: texture.Width, Height: texture.Height}
	warped, err := p.EstimateAndWarp(texture, srcRect, destQuad, target.Width, target.Height)
	if err != nil {
		return nil, err
	}

	alpha, err := p.RefineMask(rawMask, settings.FeatherRadius)
	if err != nil {
		return nil, err
	}
	clipAlphaToQuad(alpha, destQuad)

	return blend.Composite(target, warped, alpha, settings)
}

// ProcessResult bundles the composited image with the segmentation
// diagnostics the caller may act on.
type ProcessResult struct {
	Image      *imaging.PixelBuffer
	Mask       *imaging.PixelBuffer
	Confidence float64
	Box        imaging.BoundingBox
	EmptyMask  bool
}

// Process runs the full detect-and-apply use case: segment from the hint,
// refine and feather the mask, warp the texture onto the destination
// corners (the segmentation bounds when destQuad is nil), and composite.
func (p *Pipeline) Process(target, texture *imaging.PixelBuffer, hint segment.Hint, method segment.Method, params segment.Params, destQuad *imaging.Quad, settings blend.Settings) (*ProcessResult, error) {
	seg, err := p.Segment(target, hint, method, params)
	if err != nil && !errors.Is(err, segment.ErrDegenerateSegmentation) {
		return nil, err
	}

	alpha, err := p.RefineMask(seg.Mask, settings.FeatherRadius)
	if err != nil {
		return nil, err
	}

	quad := seg.BoundingBox.ToQuad()
	if destQuad != nil {
		quad = *destQuad
	}
	if quad.Degenerate() {
		// Empty segmentation leaves no surface to texture; hand the
		// target back with diagnostics instead of failing the call.
		return &ProcessResult{
			Image:      target.Clone(),
			Mask:       alpha,
			Confidence: seg.Confidence,
			Box:        seg.BoundingBox,
			EmptyMask:  true,
		}, nil
	}

	srcRect := imaging.BoundingBox{Width: texture.Width, Height: texture.Height}
	warped, err := p.EstimateAndWarp(texture, srcRect, quad, target.Width, target.Height)
	if err != nil {
		return nil, err
	}
	clipAlphaToQuad(alpha, quad)

	out, err := blend.Composite(target, warped, alpha, settings)
	if err != nil {
		return nil, err
	}
	return &ProcessResult{
		Image:      out,
		Mask:       alpha,
		Confidence: seg.Confidence,
		Box:        seg.BoundingBox,
		EmptyMask:  alphaEmpty(alpha),
	}, nil
}

// alphaEmpty reports whether refinement left no foreground at all.
func alphaEmpty(alpha *imaging.PixelBuffer) bool {
	for _, v := range alpha.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// clipAlphaToQuad zeroes alpha outside the warped region's footprint so
// the texture never bleeds past its destination corners.
func clipAlphaToQuad(alpha *imaging.PixelBuffer, quad imaging.Quad) {
	footprint := quad.Fill(alpha.Width, alpha.Height)
	for i, v := range footprint.Pix {
		if v == 0 {
			alpha.Pix[i] = 0
		}
	}
}
