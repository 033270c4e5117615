package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/renderease/surfacekit/blend"
	"github.com/renderease/surfacekit/config"
	"github.com/renderease/surfacekit/detect"
	"github.com/renderease/surfacekit/imaging"
	"github.com/renderease/surfacekit/mask"
	"github.com/renderease/surfacekit/model"
	"github.com/renderease/surfacekit/pipeline"
	"github.com/renderease/surfacekit/segment"
	"github.com/renderease/surfacekit/texture"
	"github.com/renderease/surfacekit/utils"
	"go.uber.org/zap"
)

const (
	minConfidence = 0.05
	maxConfidence = 0.95

	defaultTextureSize = 512
	maxTextureSize     = 2048
)

// RenderService runs segmentation and compositing jobs
type RenderService struct {
	pipe         *pipeline.Pipeline
	iterations   int
	maxDimension int
	scales       []float64
	blendCfg     config.BlendConfig
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewRenderService(cfg *config.Config) *RenderService {
	return &RenderService{
		pipe:         pipeline.New(cfg.Segment.MaxPixels),
		iterations:   cfg.Segment.Iterations,
		maxDimension: cfg.Segment.MaxDimension,
		scales:       cfg.Segment.Scales,
		blendCfg:     cfg.Blend,
		semaphore:    make(chan struct{}, cfg.Segment.MaxConcurrent),
		queueTimeout: time.Duration(cfg.Segment.QueueTimeout) * time.Second,
	}
}

// acquire reserves a processing slot or gives up after the queue timeout
func (s *RenderService) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		return func() { <-s.semaphore }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("processing queue is full, try again later")
	}
}

// SegmentImage segments an uploaded image and returns the mask at the
// original resolution
func (s *RenderService) SegmentImage(ctx context.Context, data []byte, md5, method string, params model.SegmentParams) (*model.SegmentResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	startTime := time.Now()

	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	m, err := segment.ParseMethod(method)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("segmenting image",
		zap.String("md5", md5),
		zap.String("method", method),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height))

	// Scale down before cutting; the mask is scaled back up afterwards
	scaled, scale := img.FitWithin(s.maxDimension)

	segParams := segment.Params{
		Iterations:     params.Iterations,
		ColorThreshold: params.ColorThreshold,
		Tolerance:      params.Tolerance,
		Scales:         s.scales,
	}
	if segParams.Iterations <= 0 {
		segParams.Iterations = s.adaptiveIterations(scaled)
	}

	hint := s.buildHint(scaled, params, scale)

	result, err := s.pipe.Segment(scaled, hint, m, segParams)
	if err != nil && !errors.Is(err, segment.ErrDegenerateSegmentation) {
		return nil, err
	}
	degenerate := err != nil

	outMask := result.Mask
	if params.LargestOnly {
		outMask = mask.KeepLargest(outMask)
	}
	outMask = mask.Refine(outMask)
	empty := true
	for _, v := range outMask.Pix {
		if v != 0 {
			empty = false
			break
		}
	}
	if scale < 1.0 {
		outMask = outMask.Resize(img.Width, img.Height, imaging.InterpNearest)
	}

	box := result.BoundingBox
	if scale < 1.0 {
		box = box.Scale(1.0/scale).Clip(img.Width, img.Height)
	}

	encoded, err := outMask.EncodeBase64PNG()
	if err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}

	cost := time.Since(startTime)
	utils.Logger.Info("segmentation finished",
		zap.String("md5", md5),
		zap.String("method", method),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("degenerate", degenerate),
		zap.Duration("cost", cost))

	return &model.SegmentResult{
		MD5:        md5,
		Width:      img.Width,
		Height:     img.Height,
		Method:     method,
		Mask:       encoded,
		Confidence: clampConfidence(result.Confidence),
		BBox: model.BBox{
			X: box.X, Y: box.Y,
			Width: box.Width, Height: box.Height,
		},
		EmptyMask: empty,
		Timestamp: time.Now().Unix(),
	}, nil
}

// buildHint converts wire parameters into a segmentation hint in the
// scaled coordinate frame. Without an explicit box or seed the hint is a
// 5% inset box, matching the interactive frontend default.
func (s *RenderService) buildHint(img *imaging.PixelBuffer, params model.SegmentParams, scale float64) segment.Hint {
	if params.Seed != nil {
		return segment.Hint{Seed: &imaging.Point{
			X: params.Seed.X * scale,
			Y: params.Seed.Y * scale,
		}}
	}
	if params.Box != nil {
		box := imaging.BoundingBox{
			X: params.Box.X, Y: params.Box.Y,
			Width: params.Box.Width, Height: params.Box.Height,
		}
		if scale < 1.0 {
			box = box.Scale(scale)
		}
		box = box.Clip(img.Width, img.Height)
		return segment.Hint{Box: &box}
	}

	border := img.Width / 20
	if img.Height/20 < border {
		border = img.Height / 20
	}
	if border < 1 {
		border = 1
	}
	box := imaging.BoundingBox{
		X: border, Y: border,
		Width:  img.Width - 2*border,
		Height: img.Height - 2*border,
	}
	return segment.Hint{Box: &box}
}

// adaptiveIterations sizes the cut loop to scene complexity: flat scenes
// converge early, busy ones need extra rounds
func (s *RenderService) adaptiveIterations(img *imaging.PixelBuffer) int {
	density := img.EdgeDensity(48)
	variance := img.ColorVariance()

	iterations := s.iterations
	switch {
	case density < 0.04 && variance < 18:
		if iterations-2 > 3 {
			iterations -= 2
		} else {
			iterations = 3
		}
	case density > 0.15 || variance > 45:
		iterations += 2
	}
	return iterations
}

// GenerateTexture renders a procedural material sample as base64 PNG
func (s *RenderService) GenerateTexture(params model.TextureParams) (string, error) {
	width, height := params.Width, params.Height
	if width <= 0 {
		width = defaultTextureSize
	}
	if height <= 0 {
		height = defaultTextureSize
	}
	if width > maxTextureSize || height > maxTextureSize {
		return "", fmt.Errorf("texture size %dx%d exceeds %d", width, height, maxTextureSize)
	}

	opts := texture.Options{Seed: params.Seed}
	if len(params.BaseColor) == 3 {
		opts.BaseColor = &texture.RGB{
			R: clampByte(params.BaseColor[0]),
			G: clampByte(params.BaseColor[1]),
			B: clampByte(params.BaseColor[2]),
		}
	}

	sample, err := texture.Generate(texture.Kind(params.Kind), width, height, opts)
	if err != nil {
		return "", err
	}
	return sample.EncodeBase64PNG()
}

// RefineMask cleans and feathers an uploaded mask
func (s *RenderService) RefineMask(req model.RefineMaskRequest) (string, error) {
	raw, err := imaging.DecodeBase64(req.Mask)
	if err != nil {
		return "", fmt.Errorf("failed to decode mask: %w", err)
	}
	if raw.Channels != 1 {
		raw = raw.Gray()
	}

	radius := req.FeatherRadius
	if radius < 0 {
		radius = s.blendCfg.FeatherRadius
	}
	refined, err := s.pipe.RefineMask(raw, radius)
	if err != nil {
		return "", err
	}
	return refined.EncodeBase64PNG()
}

// ApplyTexture warps a texture onto the destination corners and blends
// it into the target. With a mask the texture is confined to the masked
// surface; without one the whole quad is covered.
func (s *RenderService) ApplyTexture(ctx context.Context, req model.ApplyRequest) (*model.ApplyResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	target, err := imaging.DecodeBase64(req.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	tex, err := s.resolveTexture(req.Texture, req.Sample)
	if err != nil {
		return nil, err
	}

	quad, err := quadFromCorners(req.Corners)
	if err != nil {
		return nil, err
	}

	settings, err := s.blendSettings(req.Blend)
	if err != nil {
		return nil, err
	}

	var rawMask *imaging.PixelBuffer
	if req.Mask != "" {
		rawMask, err = imaging.DecodeBase64(req.Mask)
		if err != nil {
			return nil, fmt.Errorf("failed to decode mask: %w", err)
		}
		if rawMask.Channels != 1 {
			rawMask = rawMask.Gray()
		}
		if rawMask.Width != target.Width || rawMask.Height != target.Height {
			rawMask = rawMask.Resize(target.Width, target.Height, imaging.InterpNearest)
		}
	} else {
		rawMask = quad.Fill(target.Width, target.Height)
	}

	out, err := s.pipe.Apply(target, tex, rawMask, quad, settings)
	if err != nil {
		return nil, err
	}

	encoded, err := out.EncodeBase64PNG()
	if err != nil {
		return nil, err
	}
	return &model.ApplyResult{Result: encoded}, nil
}

// Process runs segmentation and texture application in one call
func (s *RenderService) Process(ctx context.Context, req model.ProcessRequest) (*model.ApplyResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	startTime := time.Now()

	target, err := imaging.DecodeBase64(req.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	tex, err := s.resolveTexture(req.Texture, req.Sample)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = segment.MethodGrabCut.String()
	}
	m, err := segment.ParseMethod(method)
	if err != nil {
		return nil, err
	}

	settings, err := s.blendSettings(req.Blend)
	if err != nil {
		return nil, err
	}

	segParams := segment.Params{
		Iterations:     req.Params.Iterations,
		ColorThreshold: req.Params.ColorThreshold,
		Tolerance:      req.Params.Tolerance,
		Scales:         s.scales,
	}
	if segParams.Iterations <= 0 {
		segParams.Iterations = s.iterations
	}
	hint := s.buildHint(target, req.Params, 1.0)

	var destQuad *imaging.Quad
	if len(req.Corners) > 0 {
		quad, err := quadFromCorners(req.Corners)
		if err != nil {
			return nil, err
		}
		destQuad = &quad
	}

	result, err := s.pipe.Process(target, tex, hint, m, segParams, destQuad, settings)
	if err != nil {
		return nil, err
	}

	encoded, err := result.Image.EncodeBase64PNG()
	if err != nil {
		return nil, err
	}
	maskEncoded, err := result.Mask.EncodeBase64PNG()
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("process finished",
		zap.String("method", method),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("empty_mask", result.EmptyMask),
		zap.Duration("cost", time.Since(startTime)))

	return &model.ApplyResult{
		Result:     encoded,
		Mask:       maskEncoded,
		Confidence: clampConfidence(result.Confidence),
		BBox: &model.BBox{
			X: result.Box.X, Y: result.Box.Y,
			Width: result.Box.Width, Height: result.Box.Height,
		},
		EmptyMask: result.EmptyMask,
	}, nil
}

// DetectSurfaces proposes surface structure from line geometry
func (s *RenderService) DetectSurfaces(data []byte) (*model.DetectResult, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	scaled, _ := img.FitWithin(s.maxDimension)

	lines := detect.Lines(scaled, detect.Options{})
	horizontal := detect.FilterHorizontal(lines, 0.26)
	vertical := detect.FilterVertical(lines, 0.26)

	structural := append(append([]detect.Line{}, horizontal...), vertical...)
	corners := detect.Intersections(structural, scaled.Width, scaled.Height)

	points := make([]model.PointParam, 0, len(corners))
	for _, c := range corners {
		points = append(points, model.PointParam{X: c.X, Y: c.Y})
	}

	return &model.DetectResult{
		HorizontalLines: len(horizontal),
		VerticalLines:   len(vertical),
		Corners:         points,
	}, nil
}

// DetectEdges computes the Sobel edge magnitude of an uploaded image
func (s *RenderService) DetectEdges(req model.EdgeDetectRequest) (*model.EdgeDetectResult, error) {
	img, err := imaging.DecodeBase64(req.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	encoded, err := img.SobelMagnitude().EncodeBase64PNG()
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge map: %w", err)
	}
	return &model.EdgeDetectResult{Edges: encoded}, nil
}

// DetectLines reports straight lines found by the Hough transform,
// strongest first, in the uploaded image's coordinate frame
func (s *RenderService) DetectLines(req model.DetectLinesRequest) (*model.DetectLinesResult, error) {
	img, err := imaging.DecodeBase64(req.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	lines := detect.Lines(img, detect.Options{
		VoteThreshold: req.VoteThreshold,
		MaxLines:      req.MaxLines,
	})

	out := make([]model.LineInfo, 0, len(lines))
	for _, l := range lines {
		out = append(out, model.LineInfo{
			X1: l.X1, Y1: l.Y1, X2: l.X2, Y2: l.Y2,
			Rho: l.Rho, Theta: l.Theta, Votes: l.Votes,
		})
	}
	return &model.DetectLinesResult{Lines: out, Count: len(out)}, nil
}

// resolveTexture decodes an uploaded texture or generates a procedural
// sample when only a description is given
func (s *RenderService) resolveTexture(encoded string, sample *model.TextureParams) (*imaging.PixelBuffer, error) {
	if encoded != "" {
		tex, err := imaging.DecodeBase64(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode texture: %w", err)
		}
		return tex, nil
	}
	if sample == nil {
		return nil, fmt.Errorf("either texture or sample is required")
	}

	width, height := sample.Width, sample.Height
	if width <= 0 {
		width = defaultTextureSize
	}
	if height <= 0 {
		height = defaultTextureSize
	}
	opts := texture.Options{Seed: sample.Seed}
	if len(sample.BaseColor) == 3 {
		opts.BaseColor = &texture.RGB{
			R: clampByte(sample.BaseColor[0]),
			G: clampByte(sample.BaseColor[1]),
			B: clampByte(sample.BaseColor[2]),
		}
	}
	return texture.Generate(texture.Kind(sample.Kind), width, height, opts)
}

// blendSettings merges request parameters with configured defaults
func (s *RenderService) blendSettings(params model.BlendParams) (blend.Settings, error) {
	mode, err := blend.ParseMode(params.Mode)
	if err != nil {
		return blend.Settings{}, err
	}

	opacity := s.blendCfg.Opacity
	if params.Opacity != nil {
		opacity = *params.Opacity
		if opacity < 0 || opacity > 1 {
			return blend.Settings{}, fmt.Errorf("opacity %v outside [0, 1]", opacity)
		}
	}
	radius := params.FeatherRadius
	if radius <= 0 {
		radius = s.blendCfg.FeatherRadius
	}

	return blend.Settings{
		Mode:          mode,
		Opacity:       opacity,
		Brightness:    params.Brightness,
		FeatherRadius: radius,
	}, nil
}

func quadFromCorners(corners []model.PointParam) (imaging.Quad, error) {
	if len(corners) != 4 {
		return imaging.Quad{}, fmt.Errorf("exactly 4 corners are required, got %d", len(corners))
	}
	var quad imaging.Quad
	for i, c := range corners {
		quad[i] = imaging.Point{X: c.X, Y: c.Y}
	}
	if quad.Degenerate() {
		return imaging.Quad{}, fmt.Errorf("corners do not form a usable quad")
	}
	return quad, nil
}

func clampConfidence(c float64) float64 {
	if c < minConfidence {
		return minConfidence
	}
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
