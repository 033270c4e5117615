package model

// SegmentResult is the wire form of one segmentation run.
type SegmentResult struct {
	MD5        string  `json:"md5"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Method     string  `json:"method"`
	Mask       string  `json:"mask"` // base64 PNG
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bounding_box"`
	EmptyMask  bool    `json:"empty_mask"`
	Timestamp  int64   `json:"timestamp"`
}

// BBox is the wire form of a pixel-space bounding box.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PointParam is a seed coordinate in a request body.
type PointParam struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SegmentParams carries the optional per-method tuning of a segmentation
// request.
type SegmentParams struct {
	Box            *BBox       `json:"box,omitempty"`
	Seed           *PointParam `json:"seed,omitempty"`
	Iterations     int         `json:"iterations,omitempty"`
	ColorThreshold float64     `json:"color_threshold,omitempty"`
	Tolerance      float64     `json:"tolerance,omitempty"`
	LargestOnly    bool        `json:"largest_only,omitempty"`
}

// BlendParams selects blend mode and adjustments for compositing
// requests. Opacity is a pointer so an explicit 0 is distinguishable
// from an absent field, which falls back to the configured default.
type BlendParams struct {
	Mode          string   `json:"mode,omitempty"`
	Opacity       *float64 `json:"opacity,omitempty"`
	Brightness    int      `json:"brightness,omitempty"`
	FeatherRadius int      `json:"feather_radius,omitempty"`
}

// TextureParams describes a procedural sample request.
type TextureParams struct {
	Kind      string `json:"kind"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	BaseColor []int  `json:"base_color,omitempty"`
	Seed      int64  `json:"seed,omitempty"`
}

// ApplyRequest composites a texture onto a target photograph. Texture is
// either an uploaded base64 image or a procedural description; corners
// name the destination quad clockwise from top-left.
type ApplyRequest struct {
	Image   string         `json:"image"`
	Texture string         `json:"texture,omitempty"`
	Sample  *TextureParams `json:"sample,omitempty"`
	Corners []PointParam   `json:"corners,omitempty"`
	Mask    string         `json:"mask,omitempty"`
	Blend   BlendParams    `json:"blend"`
}

// ProcessRequest is the full detect-and-apply pipeline in one call.
type ProcessRequest struct {
	Image   string         `json:"image"`
	Texture string         `json:"texture,omitempty"`
	Sample  *TextureParams `json:"sample,omitempty"`
	Method  string         `json:"method"`
	Params  SegmentParams  `json:"params"`
	Corners []PointParam   `json:"corners,omitempty"`
	Blend   BlendParams    `json:"blend"`
}

// RefineMaskRequest cleans and feathers an uploaded mask.
type RefineMaskRequest struct {
	Mask          string `json:"mask"`
	FeatherRadius int    `json:"feather_radius"`
}

// ApplyResult returns the composited image plus the alpha mask that
// produced it.
type ApplyResult struct {
	Result     string  `json:"result"` // base64 PNG
	Mask       string  `json:"mask,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	BBox       *BBox   `json:"bounding_box,omitempty"`
	EmptyMask  bool    `json:"empty_mask,omitempty"`
}

// DetectResult reports proposed surface structure.
type DetectResult struct {
	HorizontalLines int          `json:"horizontal_lines"`
	VerticalLines   int          `json:"vertical_lines"`
	Corners         []PointParam `json:"corners"`
}

// EdgeDetectRequest asks for the edge magnitude map of an image.
type EdgeDetectRequest struct {
	Image string `json:"image"`
}

// EdgeDetectResult returns the edge map as a gray base64 PNG.
type EdgeDetectResult struct {
	Edges string `json:"edges"`
}

// DetectLinesRequest runs the Hough transform over an uploaded image.
type DetectLinesRequest struct {
	Image         string `json:"image"`
	VoteThreshold int    `json:"vote_threshold,omitempty"`
	MaxLines      int    `json:"max_lines,omitempty"`
}

// LineInfo is the wire form of one detected line.
type LineInfo struct {
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Rho   float64 `json:"rho"`
	Theta float64 `json:"theta"`
	Votes int     `json:"votes"`
}

// DetectLinesResult lists detected lines, strongest first.
type DetectLinesResult struct {
	Lines []LineInfo `json:"lines"`
	Count int        `json:"count"`
}

// Response is the uniform success envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the uniform failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
