package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/renderease/surfacekit/config"
	"github.com/renderease/surfacekit/imaging"
	"github.com/renderease/surfacekit/model"
	"github.com/renderease/surfacekit/service"
	"github.com/renderease/surfacekit/utils"
)

func opacity(v float64) *float64 { return &v }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	if utils.Logger == nil {
		if err := utils.InitLogger("release"); err != nil {
			t.Fatal(err)
		}
	}
	gin.SetMode(gin.TestMode)

	cfg := config.New()
	h := NewRenderHandler(cfg, nil, service.NewRenderService(cfg))

	r := gin.New()
	r.POST("/api/v1/texture", h.Texture)
	r.POST("/api/v1/refine-mask", h.RefineMask)
	r.POST("/api/v1/apply", h.Apply)
	r.POST("/api/v1/apply-mask", h.ApplyWithMask)
	r.POST("/api/v1/process", h.Process)
	r.POST("/api/v1/edge-detection", h.EdgeDetection)
	r.POST("/api/v1/detect-lines", h.DetectLines)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTextureEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := postJSON(t, r, "/api/v1/texture", model.TextureParams{Kind: "wood", Width: 32, Height: 32})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Texture string `json:"texture"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if _, err := imaging.DecodeBase64(resp.Data.Texture); err != nil {
		t.Fatalf("texture payload does not decode: %v", err)
	}
}

func TestTextureEndpointRejectsUnknownKind(t *testing.T) {
	r := newTestRouter(t)
	w := postJSON(t, r, "/api/v1/texture", model.TextureParams{Kind: "velvet"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRefineMaskEndpoint(t *testing.T) {
	r := newTestRouter(t)

	m := imaging.NewGray(20, 20)
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			m.Pix[y*20+x] = 255
		}
	}
	encoded, err := m.EncodeBase64PNG()
	if err != nil {
		t.Fatal(err)
	}

	w := postJSON(t, r, "/api/v1/refine-mask", model.RefineMaskRequest{Mask: encoded, FeatherRadius: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestApplyMaskEndpointRequiresMask(t *testing.T) {
	r := newTestRouter(t)

	img := imaging.NewColor(20, 20)
	encoded, err := img.EncodeBase64PNG()
	if err != nil {
		t.Fatal(err)
	}

	w := postJSON(t, r, "/api/v1/apply-mask", model.ApplyRequest{
		Image:  encoded,
		Sample: &model.TextureParams{Kind: "wood"},
		Corners: []model.PointParam{
			{X: 0, Y: 0}, {X: 19, Y: 0}, {X: 19, Y: 19}, {X: 0, Y: 19},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without a mask", w.Code)
	}
}

func TestApplyEndpointBadBody(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/apply", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestProcessEndpoint(t *testing.T) {
	r := newTestRouter(t)

	img := imaging.NewColor(50, 50)
	for y := 15; y < 35; y++ {
		for x := 15; x < 35; x++ {
			o := img.Offset(x, y)
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = 200, 50, 50
		}
	}
	encoded, err := img.EncodeBase64PNG()
	if err != nil {
		t.Fatal(err)
	}

	w := postJSON(t, r, "/api/v1/process", model.ProcessRequest{
		Image:  encoded,
		Sample: &model.TextureParams{Kind: "tile", Width: 32, Height: 32},
		Method: "flood",
		Params: model.SegmentParams{
			Seed:      &model.PointParam{X: 25, Y: 25},
			Tolerance: 10,
		},
		Blend: model.BlendParams{Mode: "normal", Opacity: opacity(1)},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool              `json:"success"`
		Data    model.ApplyResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Data.Result == "" {
		t.Error("process response missing composited image")
	}
}

func TestEdgeDetectionEndpoint(t *testing.T) {
	r := newTestRouter(t)

	img := imaging.NewColor(40, 40)
	for y := 0; y < 40; y++ {
		for x := 20; x < 40; x++ {
			o := img.Offset(x, y)
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = 255, 255, 255
		}
	}
	encoded, err := img.EncodeBase64PNG()
	if err != nil {
		t.Fatal(err)
	}

	w := postJSON(t, r, "/api/v1/edge-detection", model.EdgeDetectRequest{Image: encoded})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool                   `json:"success"`
		Data    model.EdgeDetectResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	edges, err := imaging.DecodeBase64(resp.Data.Edges)
	if err != nil {
		t.Fatalf("edge map does not decode: %v", err)
	}
	if edges.Width != 40 || edges.Height != 40 {
		t.Errorf("edge map size %dx%d", edges.Width, edges.Height)
	}

	w = postJSON(t, r, "/api/v1/edge-detection", model.EdgeDetectRequest{Image: "not-an-image"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("garbage image status = %d, want 400", w.Code)
	}
}

func TestDetectLinesEndpoint(t *testing.T) {
	r := newTestRouter(t)

	img := imaging.NewGray(100, 100)
	for y := 0; y < 100; y++ {
		img.Pix[y*100+50] = 255
	}
	encoded, err := img.EncodeBase64PNG()
	if err != nil {
		t.Fatal(err)
	}

	w := postJSON(t, r, "/api/v1/detect-lines", model.DetectLinesRequest{Image: encoded, VoteThreshold: 50})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool                    `json:"success"`
		Data    model.DetectLinesResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Count == 0 || len(resp.Data.Lines) != resp.Data.Count {
		t.Fatalf("count = %d with %d lines", resp.Data.Count, len(resp.Data.Lines))
	}
	found := false
	for _, l := range resp.Data.Lines {
		if l.Rho > 47 && l.Rho < 53 {
			found = true
		}
	}
	if !found {
		t.Errorf("no line near the stripe at x=50; got %+v", resp.Data.Lines)
	}
}
