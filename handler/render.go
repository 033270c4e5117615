package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/renderease/surfacekit/config"
	"github.com/renderease/surfacekit/model"
	"github.com/renderease/surfacekit/service"
	"github.com/renderease/surfacekit/utils"
	"go.uber.org/zap"
)

type RenderHandler struct {
	cfg           *config.Config
	redisService  *service.RedisService
	renderService *service.RenderService
}

func NewRenderHandler(cfg *config.Config, redis *service.RedisService, render *service.RenderService) *RenderHandler {
	return &RenderHandler{
		cfg:           cfg,
		redisService:  redis,
		renderService: render,
	}
}

// Segment handles an image upload and returns the surface mask
func (h *RenderHandler) Segment(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "an image file is required",
			Error:   err.Error(),
		})
		return
	}

	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("file exceeds size limit (%d MB)", h.cfg.Upload.MaxSize/(1024*1024)),
		})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "unsupported file type, only JPEG/PNG are accepted",
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "failed to open uploaded file",
			Error:   err.Error(),
		})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "failed to read uploaded file",
			Error:   err.Error(),
		})
		return
	}

	method := c.DefaultPostForm("method", "grabcut")

	var params model.SegmentParams
	if raw := c.PostForm("params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Success: false,
				Message: "invalid params field",
				Error:   err.Error(),
			})
			return
		}
	}

	md5 := utils.BytesMD5(data)

	utils.Logger.Info("file uploaded",
		zap.String("filename", file.Filename),
		zap.String("md5", md5),
		zap.Int64("size", file.Size),
		zap.String("method", method))

	// The cache key folds in the hint so different markings of the same
	// photo do not collide
	ctx := context.Background()
	cacheKey := md5 + ":" + method
	if raw := c.PostForm("params"); raw != "" {
		cacheKey += ":" + utils.BytesMD5([]byte(raw))
	}

	cached, err := h.redisService.GetSegmentResult(ctx, cacheKey)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}

	if cached != nil {
		utils.Logger.Info("cache hit", zap.String("cache_key", cacheKey))
		c.JSON(http.StatusOK, model.Response{
			Success: true,
			Message: "segmented (cached)",
			Data:    cached,
		})
		return
	}

	result, err := h.renderService.SegmentImage(c.Request.Context(), data, md5, method, params)
	if err != nil {
		utils.Logger.Error("failed to segment image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "segmentation failed",
			Error:   err.Error(),
		})
		return
	}

	if err := h.redisService.SetSegmentResult(ctx, cacheKey, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}
	if err := h.redisService.SetSegmentResult(ctx, md5, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "segmented",
		Data:    result,
	})
}

// GetByMD5 returns the latest cached segmentation for an image hash
func (h *RenderHandler) GetByMD5(c *gin.Context) {
	md5 := c.Param("md5")
	if md5 == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "md5 parameter is missing",
		})
		return
	}

	ctx := context.Background()
	result, err := h.redisService.GetSegmentResult(ctx, md5)
	if err != nil {
		utils.Logger.Error("failed to get segment result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "lookup failed",
			Error:   err.Error(),
		})
		return
	}

	if result == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "no segmentation found for this image",
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "found",
		Data:    result,
	})
}

// Texture renders a procedural material sample
func (h *RenderHandler) Texture(c *gin.Context) {
	var params model.TextureParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "invalid request body",
			Error:   err.Error(),
		})
		return
	}

	encoded, err := h.renderService.GenerateTexture(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "texture generation failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "generated",
		Data:    gin.H{"texture": encoded},
	})
}

// RefineMask cleans and feathers an uploaded mask
func (h *RenderHandler) RefineMask(c *gin.Context) {
	var req model.RefineMaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "invalid request body",
			Error:   err.Error(),
		})
		return
	}

	encoded, err := h.renderService.RefineMask(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "mask refinement failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "refined",
		Data:    gin.H{"mask": encoded},
	})
}

// Apply composites a texture onto the destination corners
func (h *RenderHandler) Apply(c *gin.Context) {
	var req model.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "invalid request body",
			Error:   err.Error(),
		})
		return
	}
	req.Mask = "" // corners only on this route

	h.runApply(c, req)
}

// ApplyWithMask composites a texture confined to an uploaded mask
func (h *RenderHandler) ApplyWithMask(c *gin.Context) {
	var req model.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "invalid request body",
			Error:   err.Error(),
		})
		return
	}
	if req.Mask == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "a mask is required on this route",
		})
		return
	}

	h.runApply(c, req)
}

func (h *RenderHandler) runApply(c *gin.Context, req model.ApplyRequest) {
	result, err := h.renderService.ApplyTexture(c.Request.Context(), req)
	if err != nil {
		utils.Logger.Error("failed to apply texture", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "texture application failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "applied",
		Data:    result,
	})
}

// Process runs segmentation plus texture application in one call
func (h *RenderHandler) Process(c *gin.Context) {
	var req model.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "invalid request body",
			Error:   err.Error(),
		})
		return
	}

	result, err := h.renderService.Process(c.Request.Context(), req)
	if err != nil {
		utils.Logger.Error("failed to process image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "processing failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "processed",
		Data:    result,
	})
}

// EdgeDetection returns the edge magnitude map of an uploaded image
func (h *RenderHandler) EdgeDetection(c *gin.Context) {
	var req model.EdgeDetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "invalid request body",
			Error:   err.Error(),
		})
		return
	}

	result, err := h.renderService.DetectEdges(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "edge detection failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "detected",
		Data:    result,
	})
}

// DetectLines lists straight lines found by the Hough transform
func (h *RenderHandler) DetectLines(c *gin.Context) {
	var req model.DetectLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "invalid request body",
			Error:   err.Error(),
		})
		return
	}

	result, err := h.renderService.DetectLines(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "line detection failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "detected",
		Data:    result,
	})
}

// DetectSurfaces reports line structure and corner candidates
func (h *RenderHandler) DetectSurfaces(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "an image file is required",
			Error:   err.Error(),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "failed to open uploaded file",
			Error:   err.Error(),
		})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "failed to read uploaded file",
			Error:   err.Error(),
		})
		return
	}

	result, err := h.renderService.DetectSurfaces(data)
	if err != nil {
		utils.Logger.Error("failed to detect surfaces", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "surface detection failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "detected",
		Data:    result,
	})
}

func (h *RenderHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
