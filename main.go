package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/renderease/surfacekit/config"
	"github.com/renderease/surfacekit/handler"
	"github.com/renderease/surfacekit/middleware"
	"github.com/renderease/surfacekit/service"
	"github.com/renderease/surfacekit/utils"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	cfg := config.New()

	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting SurfaceKit server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	redisService := service.NewRedisService(&cfg.Redis)
	ctx := context.Background()
	if err := redisService.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
	}

	renderService := service.NewRenderService(cfg)

	renderHandler := handler.NewRenderHandler(cfg, redisService, renderService)

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/segment", renderHandler.Segment)
		api.GET("/result/:md5", renderHandler.GetByMD5)
		api.POST("/texture", renderHandler.Texture)
		api.POST("/refine-mask", renderHandler.RefineMask)
		api.POST("/apply", renderHandler.Apply)
		api.POST("/apply-mask", renderHandler.ApplyWithMask)
		api.POST("/process", renderHandler.Process)
		api.POST("/detect-surfaces", renderHandler.DetectSurfaces)
		api.POST("/edge-detection", renderHandler.EdgeDetection)
		api.POST("/detect-lines", renderHandler.DetectLines)
	}

	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	err := r.Run(cfg.Server.Port)
	if err != nil {
		err = multierr.Append(err, redisService.Close())
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
	if closeErr := redisService.Close(); closeErr != nil {
		utils.Logger.Warn("failed to close redis", zap.Error(closeErr))
	}
}
