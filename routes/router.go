package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/reelapp/reel-backend/config"
	"github.com/reelapp/reel-backend/controllers"
	"github.com/reelapp/reel-backend/middleware"
	"github.com/reelapp/reel-backend/services"
	"github.com/reelapp/reel-backend/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, cfg config.AppConfig) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log and panics go to their own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	if cfg.TracingExporter != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	karmaService := services.NewKarmaService(db, utils.GetRedis(), services.KarmaOptions{
		DailyReward:     int64(cfg.DailyRewardPoints),
		UnlockCost:      int64(cfg.UnlockCostPoints),
		StreakCycleDays: cfg.StreakCycleDays,
		Location:        cfg.Location(),
	})
	unlockService := services.NewUnlockService(karmaService)
	contentService := services.NewContentService(db)

	authController := controllers.NewAuthController(db, cfg.AdminUsernames)
	karmaController := controllers.NewKarmaController(karmaService)
	episodeController := controllers.NewEpisodeController(contentService, unlockService)
	adController := controllers.NewAdController(contentService)
	statsController := controllers.NewStatsController(contentService, karmaService)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))

	karma := protected.Group("/karma-points")
	karma.GET("", karmaController.GetKarma)
	karma.POST("/add", karmaController.AddPoints)
	karma.PATCH("/deduct", karmaController.DeductPoints)
	karma.POST("/claim-daily", karmaController.ClaimDaily)
	karma.DELETE("/delete", karmaController.DeleteKarma)
	karma.GET("/history", karmaController.History)
	karma.POST("/ads/:id/watched", karmaController.WatchAd)

	protected.GET("/episodes", episodeController.ListEpisodes)
	protected.GET("/episodes/unlocked", episodeController.ListUnlocked)
	protected.GET("/episodes/:id", episodeController.GetEpisode)
	protected.GET("/episodes/:id/play", episodeController.PlayEpisode)
	protected.POST("/episodes/:id/unlock", episodeController.UnlockEpisode)
	// Older clients call this after a separate deduct.
	protected.PATCH("/episodes/:id/episodes/unlocked", episodeController.UnlockEpisodeLegacy)

	protected.GET("/ads", adController.ListAds)
	protected.GET("/ads/next", adController.NextAd)

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminRequired(cfg.AdminUsernames))
	admin.POST("/episodes", episodeController.CreateEpisode)
	admin.PUT("/episodes/:id", episodeController.UpdateEpisode)
	admin.DELETE("/episodes/:id", episodeController.DeleteEpisode)
	admin.GET("/ads", adController.ListAllAds)
	admin.POST("/ads", adController.CreateAd)
	admin.DELETE("/ads/:id", adController.DeleteAd)
	admin.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
