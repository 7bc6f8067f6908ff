package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/drk-backend-go/internal/config"
	"github.com/jengzang/drk-backend-go/internal/handler"
	"github.com/jengzang/drk-backend-go/internal/middleware"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Tracking   *handler.TrackingHandler
	History    *handler.HistoryHandler
	FixLimiter *middleware.RateLimiter // nil disables limiting
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "DRK Backend API is running",
		})
	})

	api := r.Group("/api/v1")
	{
		// 实时跟踪
		tracking := api.Group("/tracking")
		{
			auth := middleware.JWTAuth(cfg.JWTSecret)
			tracking.POST("/start", auth, h.Tracking.Start)
			tracking.POST("/stop", auth, h.Tracking.Stop)
			tracking.POST("/fixes", auth, middleware.RateLimit(h.FixLimiter), h.Tracking.PostFixes)

			tracking.GET("/state", h.Tracking.State)
			tracking.GET("/state/stream", h.Tracking.StreamState)
			tracking.GET("/results/stream", h.Tracking.StreamResults)
			tracking.GET("/ws", h.Tracking.Socket)
		}

		// 历史记录
		sessions := api.Group("/sessions")
		{
			sessions.GET("", h.History.ListSessions)
			sessions.GET("/:id", h.History.GetSession)
			sessions.GET("/:id/points", h.History.GetSessionPoints)
			sessions.GET("/:id/summary", h.History.GetSessionSummary)
		}

		api.GET("/stats/daily", h.History.GetDailyStats)
		api.GET("/player", h.History.GetPlayer)
		api.GET("/titles", h.History.GetTitles)
	}

	return r
}
