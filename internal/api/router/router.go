package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mosa54/control-center/config"
	"github.com/mosa54/control-center/internal/api/handler"
	"github.com/mosa54/control-center/internal/api/middleware"
)

// HealthChecker 健康检查依赖（数据库连通性）
type HealthChecker func() error

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不做限流，health 为 nil 时只返回进程存活
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, health HealthChecker, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	checkInLimit := middleware.RateLimit(limiter, cfg.Server.CheckInRateLimit, time.Minute, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 会话设置
		settings := v1.Group("/settings")
		{
			settings.GET("", h.Settings.GetSettings)
			settings.PATCH("", h.Settings.UpdateSettings)
		}

		// 名册
		catalog := v1.Group("/catalog")
		{
			catalog.GET("", h.Settings.GetCatalog)
			catalog.PUT("", h.Settings.ReplaceCatalog)
			catalog.POST("/import", h.Settings.ImportRoster)
		}

		// 应召
		checkins := v1.Group("/checkins")
		{
			checkins.GET("", h.CheckIn.ListCheckIns)
			checkins.POST("", checkInLimit, h.CheckIn.CheckIn)
			checkins.DELETE("", h.CheckIn.ResetAll)
			checkins.DELETE("/:employee_id", checkInLimit, h.CheckIn.CheckOut)
			checkins.PATCH("/:employee_id", h.CheckIn.ChangeDepartment)
		}

		v1.GET("/dashboard", h.CheckIn.Dashboard)
		v1.GET("/employees/:employee_id/mission", h.CheckIn.GetMission)

		// 变更事件流
		v1.GET("/events", h.Events.Stream)

		// 导出
		v1.GET("/export/checkins", h.Export.ExportCheckIns)
	}

	return r
}
