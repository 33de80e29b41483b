package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/config"
	"github.com/bukulele/beontrack-portal-sub001/internal/api/handler"
	"github.com/bukulele/beontrack-portal-sub001/internal/api/middleware"
	"github.com/bukulele/beontrack-portal-sub001/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidators()

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 写操作限流
	write := middleware.RateLimit(rdb, cfg.Server.WriteLimit, cfg.Server.WriteWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 司机模块
		drivers := v1.Group("/drivers")
		{
			drivers.GET("", h.Driver.ListDrivers)
			drivers.GET("/schedules", h.Driver.GetSchedules)
			drivers.PUT("/:id/schedule", write, h.Driver.UpdateSchedule)
			drivers.PATCH("/:id", write, h.Driver.UpdateDriver)
			drivers.GET("/:id/shifts.ics", h.Export.ExportDriverShifts)
		}

		// 班次模块
		shifts := v1.Group("/shifts")
		{
			shifts.POST("/:driver_id/start", write, h.Shift.StartShift)
			shifts.POST("/:driver_id/stop", write, h.Shift.StopShift)
			shifts.POST("/:driver_id/cancel-stop", h.Shift.CancelStop)
		}

		// 出勤记录模块
		attendance := v1.Group("/attendance")
		{
			attendance.GET("", h.Shift.ListAttendance)
			attendance.POST("", write, h.Shift.CreateAttendance)
			attendance.PATCH("/:id", write, h.Shift.UpdateAttendance)
			attendance.DELETE("/:id", write, h.Shift.DeleteAttendance)
		}

		// 车辆模块
		trucks := v1.Group("/trucks")
		{
			trucks.GET("/active", h.Truck.ListActive)
			trucks.GET("/available", h.Truck.ListAvailable)
			trucks.POST("/assign", write, h.Truck.Assign)
			trucks.POST("/swap", write, h.Truck.Swap)
			trucks.POST("/swap/resume", write, h.Truck.ResumeSwap)
			trucks.POST("/clear", write, h.Truck.Clear)
		}

		// 看板模块
		board := v1.Group("/board")
		{
			board.GET("", h.Board.GetBoard)
			board.POST("/refresh", write, h.Board.RefreshBoard)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/board", h.Export.ExportBoard)
		}
	}

	return r
}
