package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/api/handler"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/api/middleware"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/jwt"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/redis"
)

// multipartOverhead 上传文件之外的表单开销
const multipartOverhead = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	auth := middleware.JWTAuth(jwtMgr, rdb, logger)
	can := middleware.Authorize

	// ── API v1 ──
	v1 := r.Group("/api/v1")

	// 批量导入单独放宽请求体上限
	v1.POST("/import/guests",
		middleware.BodyLimit(cfg.Import.MaxFileSize+multipartOverhead),
		auth, can(service.ActionImportExport), h.ImportExport.ImportGuests)

	api := v1.Group("", middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	{
		// 认证模块（无需认证）
		public := api.Group("/auth")
		{
			public.POST("/login", middleware.RateLimit(rdb, cfg.Auth.LoginRateLimit, time.Minute, logger), h.Auth.Login)
			public.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := api.Group("", auth)
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.POST("/auth/register", can(service.ActionAccountCreate), h.Auth.Register)

			// 仪表盘统计（接待厅范围由 Service 层校验）
			stats := authorized.Group("/stats")
			{
				stats.GET("/global", can(service.ActionStatsRead), h.Stats.Global)
				stats.GET("/rooms/:id", can(service.ActionRoomRead), h.Stats.RoomPeriod)
				stats.GET("/hostesses/:id", h.Stats.Hostess) // 管理员或本人（Service 层鉴权）
			}

			// 接待厅模块
			rooms := authorized.Group("/rooms")
			{
				rooms.GET("", can(service.ActionRoomRead), h.Room.ListRooms)
				rooms.POST("", can(service.ActionRoomManage), h.Room.CreateRoom)
				rooms.GET("/:id", can(service.ActionRoomRead), h.Room.GetRoom)
				rooms.PUT("/:id", can(service.ActionRoomManage), h.Room.UpdateRoom)
				rooms.DELETE("/:id", can(service.ActionRoomManage), h.Room.DeleteRoom)
				rooms.GET("/:id/stats", can(service.ActionRoomRead), h.Room.GetRoomStats)
				rooms.GET("/:id/guests/stream", can(service.ActionGuestRead), h.Room.StreamGuests)
			}

			// 宾客模块
			guests := authorized.Group("/guests")
			{
				guests.GET("", can(service.ActionGuestRead), h.Guest.ListGuests)
				guests.GET("/search", can(service.ActionGuestRead), h.Guest.SearchGuests)
				guests.POST("", can(service.ActionGuestManage), h.Guest.CreateGuest)
				guests.GET("/:id", can(service.ActionGuestRead), h.Guest.GetGuest)
				guests.PUT("/:id", can(service.ActionGuestManage), h.Guest.UpdateGuest)
				guests.DELETE("/:id", can(service.ActionGuestManage), h.Guest.DeleteGuest)
				guests.POST("/:id/check-in", can(service.ActionCheckIn), h.Guest.CheckIn)
				guests.POST("/:id/check-out", can(service.ActionCheckOut), h.Guest.CheckOut)
				guests.GET("/:id/audit", can(service.ActionGuestRead), h.Guest.GetAuditLog)
			}

			// 接待员管理（仅管理员）
			profiles := authorized.Group("/profiles", can(service.ActionProfileManage))
			{
				profiles.GET("", h.Profile.ListProfiles)
				profiles.PUT("/:id", h.Profile.UpdateProfile)
				profiles.DELETE("/:id", h.Profile.DeleteProfile)
				profiles.GET("/:id/rooms", h.Profile.ListRooms)
				profiles.PUT("/:id/rooms/:room_id", h.Profile.AssignRoom)
				profiles.DELETE("/:id/rooms/:room_id", h.Profile.RemoveRoom)
				profiles.POST("/:id/rooms/:room_id/toggle", h.Profile.ToggleRoom)
			}

			// 审计日志（仅管理员）
			authorized.GET("/audit-logs", can(service.ActionAuditRead), h.Audit.ListAuditLogs)

			// 导入导出（仅管理员）
			ie := authorized.Group("", can(service.ActionImportExport))
			{
				ie.GET("/import/history", h.ImportExport.History)
				ie.GET("/import/progress/:id", h.ImportExport.GetProgress)
				ie.GET("/export/guests", h.ImportExport.ExportGuests)
			}

			// 邮件通知
			email := authorized.Group("/email")
			{
				email.GET("/preferences", can(service.ActionEmailSelf), h.Email.GetPreferences)
				email.PUT("/preferences", can(service.ActionEmailSelf), h.Email.UpdatePreferences)

				admin := email.Group("", can(service.ActionEmailAdmin))
				admin.GET("/notifications", h.Email.ListNotifications)
				admin.GET("/stats", h.Email.Stats)
				admin.POST("/test", h.Email.SendTest)
				admin.POST("/daily-report", h.Email.DailyReport)
				admin.POST("/check-in-notification", h.Email.CheckInNotification)
				admin.POST("/system-alert", h.Email.SystemAlert)
				admin.POST("/process-pending", h.Email.ProcessPending)
				admin.POST("/cleanup", h.Email.Cleanup)
			}
		}
	}

	return r
}
