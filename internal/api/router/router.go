package router

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/api/handler"
	"github.com/leonard05717/appointment/internal/api/middleware"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/pkg/jwt"
	"github.com/leonard05717/appointment/pkg/metrics"
	"github.com/leonard05717/appointment/pkg/redis"
)

const (
	maxBodyBytes   = 4 << 20
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Deps 路由依赖的外部组件；Redis 与 Metrics 可为 nil
type Deps struct {
	JWT     *jwt.Manager
	Tokens  middleware.TokenChecker
	Redis   *redis.Client
	Metrics *metrics.Metrics
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.SentryScope())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// nil *redis.Client 不能直接放进接口
	var limiter middleware.WindowLimiter
	if deps.Redis != nil {
		limiter = deps.Redis
	}
	authLimit := middleware.RateLimit(limiter, authRateLimit, authRateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authLimit, h.Auth.Login)
			auth.POST("/register", authLimit, h.Auth.Register)
			auth.POST("/forgot-password", authLimit, h.Auth.ForgotPassword)
			auth.POST("/reset-password", authLimit, h.Auth.ResetPassword)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.JWT, deps.Tokens))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/me", h.Auth.UpdateProfile)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 预约表单需要的只读数据
			authorized.GET("/sections", h.Maintenance.ListSections)
			authorized.GET("/reasons", h.Maintenance.ListReasons)
			authorized.GET("/appointment-times", h.Maintenance.ListTimes)
			authorized.GET("/disabled-dates", h.Maintenance.ListDisabledDates)

			// 变更推送（学生只收到自己的预约）
			authorized.GET("/realtime/:table", h.Realtime.Stream)

			// 学生预约
			bookingGroup := authorized.Group("/booking", middleware.RequireCap(model.CapBook))
			{
				bookingGroup.GET("/availability", h.Booking.Availability)
				bookingGroup.POST("", h.Booking.Book)
				bookingGroup.GET("/draft", h.Booking.GetDraft)
				bookingGroup.PUT("/draft", h.Booking.UpdateDraft)
				bookingGroup.DELETE("/draft", h.Booking.Reset)
				bookingGroup.POST("/draft/next", h.Booking.Next)
				bookingGroup.POST("/draft/back", h.Booking.Back)
				bookingGroup.POST("/draft/commit", h.Booking.Commit)
				bookingGroup.GET("/appointments/:id/qrcode", h.Booking.QRCode)
			}

			mine := authorized.Group("/appointments/mine", middleware.RequireCap(model.CapBook))
			{
				mine.GET("", h.Appointment.History)
				mine.PUT("/:id", h.Appointment.Update)
				mine.POST("/:id/cancel", h.Appointment.Cancel)
			}

			// 员工
			admin := authorized.Group("", middleware.RoleAuth(model.RoleAdmin, model.RoleSuperAdmin))
			{
				appointments := admin.Group("/appointments", middleware.RequireCap(model.CapManageAppointments))
				{
					appointments.GET("", h.Appointment.List)
					appointments.GET("/scan/:code", h.Appointment.Scan)
					appointments.POST("/cursor", h.Appointment.Cursor)
					appointments.DELETE("/cursor", h.Appointment.ReleaseCursor)
					appointments.GET("/:id", h.Appointment.Get)
					appointments.PUT("/:id/status", h.Appointment.ChangeStatus)
				}
				admin.GET("/queue", middleware.RequireCap(model.CapManageAppointments), h.Appointment.Queue)

				// 班级、事由、时间段
				maintenance := admin.Group("", middleware.RequireCap(model.CapMaintenance))
				{
					maintenance.POST("/sections", h.Maintenance.CreateSection)
					maintenance.PUT("/sections/:id", h.Maintenance.UpdateSection)
					maintenance.DELETE("/sections/:id", h.Maintenance.DeleteSection)

					maintenance.POST("/reasons", h.Maintenance.CreateReason)
					maintenance.PUT("/reasons/:id", h.Maintenance.UpdateReason)
					maintenance.DELETE("/reasons/:id", h.Maintenance.DeleteReason)

					maintenance.POST("/appointment-times", h.Maintenance.CreateTime)
					maintenance.PUT("/appointment-times/:id", h.Maintenance.UpdateTime)
					maintenance.DELETE("/appointment-times/:id", h.Maintenance.DeleteTime)
				}

				// 停约日期
				disabled := admin.Group("/disabled-dates", middleware.RequireCap(model.CapSettings))
				{
					disabled.POST("", h.Maintenance.CreateDisabledDate)
					disabled.POST("/import", h.Maintenance.ImportDisabledDates)
					disabled.PUT("/:id", h.Maintenance.UpdateDisabledDate)
					disabled.DELETE("/:id", h.Maintenance.DeleteDisabledDate)
				}

				// 员工账号
				users := admin.Group("/users", middleware.RequireCap(model.CapManageUsers))
				{
					users.GET("", h.User.ListStaff)
					users.POST("", h.User.CreateUser)
					users.GET("/:id", h.User.GetUser)
					users.PUT("/:id", h.User.UpdateUser)
					users.PUT("/:id/status", h.User.SetStatus)
					users.DELETE("/:id", h.User.DeleteUser)
					users.POST("/:id/reset-password", h.User.ResetPassword)
				}

				// 学生账号
				students := admin.Group("/students", middleware.RequireCap(model.CapManageStudents))
				{
					students.GET("", h.User.ListStudents)
					students.GET("/generate-id", h.User.GenerateStudentID)
					students.POST("", h.User.CreateUser)
					students.GET("/:id", h.User.GetUser)
					students.PUT("/:id", h.User.UpdateUser)
					students.PUT("/:id/status", h.User.SetStatus)
					students.DELETE("/:id", h.User.DeleteUser)
					students.POST("/:id/reset-password", h.User.ResetPassword)
				}

				// 报表
				reports := admin.Group("/reports", middleware.RequireCap(model.CapReports))
				{
					reports.GET("/appointments", h.Report.Report)
					reports.GET("/appointments/export", h.Report.Export)
				}
			}
		}
	}

	return r
}
