package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"campus-timetable/backend/config"
	"campus-timetable/backend/internal/api/handler"
	"campus-timetable/backend/internal/api/middleware"
	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/pkg/jwt"
	"campus-timetable/backend/pkg/metrics"
	"campus-timetable/backend/pkg/redis"
)

// Deps 路由依赖。Redis 与指标可为空。
type Deps struct {
	Config     *config.Config
	Handler    *handler.Handler
	JWT        *jwt.Manager
	Redis      *redis.Client
	Metrics    metrics.Recorder
	MetricsApp http.Handler
	// Ready 健康检查时探测数据库等依赖
	Ready  func(ctx context.Context) error
	Logger *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(d Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := dto.RegisterValidations(v); err != nil {
			return nil, err
		}
	}

	rec := d.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	cfg := d.Config
	h := d.Handler

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Metrics(rec))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled && d.MetricsApp != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(d.MetricsApp))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(d.JWT, d.Redis, d.Logger))
	{
		// 写接口限流
		limited := middleware.RateLimit(d.Redis, cfg.RateLimit.Limit, cfg.RateLimit.Window, d.Logger)

		// 课表模块
		timetables := v1.Group("/timetables")
		{
			timetables.GET("", h.Timetable.ListTimetables)
			timetables.GET("/:id", h.Timetable.GetTimetable)
			timetables.POST("", limited, h.Timetable.CreateTimetable)
			timetables.PUT("/:id", limited, h.Timetable.UpdateTimetable)
			timetables.POST("/:id/publish", limited, h.Timetable.PublishTimetable)
			timetables.POST("/:id/archive", limited, h.Timetable.ArchiveTimetable)
			timetables.POST("/:id/clash-check", h.Timetable.CheckClash)
			timetables.POST("/:id/constraints/evaluate", h.Constraint.EvaluateConstraints)
			timetables.GET("/:id/entries", h.Entry.ListEntries)
			timetables.POST("/:id/entries", limited, h.Entry.CreateEntry)
			timetables.GET("/:id/exceptions", h.Exception.ListTimetableExceptions)
			timetables.GET("/:id/export", h.Export.ExportTimetable)
		}

		// 排课明细
		entries := v1.Group("/entries")
		{
			entries.GET("/:id", h.Entry.GetEntry)
			entries.PUT("/:id", limited, h.Entry.UpdateEntry)
			entries.DELETE("/:id", limited, h.Entry.DeleteEntry)
			entries.GET("/:id/exceptions", h.Exception.ListEntryExceptions)
			entries.POST("/:id/exceptions", limited, h.Exception.CreateException)
		}

		v1.DELETE("/exceptions/:id", limited, h.Exception.RevertException)

		// 时间段模块
		timeSlots := v1.Group("/time-slots")
		{
			timeSlots.GET("", h.TimeSlot.ListTimeSlots)
			timeSlots.GET("/:id", h.TimeSlot.GetTimeSlot)
			timeSlots.GET("/:id/usage", h.TimeSlot.TimeSlotUsage)
			timeSlots.POST("", limited, h.TimeSlot.CreateTimeSlot)
			timeSlots.PUT("/:id", limited, h.TimeSlot.UpdateTimeSlot)
			timeSlots.DELETE("/:id", limited, h.TimeSlot.DeleteTimeSlot)
		}

		// 教室模块
		rooms := v1.Group("/rooms")
		{
			rooms.GET("", h.Room.ListRooms)
			rooms.GET("/:id", h.Room.GetRoom)
			rooms.GET("/:id/usage", h.Room.RoomUsage)
			rooms.POST("", limited, h.Room.CreateRoom)
			rooms.PUT("/:id", limited, h.Room.UpdateRoom)
			rooms.DELETE("/:id", limited, h.Room.DeleteRoom)
		}

		// 排课规则模块
		constraints := v1.Group("/constraints")
		{
			constraints.GET("", h.Constraint.ListConstraints)
			constraints.GET("/:id", h.Constraint.GetConstraint)
			constraints.POST("", limited, h.Constraint.CreateConstraint)
			constraints.PUT("/:id", limited, h.Constraint.UpdateConstraint)
			constraints.DELETE("/:id", limited, h.Constraint.DeleteConstraint)
		}

		// 日历订阅（:id 形如 "<uuid>.ics"）
		calendars := v1.Group("/calendars")
		{
			calendars.GET("/teachers/:id", h.Calendar.TeacherCalendar)
			calendars.GET("/rooms/:id", h.Calendar.RoomCalendar)
		}
	}

	return r, nil
}
