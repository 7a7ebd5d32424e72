package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"moz-sch/backend/config"
	"moz-sch/backend/internal/api/handler"
	"moz-sch/backend/internal/api/middleware"
	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/service"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流（Redis 不可用）
func Setup(cfg *config.Config, h *handler.Handler, trigger service.RecalcTrigger, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	dto.RegisterValidators()

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Operator())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"recalc_failures": trigger.Failures(),
		})
	})

	recalcLimit := middleware.RateLimit(limiter, cfg.Server.RecalcRateLimit, cfg.Server.RecalcRateWindow)
	write := middleware.RequireOperator()

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 评分标准
		criteria := v1.Group("/criteria")
		{
			criteria.GET("", h.Criteria.Get)
			criteria.PUT("", write, h.Criteria.Upsert)
		}
		v1.GET("/school-years/:id/criteria", h.Criteria.List)

		// 学期成绩
		termGrades := v1.Group("/term-grades")
		{
			termGrades.GET("", h.TermGrade.Get)
			termGrades.GET("/breakdown", h.TermGrade.Breakdown)
			termGrades.POST("/recalculate", write, recalcLimit, h.TermGrade.Recalculate)
			termGrades.PUT("/override", write, h.TermGrade.Override)
			termGrades.POST("/finalize", write, h.TermGrade.Finalize)
			termGrades.POST("/unfinalize", write, h.TermGrade.Unfinalize)
		}

		// 学年成绩
		yearGrades := v1.Group("/year-grades")
		{
			yearGrades.GET("", h.YearGrade.Get)
			yearGrades.POST("/recalculate", write, recalcLimit, h.YearGrade.Recalculate)
		}

		// 成绩组成项
		components := v1.Group("/components")
		{
			components.GET("", h.Component.List)
			components.GET("/weighted-average", h.Component.WeightedAverage)
			components.PUT("", write, h.Component.Upsert)
			components.POST("/auto-create", write, recalcLimit, h.Component.AutoCreate)
			components.DELETE("/:id", write, h.Component.Delete)
		}

		// 作业成绩
		assignmentGrades := v1.Group("/assignment-grades")
		{
			assignmentGrades.PUT("", write, h.AssignmentGrade.Save)
			assignmentGrades.DELETE("/:id", write, h.AssignmentGrade.Delete)
		}

		// 导出
		v1.GET("/export/term-grades", h.Export.ExportTermGrades)
	}

	return r
}
