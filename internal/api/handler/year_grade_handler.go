package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/service"
	"moz-sch/backend/pkg/response"
)

// YearGradeHandler 学年成绩 HTTP 处理器
type YearGradeHandler struct {
	gradeSvc service.GradeService
}

// NewYearGradeHandler 创建 YearGradeHandler
func NewYearGradeHandler(gradeSvc service.GradeService) *YearGradeHandler {
	return &YearGradeHandler{gradeSvc: gradeSvc}
}

// Recalculate 重算学年成绩缓存
// POST /api/v1/year-grades/recalculate
func (h *YearGradeHandler) Recalculate(c *gin.Context) {
	if _, ok := MustGetOperatorID(c); !ok {
		return
	}

	var req dto.RecalculateYearRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.gradeSvc.RecalculateYear(c.Request.Context(), req.StudentID, req.SubjectID)
	if err != nil {
		h.handleYearGradeError(c, err)
		return
	}
	if result == nil {
		response.Empty(c, "暂无已评分作业，未计算学年成绩")
		return
	}

	response.OK(c, result)
}

// Get 查询学年成绩
// GET /api/v1/year-grades?student_id=&subject_id=&school_year_id=
func (h *YearGradeHandler) Get(c *gin.Context) {
	var q dto.YearGradeQuery
	if !bindQuery(c, &q) {
		return
	}

	result, err := h.gradeSvc.GetYearGrade(c.Request.Context(), &q)
	if err != nil {
		h.handleYearGradeError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *YearGradeHandler) handleYearGradeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrYearGradeNotFound):
		response.NotFound(c, 30005, "学年成绩不存在")
	default:
		response.InternalError(c)
	}
}
