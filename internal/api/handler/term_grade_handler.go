package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/service"
	"moz-sch/backend/pkg/response"
)

// TermGradeHandler 学期成绩 HTTP 处理器
type TermGradeHandler struct {
	gradeSvc service.GradeService
}

// NewTermGradeHandler 创建 TermGradeHandler
func NewTermGradeHandler(gradeSvc service.GradeService) *TermGradeHandler {
	return &TermGradeHandler{gradeSvc: gradeSvc}
}

// Recalculate 重算学期成绩
// POST /api/v1/term-grades/recalculate
func (h *TermGradeHandler) Recalculate(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var req dto.RecalculateRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.gradeSvc.Recalculate(c.Request.Context(), &req, operatorID)
	if err != nil {
		h.handleTermGradeError(c, err)
		return
	}
	if result == nil {
		response.Empty(c, "缺少评分标准或班级信息，未计算学期成绩")
		return
	}

	response.OK(c, result)
}

// Get 查询学期成绩
// GET /api/v1/term-grades?student_id=&subject_id=&term_id=
func (h *TermGradeHandler) Get(c *gin.Context) {
	var q dto.TermScopeQuery
	if !bindQuery(c, &q) {
		return
	}

	result, err := h.gradeSvc.GetTermGrade(c.Request.Context(), q.StudentID, q.SubjectID, q.TermID)
	if err != nil {
		h.handleTermGradeError(c, err)
		return
	}
	if result == nil {
		response.Empty(c, "学期成绩尚未计算")
		return
	}

	response.OK(c, result)
}

// Breakdown 各组成项得分明细（不落库）
// GET /api/v1/term-grades/breakdown?student_id=&subject_id=&term_id=&class_id=
func (h *TermGradeHandler) Breakdown(c *gin.Context) {
	var q dto.BreakdownQuery
	if !bindQuery(c, &q) {
		return
	}

	req := &dto.RecalculateRequest{StudentID: q.StudentID, SubjectID: q.SubjectID, TermID: q.TermID}
	if q.ClassID != "" {
		req.ClassID = &q.ClassID
	}

	result, err := h.gradeSvc.Breakdown(c.Request.Context(), req)
	if err != nil {
		h.handleTermGradeError(c, err)
		return
	}
	if result == nil {
		response.Empty(c, "缺少评分标准或班级信息，无法计算明细")
		return
	}

	response.OK(c, result)
}

// Override 设置或清除手动覆盖成绩；manual_override 为 null 时清除
// PUT /api/v1/term-grades/override
func (h *TermGradeHandler) Override(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var req dto.OverrideRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		result *dto.TermGradeResponse
		err    error
	)
	if req.ManualOverride == nil {
		result, err = h.gradeSvc.ClearOverride(c.Request.Context(), &req.TermScopeRequest, operatorID)
	} else {
		result, err = h.gradeSvc.SetOverride(c.Request.Context(), &req.TermScopeRequest, *req.ManualOverride, operatorID)
	}
	if err != nil {
		h.handleTermGradeError(c, err)
		return
	}

	response.OK(c, result)
}

// Finalize 锁定学期成绩
// POST /api/v1/term-grades/finalize
func (h *TermGradeHandler) Finalize(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var req dto.TermScopeRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.gradeSvc.Finalize(c.Request.Context(), &req, operatorID)
	if err != nil {
		h.handleTermGradeError(c, err)
		return
	}

	response.OK(c, result)
}

// Unfinalize 解除锁定
// POST /api/v1/term-grades/unfinalize
func (h *TermGradeHandler) Unfinalize(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var req dto.TermScopeRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.gradeSvc.Unfinalize(c.Request.Context(), &req, operatorID)
	if err != nil {
		h.handleTermGradeError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *TermGradeHandler) handleTermGradeError(c *gin.Context, err error) {
	if handleScopeError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrTermGradeNotFound):
		response.NotFound(c, 30004, "学期成绩不存在，请先计算")
	case errors.Is(err, service.ErrTermGradeFinalized):
		response.Conflict(c, 30006, "学期成绩已锁定，无法修改")
	case errors.Is(err, service.ErrOverrideOutOfRange):
		response.BadRequest(c, 30007, "手动成绩超出分制范围")
	case errors.Is(err, service.ErrTermGradeNotLocked):
		response.Conflict(c, 30008, "学期成绩未锁定")
	default:
		response.InternalError(c)
	}
}
