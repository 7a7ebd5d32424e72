package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/service"
	"moz-sch/backend/pkg/response"
)

// ComponentHandler 成绩组成项 HTTP 处理器
type ComponentHandler struct {
	componentSvc service.ComponentService
}

// NewComponentHandler 创建 ComponentHandler
func NewComponentHandler(componentSvc service.ComponentService) *ComponentHandler {
	return &ComponentHandler{componentSvc: componentSvc}
}

// Upsert 新增或更新成绩组成项（按 学生+科目+学期+名称 唯一）
// PUT /api/v1/components
func (h *ComponentHandler) Upsert(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var req dto.UpsertComponentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.componentSvc.Upsert(c.Request.Context(), &req, operatorID)
	if err != nil {
		h.handleComponentError(c, err)
		return
	}

	response.OK(c, result)
}

// Delete 删除成绩组成项
// DELETE /api/v1/components/:id
func (h *ComponentHandler) Delete(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	if err := h.componentSvc.Delete(c.Request.Context(), c.Param("id"), operatorID); err != nil {
		h.handleComponentError(c, err)
		return
	}

	response.OK(c, nil)
}

// List 学生某科目某学期的全部组成项
// GET /api/v1/components?student_id=&subject_id=&term_id=
func (h *ComponentHandler) List(c *gin.Context) {
	var q dto.TermScopeQuery
	if !bindQuery(c, &q) {
		return
	}

	list, err := h.componentSvc.List(c.Request.Context(), &q)
	if err != nil {
		h.handleComponentError(c, err)
		return
	}

	response.OK(c, list)
}

// WeightedAverage 组成项加权平均
// GET /api/v1/components/weighted-average?student_id=&subject_id=&term_id=
func (h *ComponentHandler) WeightedAverage(c *gin.Context) {
	var q dto.TermScopeQuery
	if !bindQuery(c, &q) {
		return
	}

	result, err := h.componentSvc.WeightedAverage(c.Request.Context(), &q)
	if err != nil {
		h.handleComponentError(c, err)
		return
	}

	response.OK(c, result)
}

// AutoCreate 由已评分作业生成组成项
// POST /api/v1/components/auto-create
func (h *ComponentHandler) AutoCreate(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var req dto.AutoCreateComponentsRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.componentSvc.AutoCreateFromAssignments(c.Request.Context(), &req, operatorID)
	if err != nil {
		h.handleComponentError(c, err)
		return
	}

	response.OK(c, list)
}

func (h *ComponentHandler) handleComponentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrComponentNotFound):
		response.NotFound(c, 40001, "成绩组成项不存在")
	case errors.Is(err, service.ErrComponentWeightNegative):
		response.BadRequest(c, 40002, "成绩组成项权重不能为负数")
	case errors.Is(err, service.ErrComponentMaxScore):
		response.BadRequest(c, 40003, "成绩组成项满分必须大于 0")
	case errors.Is(err, service.ErrComponentScoreRange):
		response.BadRequest(c, 40004, "成绩组成项分数必须在 0 与满分之间")
	case errors.Is(err, service.ErrComponentSourceType):
		response.BadRequest(c, 40005, "成绩组成项来源只能是 manual 或 attendance")
	default:
		response.InternalError(c)
	}
}
