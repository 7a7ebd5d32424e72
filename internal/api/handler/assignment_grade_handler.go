package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/service"
	"moz-sch/backend/pkg/response"
)

// AssignmentGradeHandler 作业成绩 HTTP 处理器
// 写入成功后由 service 层触发学期/学年成绩重算
type AssignmentGradeHandler struct {
	gradeSvc service.AssignmentGradeService
}

// NewAssignmentGradeHandler 创建 AssignmentGradeHandler
func NewAssignmentGradeHandler(gradeSvc service.AssignmentGradeService) *AssignmentGradeHandler {
	return &AssignmentGradeHandler{gradeSvc: gradeSvc}
}

// Save 录入或修改作业成绩
// PUT /api/v1/assignment-grades
func (h *AssignmentGradeHandler) Save(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var req dto.SaveAssignmentGradeRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.gradeSvc.Save(c.Request.Context(), &req, operatorID)
	if err != nil {
		h.handleAssignmentGradeError(c, err)
		return
	}

	response.OK(c, result)
}

// Delete 删除作业成绩
// DELETE /api/v1/assignment-grades/:id
func (h *AssignmentGradeHandler) Delete(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	if err := h.gradeSvc.Delete(c.Request.Context(), c.Param("id"), operatorID); err != nil {
		h.handleAssignmentGradeError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *AssignmentGradeHandler) handleAssignmentGradeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 41001, "作业不存在")
	case errors.Is(err, service.ErrAssignmentGradeNotFound):
		response.NotFound(c, 41002, "作业成绩不存在")
	case errors.Is(err, service.ErrGradeScoreRequired):
		response.BadRequest(c, 41003, "已评分状态必须填写分数")
	case errors.Is(err, service.ErrGradeScoreRange):
		response.BadRequest(c, 41004, "分数必须在 0 与作业满分之间")
	default:
		response.InternalError(c)
	}
}
