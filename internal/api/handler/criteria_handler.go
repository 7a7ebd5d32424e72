package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/service"
	"moz-sch/backend/pkg/response"
)

// CriteriaHandler 评分标准 HTTP 处理器
type CriteriaHandler struct {
	criteriaSvc service.CriteriaService
}

// NewCriteriaHandler 创建 CriteriaHandler
func NewCriteriaHandler(criteriaSvc service.CriteriaService) *CriteriaHandler {
	return &CriteriaHandler{criteriaSvc: criteriaSvc}
}

// Get 按 (科目, 年级, 学年) 查询评分标准
// GET /api/v1/criteria?subject_id=&year_level_id=&school_year_id=
func (h *CriteriaHandler) Get(c *gin.Context) {
	var q dto.CriteriaQuery
	if !bindQuery(c, &q) {
		return
	}

	result, err := h.criteriaSvc.Get(c.Request.Context(), &q)
	if err != nil {
		h.handleCriteriaError(c, err)
		return
	}

	response.OK(c, result)
}

// Upsert 新增或修改评分标准
// PUT /api/v1/criteria
func (h *CriteriaHandler) Upsert(c *gin.Context) {
	operatorID, ok := MustGetOperatorID(c)
	if !ok {
		return
	}

	var req dto.UpsertCriteriaRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.criteriaSvc.Upsert(c.Request.Context(), &req, operatorID)
	if err != nil {
		h.handleCriteriaError(c, err)
		return
	}

	response.OK(c, result)
}

// List 学年内全部评分标准
// GET /api/v1/school-years/:id/criteria
func (h *CriteriaHandler) List(c *gin.Context) {
	list, err := h.criteriaSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCriteriaError(c, err)
		return
	}

	response.OK(c, list)
}

func (h *CriteriaHandler) handleCriteriaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCriteriaNotFound):
		response.NotFound(c, 20001, "评分标准不存在")
	case errors.Is(err, service.ErrCriteriaWeightNegative):
		response.BadRequest(c, 20002, "评分标准权重不能为负数")
	case errors.Is(err, service.ErrCriteriaWeightSum):
		response.BadRequest(c, 20003, "评分标准三项权重之和必须为 100")
	default:
		response.InternalError(c)
	}
}
