package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"moz-sch/backend/internal/service"
	"moz-sch/backend/pkg/response"
)

// MustGetOperatorID 从 Gin 上下文中安全提取 operator_id。
// 如果 Operator 中间件未注入 operator_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetOperatorID(c *gin.Context) (string, bool) {
	v, exists := c.Get("operator_id")
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "缺少操作人信息")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "缺少操作人信息")
		return "", false
	}
	return s, true
}

// bindJSON 绑定请求体；请求体超限返回 413，其余绑定错误返回 400
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			return false
		}
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return false
	}
	return true
}

// bindQuery 绑定查询参数
func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return false
	}
	return true
}

// handleScopeError 学期/学生/班级不存在，多个模块共用；已处理时返回 true
func handleScopeError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrTermNotFound):
		response.NotFound(c, 30001, "学期不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 30002, "学生不存在")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 30003, "班级不存在")
	default:
		return false
	}
	return true
}
