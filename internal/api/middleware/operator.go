package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"moz-sch/backend/pkg/response"
)

// OperatorHeader 上游网关注入的操作人 ID 请求头
const OperatorHeader = "X-Operator-ID"

const operatorIDKey = "operator_id"

// operatorIDMaxLen 与 request_id 相同的长度上限
const operatorIDMaxLen = 64

// Operator 从请求头读取操作人 ID 并注入 gin.Context
// 身份认证由上游完成，此处只负责传递审计信息
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := strings.TrimSpace(c.GetHeader(OperatorHeader))
		if op != "" && len(op) <= operatorIDMaxLen {
			c.Set(operatorIDKey, op)
		}
		c.Next()
	}
}

// RequireOperator 写接口要求携带操作人 ID
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(operatorIDKey) == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "缺少操作人信息")
			c.Abort()
			return
		}
		c.Next()
	}
}
