package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/service"
	"moz-sch/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTermGrades 导出班级学期成绩表
// GET /api/v1/export/term-grades?class_id=xxx&term_id=xxx
func (h *ExportHandler) ExportTermGrades(c *gin.Context) {
	var q dto.ExportTermGradesQuery
	if !bindQuery(c, &q) {
		return
	}

	buf, filename, err := h.exportSvc.ExportTermGrades(c.Request.Context(), q.ClassID, q.TermID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if handleScopeError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportNoStudents):
		response.NotFound(c, 30101, "该班级暂无学生")
	case errors.Is(err, service.ErrExportNoGrades):
		response.NotFound(c, 30102, "该学期暂无学期成绩")
	default:
		response.InternalError(c)
	}
}
