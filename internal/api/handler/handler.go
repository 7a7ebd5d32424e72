package handler

import "moz-sch/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	TermGrade       *TermGradeHandler
	YearGrade       *YearGradeHandler
	Component       *ComponentHandler
	Criteria        *CriteriaHandler
	AssignmentGrade *AssignmentGradeHandler
	Export          *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		TermGrade:       NewTermGradeHandler(svc.Grade),
		YearGrade:       NewYearGradeHandler(svc.Grade),
		Component:       NewComponentHandler(svc.Component),
		Criteria:        NewCriteriaHandler(svc.Criteria),
		AssignmentGrade: NewAssignmentGradeHandler(svc.AssignmentGrade),
		Export:          NewExportHandler(svc.Export),
	}
}
