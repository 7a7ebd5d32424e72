package service

import (
	"go.uber.org/zap"

	"moz-sch/backend/config"
	"moz-sch/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Criteria        CriteriaService
	Grade           GradeService
	Component       ComponentService
	AssignmentGrade AssignmentGradeService
	Export          ExportService
	Trigger         RecalcTrigger
}

// NewService 创建 Service 聚合
// cache 为 nil 时评分标准直接查库
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache CriteriaCache,
	logger *zap.Logger,
) *Service {
	criteria := NewCriteriaService(repo, cache, logger)
	grade := NewGradeService(cfg.Grading, repo, criteria, logger)
	trigger := NewRecalcTrigger(grade, logger)

	return &Service{
		Criteria:        criteria,
		Grade:           grade,
		Component:       NewComponentService(cfg.Grading, repo, trigger, logger),
		AssignmentGrade: NewAssignmentGradeService(repo, trigger, logger),
		Export:          NewExportService(cfg.Grading, repo, logger),
		Trigger:         trigger,
	}
}
