package service

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"moz-sch/backend/config"
	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/grading"
	"moz-sch/backend/internal/model"
	"moz-sch/backend/internal/repository"
	"moz-sch/backend/pkg/logger"
)

// ── 成绩组成项模块业务错误 ──

var (
	ErrComponentNotFound       = errors.New("成绩组成项不存在")
	ErrComponentWeightNegative = errors.New("成绩组成项权重不能为负数")
	ErrComponentMaxScore       = errors.New("成绩组成项满分必须大于 0")
	ErrComponentScoreRange     = errors.New("成绩组成项分数必须在 0 与满分之间")
	ErrComponentSourceType     = errors.New("手动录入的成绩组成项来源只能是 manual 或 attendance")
)

// ComponentService 成绩组成项（教师手工台账）业务接口
//
// 组成项与评分标准无关，加权平均公式为 Σ(pct_i × w_i) / Σw_i，
// 与学期成绩中测验子分数的"百分比简单平均"是两个独立的计算。
// 每次写入成功后触发成绩重算。
type ComponentService interface {
	Upsert(ctx context.Context, req *dto.UpsertComponentRequest, operatorID string) (*dto.ComponentResponse, error)
	Delete(ctx context.Context, id string, operatorID string) error
	List(ctx context.Context, q *dto.TermScopeQuery) ([]dto.ComponentResponse, error)
	WeightedAverage(ctx context.Context, q *dto.TermScopeQuery) (*dto.WeightedAverageResponse, error)
	// AutoCreateFromAssignments 按评估类型汇总已评分作业，每个类型写入一条 auto_calculated 组成项
	// 新建的组成项权重为 0，需教师手动设置后才参与加权
	AutoCreateFromAssignments(ctx context.Context, req *dto.AutoCreateComponentsRequest, operatorID string) ([]dto.ComponentResponse, error)
}

type componentService struct {
	scale   grading.Scale
	repo    *repository.Repository
	trigger RecalcTrigger
	logger  *zap.Logger
}

// NewComponentService 创建 ComponentService 实例
func NewComponentService(cfg config.GradingConfig, repo *repository.Repository, trigger RecalcTrigger, logger *zap.Logger) ComponentService {
	return &componentService{
		scale:   grading.NewScale(cfg.MaxScore, cfg.DecimalPlaces),
		repo:    repo,
		trigger: trigger,
		logger:  logger,
	}
}

// ────────────────────── Upsert ──────────────────────

func (s *componentService) Upsert(ctx context.Context, req *dto.UpsertComponentRequest, operatorID string) (*dto.ComponentResponse, error) {
	maxScore := s.scale.Max
	if req.MaxScore != nil {
		maxScore = *req.MaxScore
	}
	if !maxScore.IsPositive() {
		return nil, ErrComponentMaxScore
	}
	if req.Weight.IsNegative() {
		return nil, ErrComponentWeightNegative
	}
	if req.Score.IsNegative() || req.Score.GreaterThan(maxScore) {
		return nil, ErrComponentScoreRange
	}

	componentType := req.ComponentType
	if componentType == "" {
		componentType = req.ComponentName
	}
	sourceType := req.SourceType
	switch sourceType {
	case "":
		sourceType = model.SourceManual
	case model.SourceManual, model.SourceAttendance:
	default:
		return nil, ErrComponentSourceType
	}

	component := &model.GradeComponent{
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		TermID:        req.TermID,
		ComponentName: req.ComponentName,
		ComponentType: componentType,
		Score:         req.Score,
		MaxScore:      maxScore,
		Weight:        req.Weight,
		SourceType:    sourceType,
		Notes:         req.Notes,
	}
	component.CreatedBy = operatorPtr(operatorID)
	component.UpdatedBy = operatorPtr(operatorID)

	fields := logger.GradeScope(req.StudentID, req.SubjectID, req.TermID)
	if err := s.repo.GradeComponent.Upsert(ctx, component); err != nil {
		s.logger.Error("保存成绩组成项失败", append(fields, zap.String("component_name", req.ComponentName), zap.Error(err))...)
		return nil, err
	}

	saved, err := s.repo.GradeComponent.GetByKey(ctx, req.StudentID, req.SubjectID, req.TermID, req.ComponentName)
	if err != nil {
		s.logger.Error("查询成绩组成项失败", append(fields, zap.Error(err))...)
		return nil, err
	}
	if saved == nil {
		saved = component
	}

	s.trigger.OnComponentChanged(ctx, req.StudentID, req.SubjectID, req.TermID, operatorID)

	resp := toComponentResponse(saved)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *componentService) Delete(ctx context.Context, id string, operatorID string) error {
	component, err := s.repo.GradeComponent.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrComponentNotFound
		}
		s.logger.Error("查询成绩组成项失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if err := s.repo.GradeComponent.Delete(ctx, id); err != nil {
		s.logger.Error("删除成绩组成项失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("成绩组成项已删除",
		append(logger.GradeScope(component.StudentID, component.SubjectID, component.TermID),
			zap.String("component_name", component.ComponentName),
			zap.String("operator_id", operatorID))...)

	s.trigger.OnComponentChanged(ctx, component.StudentID, component.SubjectID, component.TermID, operatorID)
	return nil
}

// ────────────────────── List ──────────────────────

func (s *componentService) List(ctx context.Context, q *dto.TermScopeQuery) ([]dto.ComponentResponse, error) {
	list, err := s.repo.GradeComponent.List(ctx, q.StudentID, q.SubjectID, q.TermID)
	if err != nil {
		s.logger.Error("列出成绩组成项失败", append(logger.GradeScope(q.StudentID, q.SubjectID, q.TermID), zap.Error(err))...)
		return nil, err
	}

	result := make([]dto.ComponentResponse, 0, len(list))
	for i := range list {
		result = append(result, toComponentResponse(&list[i]))
	}
	return result, nil
}

// ────────────────────── WeightedAverage ──────────────────────

func (s *componentService) WeightedAverage(ctx context.Context, q *dto.TermScopeQuery) (*dto.WeightedAverageResponse, error) {
	list, err := s.repo.GradeComponent.List(ctx, q.StudentID, q.SubjectID, q.TermID)
	if err != nil {
		s.logger.Error("列出成绩组成项失败", append(logger.GradeScope(q.StudentID, q.SubjectID, q.TermID), zap.Error(err))...)
		return nil, err
	}

	resp := &dto.WeightedAverageResponse{
		StudentID:   q.StudentID,
		SubjectID:   q.SubjectID,
		TermID:      q.TermID,
		TotalWeight: decimal.Zero,
	}
	items := make([]grading.WeightedScore, 0, len(list))
	for _, c := range list {
		items = append(items, grading.WeightedScore{Score: c.Score, MaxScore: c.MaxScore, Weight: c.Weight})
		if c.Weight.IsPositive() {
			resp.TotalWeight = resp.TotalWeight.Add(c.Weight)
			resp.ComponentCount++
		}
	}
	resp.IsComplete = resp.TotalWeight.GreaterThanOrEqual(hundred)

	if avg, ok := s.scale.WeightedAverage(items); ok {
		v := s.scale.Round(avg)
		resp.Average = &v
	}
	return resp, nil
}

// ────────────────────── AutoCreateFromAssignments ──────────────────────

func (s *componentService) AutoCreateFromAssignments(ctx context.Context, req *dto.AutoCreateComponentsRequest, operatorID string) ([]dto.ComponentResponse, error) {
	fields := logger.GradeScope(req.StudentID, req.SubjectID, req.TermID)

	graded, err := s.repo.Metric.ListGradedAssignments(ctx, req.StudentID, req.SubjectID, req.TermID)
	if err != nil {
		s.logger.Error("查询已评分作业失败", append(fields, zap.Error(err))...)
		return nil, err
	}

	// 按评估类型名称分组
	groups := make(map[string][]model.GradedAssignment)
	for _, g := range graded {
		groups[g.AssessmentTypeName] = append(groups[g.AssessmentTypeName], g)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		for _, name := range names {
			group := groups[name]
			items := make([]grading.WeightedScore, 0, len(group))
			ids := make(model.StringArray, 0, len(group))
			for _, g := range group {
				items = append(items, grading.WeightedScore{Score: g.Score, MaxScore: g.MaxScore, Weight: g.Weight})
				ids = append(ids, g.AssignmentID)
			}

			avg, ok := s.scale.WeightedAverage(items)
			if !ok {
				s.logger.Debug("评估类型下无可加权的作业，跳过", append(fields, zap.String("assessment_type", name))...)
				continue
			}

			component := &model.GradeComponent{
				StudentID:     req.StudentID,
				SubjectID:     req.SubjectID,
				TermID:        req.TermID,
				ComponentName: name,
				ComponentType: name,
				Score:         s.scale.Round(avg),
				MaxScore:      s.scale.Max,
				Weight:        decimal.Zero,
				SourceType:    model.SourceAutoCalculated,
				AssignmentIDs: ids,
			}
			component.CreatedBy = operatorPtr(operatorID)
			component.UpdatedBy = operatorPtr(operatorID)

			if err := tx.GradeComponent.UpsertDerived(ctx, component); err != nil {
				s.logger.Error("写入自动组成项失败", append(fields, zap.String("assessment_type", name), zap.Error(err))...)
				return err
			}
			written = append(written, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(written) == 0 {
		return []dto.ComponentResponse{}, nil
	}

	result := make([]dto.ComponentResponse, 0, len(written))
	for _, name := range written {
		saved, err := s.repo.GradeComponent.GetByKey(ctx, req.StudentID, req.SubjectID, req.TermID, name)
		if err != nil {
			s.logger.Error("查询成绩组成项失败", append(fields, zap.Error(err))...)
			return nil, err
		}
		if saved != nil {
			result = append(result, toComponentResponse(saved))
		}
	}

	s.logger.Info("已由作业自动生成成绩组成项", append(fields, zap.Int("count", len(written)))...)
	s.trigger.OnComponentChanged(ctx, req.StudentID, req.SubjectID, req.TermID, operatorID)
	return result, nil
}

func toComponentResponse(c *model.GradeComponent) dto.ComponentResponse {
	return dto.ComponentResponse{
		ID:            c.ComponentID,
		StudentID:     c.StudentID,
		SubjectID:     c.SubjectID,
		TermID:        c.TermID,
		ComponentName: c.ComponentName,
		ComponentType: c.ComponentType,
		Score:         c.Score,
		MaxScore:      c.MaxScore,
		Weight:        c.Weight,
		SourceType:    c.SourceType,
		AssignmentIDs: []string(c.AssignmentIDs),
		Notes:         c.Notes,
		UpdatedAt:     c.UpdatedAt.Format(timeLayout),
	}
}
