package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/model"
	"moz-sch/backend/internal/repository"
	"moz-sch/backend/pkg/logger"
)

// ── 作业成绩模块业务错误 ──

var (
	ErrAssignmentNotFound      = errors.New("作业不存在")
	ErrAssignmentGradeNotFound = errors.New("作业成绩不存在")
	ErrGradeScoreRequired      = errors.New("已评分状态必须填写分数")
	ErrGradeScoreRange         = errors.New("分数必须在 0 与作业满分之间")
)

// AssignmentGradeService 学生作业成绩业务接口
// 写入提交成功后同步触发成绩重算，重算失败不影响写入结果
type AssignmentGradeService interface {
	Save(ctx context.Context, req *dto.SaveAssignmentGradeRequest, operatorID string) (*dto.AssignmentGradeResponse, error)
	Delete(ctx context.Context, id string, operatorID string) error
}

type assignmentGradeService struct {
	repo    *repository.Repository
	trigger RecalcTrigger
	logger  *zap.Logger
	now     func() time.Time
}

// NewAssignmentGradeService 创建 AssignmentGradeService 实例
func NewAssignmentGradeService(repo *repository.Repository, trigger RecalcTrigger, logger *zap.Logger) AssignmentGradeService {
	return &assignmentGradeService{repo: repo, trigger: trigger, logger: logger, now: time.Now}
}

// ────────────────────── Save ──────────────────────

func (s *assignmentGradeService) Save(ctx context.Context, req *dto.SaveAssignmentGradeRequest, operatorID string) (*dto.AssignmentGradeResponse, error) {
	assignment, err := s.loadAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}

	if req.Status == model.GradeGraded && req.Score == nil {
		return nil, ErrGradeScoreRequired
	}
	var score decimal.NullDecimal
	if req.Score != nil {
		if req.Score.IsNegative() || req.Score.GreaterThan(assignment.MaxScore) {
			return nil, ErrGradeScoreRange
		}
		score = decimal.NewNullDecimal(*req.Score)
	}

	grade := &model.AssignmentGrade{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		Score:        score,
		Status:       req.Status,
		Feedback:     req.Feedback,
	}
	if req.Status == model.GradeGraded {
		now := s.now()
		grade.GradedBy = operatorPtr(operatorID)
		grade.GradedAt = &now
	}
	grade.CreatedBy = operatorPtr(operatorID)
	grade.UpdatedBy = operatorPtr(operatorID)

	fields := logger.GradeScope(req.StudentID, assignment.SubjectID, assignment.TermID)
	if err := s.repo.AssignmentGrade.Upsert(ctx, grade); err != nil {
		s.logger.Error("保存作业成绩失败", append(fields, zap.String("assignment_id", req.AssignmentID), zap.Error(err))...)
		return nil, err
	}

	s.trigger.OnAssignmentGradeChanged(ctx, req.StudentID, assignment.SubjectID, assignment.TermID, operatorID)

	return toAssignmentGradeResponse(grade), nil
}

// ────────────────────── Delete ──────────────────────

func (s *assignmentGradeService) Delete(ctx context.Context, id string, operatorID string) error {
	grade, err := s.repo.AssignmentGrade.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentGradeNotFound
		}
		s.logger.Error("查询作业成绩失败", zap.String("id", id), zap.Error(err))
		return err
	}
	assignment, err := s.loadAssignment(ctx, grade.AssignmentID)
	if err != nil {
		return err
	}

	if err := s.repo.AssignmentGrade.Delete(ctx, id); err != nil {
		s.logger.Error("删除作业成绩失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("作业成绩已删除",
		append(logger.GradeScope(grade.StudentID, assignment.SubjectID, assignment.TermID),
			zap.String("assignment_id", grade.AssignmentID),
			zap.String("operator_id", operatorID))...)

	s.trigger.OnAssignmentGradeChanged(ctx, grade.StudentID, assignment.SubjectID, assignment.TermID, operatorID)
	return nil
}

func (s *assignmentGradeService) loadAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	assignment, err := s.repo.AssignmentGrade.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询作业失败", zap.String("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return assignment, nil
}

func toAssignmentGradeResponse(g *model.AssignmentGrade) *dto.AssignmentGradeResponse {
	resp := &dto.AssignmentGradeResponse{
		ID:           g.AssignmentGradeID,
		AssignmentID: g.AssignmentID,
		StudentID:    g.StudentID,
		Status:       g.Status,
		Feedback:     g.Feedback,
	}
	if g.Score.Valid {
		v := g.Score.Decimal
		resp.Score = &v
	}
	if g.GradedAt != nil {
		resp.GradedAt = g.GradedAt.Format(timeLayout)
	}
	return resp
}
