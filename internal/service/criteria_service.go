package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"moz-sch/backend/internal/dto"
	"moz-sch/backend/internal/model"
	"moz-sch/backend/internal/repository"
	"moz-sch/backend/pkg/redis"
)

// ── 评分标准模块业务错误 ──

var (
	ErrCriteriaNotFound       = errors.New("评分标准不存在")
	ErrCriteriaWeightNegative = errors.New("评分标准权重不能为负数")
	ErrCriteriaWeightSum      = errors.New("评分标准三项权重之和必须为 100")
)

var hundred = decimal.NewFromInt(100)

// CriteriaCache 评分标准读缓存（由 pkg/redis.Client 实现）
type CriteriaCache interface {
	GetCriteria(ctx context.Context, key string) ([]byte, bool, error)
	SetCriteria(ctx context.Context, key string, payload []byte) error
	InvalidateCriteria(ctx context.Context, key string) error
}

// CriteriaService 评分标准业务接口
//
// Resolve 供成绩引擎使用：不存在时返回 (nil, nil)，引擎据此跳过计算；
// Get 供接口层使用：不存在时返回 ErrCriteriaNotFound。
type CriteriaService interface {
	Resolve(ctx context.Context, subjectID, yearLevelID, schoolYearID string) (*model.GradingCriteria, error)
	Get(ctx context.Context, q *dto.CriteriaQuery) (*dto.CriteriaResponse, error)
	Upsert(ctx context.Context, req *dto.UpsertCriteriaRequest, operatorID string) (*dto.CriteriaResponse, error)
	List(ctx context.Context, schoolYearID string) ([]dto.CriteriaResponse, error)
}

type criteriaService struct {
	repo   *repository.Repository
	cache  CriteriaCache
	logger *zap.Logger
}

// NewCriteriaService 创建 CriteriaService 实例；cache 可为 nil（不使用缓存）
func NewCriteriaService(repo *repository.Repository, cache CriteriaCache, logger *zap.Logger) CriteriaService {
	return &criteriaService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── Resolve ──────────────────────

func (s *criteriaService) Resolve(ctx context.Context, subjectID, yearLevelID, schoolYearID string) (*model.GradingCriteria, error) {
	key := redis.CriteriaKey(subjectID, yearLevelID, schoolYearID)

	if s.cache != nil {
		payload, found, err := s.cache.GetCriteria(ctx, key)
		if err != nil {
			// 缓存不可用时降级查库
			s.logger.Warn("读取评分标准缓存失败", zap.String("key", key), zap.Error(err))
		} else if found {
			var c model.GradingCriteria
			if err := json.Unmarshal(payload, &c); err == nil {
				return &c, nil
			}
			s.logger.Warn("评分标准缓存内容无法解析，忽略", zap.String("key", key))
		}
	}

	criteria, err := s.repo.Criteria.Find(ctx, subjectID, yearLevelID, schoolYearID)
	if err != nil {
		s.logger.Error("查询评分标准失败",
			zap.String("subject_id", subjectID),
			zap.String("year_level_id", yearLevelID),
			zap.String("school_year_id", schoolYearID),
			zap.Error(err))
		return nil, err
	}
	if criteria == nil {
		return nil, nil
	}

	if s.cache != nil {
		if payload, err := json.Marshal(criteria); err == nil {
			if err := s.cache.SetCriteria(ctx, key, payload); err != nil {
				s.logger.Warn("写入评分标准缓存失败", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return criteria, nil
}

// ────────────────────── Get ──────────────────────

func (s *criteriaService) Get(ctx context.Context, q *dto.CriteriaQuery) (*dto.CriteriaResponse, error) {
	criteria, err := s.Resolve(ctx, q.SubjectID, q.YearLevelID, q.SchoolYearID)
	if err != nil {
		return nil, err
	}
	if criteria == nil {
		return nil, ErrCriteriaNotFound
	}
	resp := toCriteriaResponse(criteria)
	return &resp, nil
}

// ────────────────────── Upsert ──────────────────────

func (s *criteriaService) Upsert(ctx context.Context, req *dto.UpsertCriteriaRequest, operatorID string) (*dto.CriteriaResponse, error) {
	if req.TestsWeight.IsNegative() || req.HomeworkWeight.IsNegative() || req.AttendanceWeight.IsNegative() {
		return nil, ErrCriteriaWeightNegative
	}
	total := req.TestsWeight.Add(req.HomeworkWeight).Add(req.AttendanceWeight)
	if !total.Equal(hundred) {
		return nil, ErrCriteriaWeightSum
	}

	criteria := &model.GradingCriteria{
		SubjectID:        req.SubjectID,
		YearLevelID:      req.YearLevelID,
		SchoolYearID:     req.SchoolYearID,
		TestsWeight:      req.TestsWeight,
		HomeworkWeight:   req.HomeworkWeight,
		AttendanceWeight: req.AttendanceWeight,
	}
	criteria.CreatedBy = operatorPtr(operatorID)
	criteria.UpdatedBy = operatorPtr(operatorID)

	if err := s.repo.Criteria.Upsert(ctx, criteria); err != nil {
		s.logger.Error("保存评分标准失败", zap.String("subject_id", req.SubjectID), zap.Error(err))
		return nil, err
	}

	if s.cache != nil {
		key := redis.CriteriaKey(req.SubjectID, req.YearLevelID, req.SchoolYearID)
		if err := s.cache.InvalidateCriteria(ctx, key); err != nil {
			s.logger.Warn("清除评分标准缓存失败", zap.String("key", key), zap.Error(err))
		}
	}

	saved, err := s.repo.Criteria.Find(ctx, req.SubjectID, req.YearLevelID, req.SchoolYearID)
	if err != nil {
		s.logger.Error("查询评分标准失败", zap.Error(err))
		return nil, err
	}
	if saved == nil {
		saved = criteria
	}
	resp := toCriteriaResponse(saved)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *criteriaService) List(ctx context.Context, schoolYearID string) ([]dto.CriteriaResponse, error) {
	list, err := s.repo.Criteria.ListBySchoolYear(ctx, schoolYearID)
	if err != nil {
		s.logger.Error("列出评分标准失败", zap.String("school_year_id", schoolYearID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.CriteriaResponse, 0, len(list))
	for i := range list {
		result = append(result, toCriteriaResponse(&list[i]))
	}
	return result, nil
}

func toCriteriaResponse(c *model.GradingCriteria) dto.CriteriaResponse {
	return dto.CriteriaResponse{
		ID:               c.CriteriaID,
		SubjectID:        c.SubjectID,
		YearLevelID:      c.YearLevelID,
		SchoolYearID:     c.SchoolYearID,
		TestsWeight:      c.TestsWeight,
		HomeworkWeight:   c.HomeworkWeight,
		AttendanceWeight: c.AttendanceWeight,
		TotalWeight:      c.TestsWeight.Add(c.HomeworkWeight).Add(c.AttendanceWeight),
	}
}
