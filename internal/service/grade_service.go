package service

import (
	"context"
	"errors"
	"sort"
	"time"

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

// ── 成绩模块业务错误 ──

var (
	ErrTermNotFound       = errors.New("学期不存在")
	ErrStudentNotFound    = errors.New("学生不存在")
	ErrClassNotFound      = errors.New("班级不存在")
	ErrTermGradeNotFound  = errors.New("学期成绩不存在，请先计算")
	ErrYearGradeNotFound  = errors.New("学年成绩不存在")
	ErrTermGradeFinalized = errors.New("学期成绩已锁定，无法修改")
	ErrOverrideOutOfRange = errors.New("手动成绩超出分制范围")
	ErrTermGradeNotLocked = errors.New("学期成绩未锁定")
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// GradeService 成绩计算业务接口
//
// 计算流程：评分标准 → 原始指标 → 各组成项子分数 → 学期成绩（写入 term_grades）。
// 返回 (nil, nil) 表示"无可计算内容"（没有评分标准或学生未分班），与"计算结果为 0"不同。
type GradeService interface {
	// Recalculate 重算并写入学期成绩；保留已有的手动覆盖
	Recalculate(ctx context.Context, req *dto.RecalculateRequest, operatorID string) (*dto.TermGradeResponse, error)
	// RecalculateYear 按学年分组重算学年成绩缓存，返回最近学年的结果
	RecalculateYear(ctx context.Context, studentID, subjectID string) (*dto.YearGradeResponse, error)
	// GetTermGrade 不存在时返回 (nil, nil)
	GetTermGrade(ctx context.Context, studentID, subjectID, termID string) (*dto.TermGradeResponse, error)
	GetYearGrade(ctx context.Context, q *dto.YearGradeQuery) (*dto.YearGradeResponse, error)
	// Breakdown 计算各组成项明细但不落库
	Breakdown(ctx context.Context, req *dto.RecalculateRequest) (*dto.TermGradeBreakdown, error)

	SetOverride(ctx context.Context, scope *dto.TermScopeRequest, value decimal.Decimal, operatorID string) (*dto.TermGradeResponse, error)
	ClearOverride(ctx context.Context, scope *dto.TermScopeRequest, operatorID string) (*dto.TermGradeResponse, error)
	Finalize(ctx context.Context, scope *dto.TermScopeRequest, operatorID string) (*dto.TermGradeResponse, error)
	Unfinalize(ctx context.Context, scope *dto.TermScopeRequest, operatorID string) (*dto.TermGradeResponse, error)
}

type gradeService struct {
	cfg      config.GradingConfig
	scale    grading.Scale
	repo     *repository.Repository
	criteria CriteriaService
	logger   *zap.Logger
	now      func() time.Time
}

// NewGradeService 创建 GradeService 实例
func NewGradeService(cfg config.GradingConfig, repo *repository.Repository, criteria CriteriaService, logger *zap.Logger) GradeService {
	return &gradeService{
		cfg:      cfg,
		scale:    grading.NewScale(cfg.MaxScore, cfg.DecimalPlaces),
		repo:     repo,
		criteria: criteria,
		logger:   logger,
		now:      time.Now,
	}
}

// termScope 一次学期成绩计算所需的上下文
type termScope struct {
	term     *model.Term
	criteria *model.GradingCriteria
}

// resolveScope 解析学期与评分标准；criteria 为 nil 表示无可计算内容
//
// 年级优先取请求中的班级，否则取学生当前班级；学年取自学期。
func (s *gradeService) resolveScope(ctx context.Context, repo *repository.Repository, studentID, subjectID, termID string, classID *string) (*termScope, error) {
	term, err := repo.Academic.GetTerm(ctx, termID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTermNotFound
		}
		s.logger.Error("查询学期失败", zap.String("term_id", termID), zap.Error(err))
		return nil, err
	}
	scope := &termScope{term: term}

	var class *model.Class
	if classID != nil && *classID != "" {
		class, err = repo.Academic.GetClass(ctx, *classID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrClassNotFound
			}
			s.logger.Error("查询班级失败", zap.String("class_id", *classID), zap.Error(err))
			return nil, err
		}
	} else {
		student, err := repo.Academic.GetStudent(ctx, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrStudentNotFound
			}
			s.logger.Error("查询学生失败", zap.String("student_id", studentID), zap.Error(err))
			return nil, err
		}
		if student.ClassID == nil || *student.ClassID == "" {
			s.logger.Debug("学生未分班，跳过计算", logger.GradeScope(studentID, subjectID, termID)...)
			return scope, nil
		}
		class, err = repo.Academic.GetClass(ctx, *student.ClassID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("学生所在班级不存在，跳过计算", zap.String("class_id", *student.ClassID))
			return scope, nil
		}
		if err != nil {
			s.logger.Error("查询班级失败", zap.String("class_id", *student.ClassID), zap.Error(err))
			return nil, err
		}
	}

	criteria, err := s.criteria.Resolve(ctx, subjectID, class.YearLevelID, term.SchoolYearID)
	if err != nil {
		return nil, err
	}
	scope.criteria = criteria
	return scope, nil
}

// computeSubscores 只读取权重 > 0 的组成项所需的原始指标
func (s *gradeService) computeSubscores(ctx context.Context, repo *repository.Repository, studentID, subjectID string, scope *termScope) (grading.Weights, grading.Subscores, error) {
	w := grading.Weights{
		Tests:      scope.criteria.TestsWeight,
		Homework:   scope.criteria.HomeworkWeight,
		Attendance: scope.criteria.AttendanceWeight,
	}
	sub := make(grading.Subscores, len(grading.Components))
	termID := scope.term.TermID

	if w.Active(grading.ComponentTests) {
		scores, err := repo.Metric.FindTestScores(ctx, studentID, subjectID, termID)
		if err != nil {
			return w, nil, err
		}
		records := make([]grading.ScoreRecord, 0, len(scores))
		for _, sc := range scores {
			records = append(records, grading.ScoreRecord{Score: sc.Score, MaxScore: sc.MaxScore})
		}
		sub[grading.ComponentTests] = s.scale.TestsSubscore(records)
	}

	if w.Active(grading.ComponentHomework) {
		completed, total, err := repo.Metric.FindHomeworkCompletion(ctx, studentID, subjectID, termID)
		if err != nil {
			return w, nil, err
		}
		sub[grading.ComponentHomework] = s.scale.HomeworkSubscore(completed, total)
	}

	if w.Active(grading.ComponentAttendance) {
		statuses, err := repo.Metric.FindAttendance(ctx, studentID, subjectID, scope.term.StartDate, scope.term.EndDate)
		if err != nil {
			return w, nil, err
		}
		sub[grading.ComponentAttendance] = s.scale.AttendanceSubscore(statuses)
	}

	return w, sub, nil
}

// ────────────────────── Recalculate ──────────────────────

func (s *gradeService) Recalculate(ctx context.Context, req *dto.RecalculateRequest, operatorID string) (*dto.TermGradeResponse, error) {
	fields := logger.GradeScope(req.StudentID, req.SubjectID, req.TermID)

	var saved *model.TermGrade
	err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
		scope, err := s.resolveScope(ctx, tx, req.StudentID, req.SubjectID, req.TermID, req.ClassID)
		if err != nil {
			return err
		}
		if scope.criteria == nil {
			return nil
		}

		w, sub, err := s.computeSubscores(ctx, tx, req.StudentID, req.SubjectID, scope)
		if err != nil {
			s.logger.Error("读取成绩原始指标失败", append(fields, zap.Error(err))...)
			return err
		}
		result := grading.Aggregate(w, sub)

		calculated := s.scale.Round(result.Calculated)
		row := &model.TermGrade{
			StudentID:          req.StudentID,
			SubjectID:          req.SubjectID,
			TermID:             req.TermID,
			CalculatedGrade:    calculated,
			FinalGrade:         calculated,
			TotalWeightEntered: result.TotalWeight,
			ComponentCount:     result.ComponentCount,
			IsComplete:         result.IsComplete,
		}
		row.CreatedBy = operatorPtr(operatorID)
		row.UpdatedBy = operatorPtr(operatorID)

		if err := tx.TermGrade.Upsert(ctx, row, s.cfg.RespectFinalizeLock); err != nil {
			s.logger.Error("写入学期成绩失败", append(fields, zap.Error(err))...)
			return err
		}

		saved, err = tx.TermGrade.Get(ctx, req.StudentID, req.SubjectID, req.TermID)
		if err != nil {
			s.logger.Error("查询学期成绩失败", append(fields, zap.Error(err))...)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if saved == nil {
		s.logger.Debug("无评分标准，跳过学期成绩计算", fields...)
		return nil, nil
	}

	s.logger.Info("学期成绩已重算", append(fields,
		zap.String("calculated_grade", saved.CalculatedGrade.String()),
		zap.String("final_grade", saved.FinalGrade.String()))...)
	return toTermGradeResponse(saved), nil
}

// ────────────────────── Breakdown ──────────────────────

func (s *gradeService) Breakdown(ctx context.Context, req *dto.RecalculateRequest) (*dto.TermGradeBreakdown, error) {
	scope, err := s.resolveScope(ctx, s.repo, req.StudentID, req.SubjectID, req.TermID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if scope.criteria == nil {
		return nil, nil
	}

	w, sub, err := s.computeSubscores(ctx, s.repo, req.StudentID, req.SubjectID, scope)
	if err != nil {
		s.logger.Error("读取成绩原始指标失败",
			append(logger.GradeScope(req.StudentID, req.SubjectID, req.TermID), zap.Error(err))...)
		return nil, err
	}
	result := grading.Aggregate(w, sub)

	out := &dto.TermGradeBreakdown{
		StudentID:       req.StudentID,
		SubjectID:       req.SubjectID,
		TermID:          req.TermID,
		CriteriaID:      scope.criteria.CriteriaID,
		Components:      make([]dto.ComponentBreakdown, 0, len(grading.Components)),
		CalculatedGrade: s.scale.Round(result.Calculated),
		TotalWeight:     result.TotalWeight,
		IsComplete:      result.IsComplete,
	}
	for _, c := range grading.Components {
		out.Components = append(out.Components, dto.ComponentBreakdown{
			Component:    string(c),
			Weight:       w.Of(c),
			Subscore:     s.scale.Round(sub[c]),
			Contribution: s.scale.Round(result.Contributions[c]),
			Skipped:      !w.Active(c),
		})
	}
	return out, nil
}

// ────────────────────── RecalculateYear ──────────────────────

func (s *gradeService) RecalculateYear(ctx context.Context, studentID, subjectID string) (*dto.YearGradeResponse, error) {
	fields := logger.GradeScope(studentID, subjectID, "")

	records, err := s.repo.Metric.ListYearGradeRecords(ctx, studentID, subjectID)
	if err != nil {
		s.logger.Error("查询学年成绩记录失败", append(fields, zap.Error(err))...)
		return nil, err
	}

	// 只统计已发布作业中已评分且有分数的记录，按学期所属学年分组
	byYear := make(map[string][]grading.ScoreRecord)
	latestStart := make(map[string]time.Time)
	for _, r := range records {
		if r.AssignmentStatus != model.AssignmentPublished || r.GradeStatus != model.GradeGraded || !r.Score.Valid {
			continue
		}
		byYear[r.SchoolYearID] = append(byYear[r.SchoolYearID], grading.ScoreRecord{
			Score:    r.Score.Decimal,
			MaxScore: r.MaxScore,
		})
		if r.TermStartDate.After(latestStart[r.SchoolYearID]) {
			latestStart[r.SchoolYearID] = r.TermStartDate
		}
	}
	s.warnStaleYears(ctx, fields, studentID, subjectID, byYear)
	if len(byYear) == 0 {
		return nil, nil
	}

	years := make([]string, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Strings(years)

	var current string
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		for _, y := range years {
			avg, ok := s.scale.SimpleAverage(byYear[y])
			if !ok {
				continue
			}
			row := &model.StudentYearGrade{
				StudentID:         studentID,
				SubjectID:         subjectID,
				SchoolYearID:      y,
				CalculatedAverage: s.scale.Round(avg),
				LastUpdated:       s.now(),
			}
			if err := tx.YearGrade.Upsert(ctx, row); err != nil {
				s.logger.Error("写入学年成绩失败", append(fields, zap.String("school_year_id", y), zap.Error(err))...)
				return err
			}
			if current == "" || latestStart[y].After(latestStart[current]) {
				current = y
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if current == "" {
		return nil, nil
	}

	saved, err := s.repo.YearGrade.Get(ctx, studentID, subjectID, current)
	if err != nil {
		s.logger.Error("查询学年成绩失败", append(fields, zap.Error(err))...)
		return nil, err
	}
	if saved == nil {
		return nil, nil
	}
	return toYearGradeResponse(saved), nil
}

// warnStaleYears 已缓存但不再有合格记录的学年保持原值，只记录告警
func (s *gradeService) warnStaleYears(ctx context.Context, fields []zap.Field, studentID, subjectID string, byYear map[string][]grading.ScoreRecord) {
	cached, err := s.repo.YearGrade.ListSchoolYears(ctx, studentID, subjectID)
	if err != nil {
		s.logger.Warn("查询已缓存学年失败", append(fields, zap.Error(err))...)
		return
	}
	var stale []string
	for _, y := range cached {
		if _, ok := byYear[y]; !ok {
			stale = append(stale, y)
		}
	}
	if len(stale) > 0 {
		s.logger.Warn("学年成绩缓存已无合格记录，保留旧值", append(fields, zap.Strings("school_year_ids", stale))...)
	}
}

// ────────────────────── GetTermGrade / GetYearGrade ──────────────────────

func (s *gradeService) GetTermGrade(ctx context.Context, studentID, subjectID, termID string) (*dto.TermGradeResponse, error) {
	grade, err := s.repo.TermGrade.Get(ctx, studentID, subjectID, termID)
	if err != nil {
		s.logger.Error("查询学期成绩失败", append(logger.GradeScope(studentID, subjectID, termID), zap.Error(err))...)
		return nil, err
	}
	if grade == nil {
		return nil, nil
	}
	return toTermGradeResponse(grade), nil
}

func (s *gradeService) GetYearGrade(ctx context.Context, q *dto.YearGradeQuery) (*dto.YearGradeResponse, error) {
	grade, err := s.repo.YearGrade.Get(ctx, q.StudentID, q.SubjectID, q.SchoolYearID)
	if err != nil {
		s.logger.Error("查询学年成绩失败", zap.String("student_id", q.StudentID), zap.Error(err))
		return nil, err
	}
	if grade == nil {
		return nil, ErrYearGradeNotFound
	}
	return toYearGradeResponse(grade), nil
}

// ────────────────────── Override ──────────────────────

func (s *gradeService) SetOverride(ctx context.Context, scope *dto.TermScopeRequest, value decimal.Decimal, operatorID string) (*dto.TermGradeResponse, error) {
	if value.IsNegative() || value.GreaterThan(s.scale.Max) {
		return nil, ErrOverrideOutOfRange
	}
	value = s.scale.Round(value)
	return s.writeOverride(ctx, scope, decimal.NewNullDecimal(value), operatorID)
}

func (s *gradeService) ClearOverride(ctx context.Context, scope *dto.TermScopeRequest, operatorID string) (*dto.TermGradeResponse, error) {
	return s.writeOverride(ctx, scope, decimal.NullDecimal{}, operatorID)
}

func (s *gradeService) writeOverride(ctx context.Context, scope *dto.TermScopeRequest, override decimal.NullDecimal, operatorID string) (*dto.TermGradeResponse, error) {
	fields := logger.GradeScope(scope.StudentID, scope.SubjectID, scope.TermID)

	grade, err := s.loadTermGrade(ctx, scope)
	if err != nil {
		return nil, err
	}
	if grade.IsFinalized && s.cfg.RespectFinalizeLock {
		return nil, ErrTermGradeFinalized
	}

	final := grading.FinalGrade(grade.CalculatedGrade, override)
	if err := s.repo.TermGrade.UpdateOverride(ctx, grade.TermGradeID, override, final, operatorPtr(operatorID)); err != nil {
		s.logger.Error("更新手动成绩失败", append(fields, zap.Error(err))...)
		return nil, err
	}

	grade.ManualOverride = override
	grade.FinalGrade = final
	grade.UpdatedBy = operatorPtr(operatorID)
	grade.UpdatedAt = s.now()

	s.logger.Info("学期成绩手动覆盖已更新", append(fields,
		zap.Bool("cleared", !override.Valid),
		zap.String("final_grade", final.String()),
		zap.String("operator_id", operatorID))...)
	return toTermGradeResponse(grade), nil
}

// ────────────────────── Finalize ──────────────────────

func (s *gradeService) Finalize(ctx context.Context, scope *dto.TermScopeRequest, operatorID string) (*dto.TermGradeResponse, error) {
	grade, err := s.loadTermGrade(ctx, scope)
	if err != nil {
		return nil, err
	}
	if grade.IsFinalized {
		return nil, ErrTermGradeFinalized
	}

	now := s.now()
	by := operatorPtr(operatorID)
	if err := s.repo.TermGrade.UpdateFinalize(ctx, grade.TermGradeID, true, by, &now); err != nil {
		s.logger.Error("锁定学期成绩失败",
			append(logger.GradeScope(scope.StudentID, scope.SubjectID, scope.TermID), zap.Error(err))...)
		return nil, err
	}

	grade.IsFinalized = true
	grade.FinalizedBy = by
	grade.FinalizedDate = &now
	return toTermGradeResponse(grade), nil
}

func (s *gradeService) Unfinalize(ctx context.Context, scope *dto.TermScopeRequest, operatorID string) (*dto.TermGradeResponse, error) {
	grade, err := s.loadTermGrade(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !grade.IsFinalized {
		return nil, ErrTermGradeNotLocked
	}

	if err := s.repo.TermGrade.UpdateFinalize(ctx, grade.TermGradeID, false, nil, nil); err != nil {
		s.logger.Error("解锁学期成绩失败",
			append(logger.GradeScope(scope.StudentID, scope.SubjectID, scope.TermID), zap.Error(err))...)
		return nil, err
	}

	s.logger.Info("学期成绩已解锁",
		append(logger.GradeScope(scope.StudentID, scope.SubjectID, scope.TermID),
			zap.String("operator_id", operatorID))...)

	grade.IsFinalized = false
	grade.FinalizedBy = nil
	grade.FinalizedDate = nil
	return toTermGradeResponse(grade), nil
}

func (s *gradeService) loadTermGrade(ctx context.Context, scope *dto.TermScopeRequest) (*model.TermGrade, error) {
	grade, err := s.repo.TermGrade.Get(ctx, scope.StudentID, scope.SubjectID, scope.TermID)
	if err != nil {
		s.logger.Error("查询学期成绩失败",
			append(logger.GradeScope(scope.StudentID, scope.SubjectID, scope.TermID), zap.Error(err))...)
		return nil, err
	}
	if grade == nil {
		return nil, ErrTermGradeNotFound
	}
	return grade, nil
}

// ── 辅助函数 ──

// operatorPtr 审计字段为 UUID 列，空操作人写入 NULL
func operatorPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func toTermGradeResponse(g *model.TermGrade) *dto.TermGradeResponse {
	resp := &dto.TermGradeResponse{
		ID:                 g.TermGradeID,
		StudentID:          g.StudentID,
		SubjectID:          g.SubjectID,
		TermID:             g.TermID,
		CalculatedGrade:    g.CalculatedGrade,
		FinalGrade:         g.FinalGrade,
		TotalWeightEntered: g.TotalWeightEntered,
		ComponentCount:     g.ComponentCount,
		IsComplete:         g.IsComplete,
		IsFinalized:        g.IsFinalized,
		FinalizedBy:        g.FinalizedBy,
		UpdatedAt:          g.UpdatedAt.Format(timeLayout),
	}
	if g.ManualOverride.Valid {
		v := g.ManualOverride.Decimal
		resp.ManualOverride = &v
	}
	if g.FinalizedDate != nil {
		resp.FinalizedDate = g.FinalizedDate.Format(timeLayout)
	}
	return resp
}

func toYearGradeResponse(g *model.StudentYearGrade) *dto.YearGradeResponse {
	return &dto.YearGradeResponse{
		ID:                g.YearGradeID,
		StudentID:         g.StudentID,
		SubjectID:         g.SubjectID,
		SchoolYearID:      g.SchoolYearID,
		CalculatedAverage: g.CalculatedAverage,
		LastUpdated:       g.LastUpdated.Format(timeLayout),
	}
}
