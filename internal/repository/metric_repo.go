package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moz-sch/backend/internal/model"
)

// MetricRepository 原始指标只读访问接口（测验得分 / 作业完成 / 出勤 / 学年记录）
type MetricRepository interface {
	// FindTestScores 评估类型为 Test 且状态为 graded、分数非空的得分
	FindTestScores(ctx context.Context, studentID, subjectID, termID string) ([]model.TestScore, error)
	// FindHomeworkCompletion 已发布作业总数，以及该学生被评为 graded 的份数
	FindHomeworkCompletion(ctx context.Context, studentID, subjectID, termID string) (completed int, total int, err error)
	// FindAttendance 学期日期区间 [start, end]（含端点）内的出勤状态
	FindAttendance(ctx context.Context, studentID, subjectID string, start, end time.Time) ([]string, error)
	// ListYearGradeRecords 学生在该科目下的全部作业成绩记录（未过滤状态）
	ListYearGradeRecords(ctx context.Context, studentID, subjectID string) ([]model.YearGradeRecord, error)
	// ListGradedAssignments 学期内已评分的计分类作业（含评估类型名称）
	ListGradedAssignments(ctx context.Context, studentID, subjectID, termID string) ([]model.GradedAssignment, error)
}

type metricRepo struct {
	db *gorm.DB
}

// NewMetricRepo 创建 MetricRepository 实例
func NewMetricRepo(db *gorm.DB) MetricRepository {
	return &metricRepo{db: db}
}

func (r *metricRepo) FindTestScores(ctx context.Context, studentID, subjectID, termID string) ([]model.TestScore, error) {
	var scores []model.TestScore
	err := r.db.WithContext(ctx).
		Table("assignment_grades AS ag").
		Select("ag.score AS score, a.max_score AS max_score").
		Joins("JOIN assignments a ON a.assignment_id = ag.assignment_id").
		Joins("JOIN assessment_types at ON at.assessment_type_id = a.assessment_type_id").
		Where("ag.student_id = ? AND a.subject_id = ? AND a.term_id = ?", studentID, subjectID, termID).
		Where("at.name = ? AND ag.status = ? AND ag.score IS NOT NULL", model.AssessmentTest, model.GradeGraded).
		Scan(&scores).Error
	return scores, err
}

func (r *metricRepo) FindHomeworkCompletion(ctx context.Context, studentID, subjectID, termID string) (int, int, error) {
	var row struct {
		Total     int
		Completed int
	}
	err := r.db.WithContext(ctx).
		Table("assignments AS a").
		Select("COUNT(DISTINCT a.assignment_id) AS total, COUNT(DISTINCT ag.assignment_id) AS completed").
		Joins("JOIN assessment_types at ON at.assessment_type_id = a.assessment_type_id").
		Joins("LEFT JOIN assignment_grades ag ON ag.assignment_id = a.assignment_id AND ag.student_id = ? AND ag.status = ?", studentID, model.GradeGraded).
		Where("a.subject_id = ? AND a.term_id = ?", subjectID, termID).
		Where("at.name = ? AND a.status = ?", model.AssessmentHomework, model.AssignmentPublished).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Completed, row.Total, nil
}

func (r *metricRepo) FindAttendance(ctx context.Context, studentID, subjectID string, start, end time.Time) ([]string, error) {
	var statuses []string
	err := r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("student_id = ? AND subject_id = ?", studentID, subjectID).
		Where("date >= ? AND date <= ?", start, end).
		Pluck("status", &statuses).Error
	return statuses, err
}

func (r *metricRepo) ListYearGradeRecords(ctx context.Context, studentID, subjectID string) ([]model.YearGradeRecord, error) {
	var records []model.YearGradeRecord
	err := r.db.WithContext(ctx).
		Table("assignment_grades AS ag").
		Select(`ag.assignment_grade_id AS assignment_grade_id,
			ag.score AS score,
			ag.status AS grade_status,
			a.max_score AS max_score,
			a.status AS assignment_status,
			t.school_year_id AS school_year_id,
			t.start_date AS term_start_date`).
		Joins("JOIN assignments a ON a.assignment_id = ag.assignment_id").
		Joins("JOIN terms t ON t.term_id = a.term_id").
		Where("ag.student_id = ? AND a.subject_id = ?", studentID, subjectID).
		Scan(&records).Error
	return records, err
}

func (r *metricRepo) ListGradedAssignments(ctx context.Context, studentID, subjectID, termID string) ([]model.GradedAssignment, error) {
	var list []model.GradedAssignment
	err := r.db.WithContext(ctx).
		Table("assignment_grades AS ag").
		Select("a.assignment_id AS assignment_id, at.name AS assessment_type_name, ag.score AS score, a.max_score AS max_score, a.weight AS weight").
		Joins("JOIN assignments a ON a.assignment_id = ag.assignment_id").
		Joins("JOIN assessment_types at ON at.assessment_type_id = a.assessment_type_id").
		Where("ag.student_id = ? AND a.subject_id = ? AND a.term_id = ?", studentID, subjectID, termID).
		Where("ag.status = ? AND ag.score IS NOT NULL AND at.is_scored = ?", model.GradeGraded, true).
		Order("at.name, a.assignment_id").
		Scan(&list).Error
	return list, err
}
