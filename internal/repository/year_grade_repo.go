package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moz-sch/backend/internal/model"
)

// YearGradeRepository 学年成绩缓存数据访问接口
type YearGradeRepository interface {
	// Get 不存在时返回 (nil, nil)
	Get(ctx context.Context, studentID, subjectID, schoolYearID string) (*model.StudentYearGrade, error)
	// Upsert 以 (student, subject, school_year) 为键覆盖写入
	Upsert(ctx context.Context, grade *model.StudentYearGrade) error
	// ListSchoolYears 已缓存学年成绩的学年 ID
	ListSchoolYears(ctx context.Context, studentID, subjectID string) ([]string, error)
}

type yearGradeRepo struct {
	db *gorm.DB
}

// NewYearGradeRepo 创建 YearGradeRepository 实例
func NewYearGradeRepo(db *gorm.DB) YearGradeRepository {
	return &yearGradeRepo{db: db}
}

func (r *yearGradeRepo) Get(ctx context.Context, studentID, subjectID, schoolYearID string) (*model.StudentYearGrade, error) {
	var g model.StudentYearGrade
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ? AND school_year_id = ?", studentID, subjectID, schoolYearID).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *yearGradeRepo) Upsert(ctx context.Context, grade *model.StudentYearGrade) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "school_year_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"calculated_average", "last_updated"}),
		}).
		Create(grade).Error
}

func (r *yearGradeRepo) ListSchoolYears(ctx context.Context, studentID, subjectID string) ([]string, error) {
	var years []string
	err := r.db.WithContext(ctx).
		Model(&model.StudentYearGrade{}).
		Where("student_id = ? AND subject_id = ?", studentID, subjectID).
		Order("school_year_id").
		Pluck("school_year_id", &years).Error
	return years, err
}
