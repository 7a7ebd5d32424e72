package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moz-sch/backend/internal/model"
)

// CriteriaRepository 评分标准数据访问接口
type CriteriaRepository interface {
	// Find 按 (科目, 年级, 学年) 查询；不存在时返回 (nil, nil)
	Find(ctx context.Context, subjectID, yearLevelID, schoolYearID string) (*model.GradingCriteria, error)
	Upsert(ctx context.Context, criteria *model.GradingCriteria) error
	ListBySchoolYear(ctx context.Context, schoolYearID string) ([]model.GradingCriteria, error)
}

type criteriaRepo struct {
	db *gorm.DB
}

// NewCriteriaRepo 创建 CriteriaRepository 实例
func NewCriteriaRepo(db *gorm.DB) CriteriaRepository {
	return &criteriaRepo{db: db}
}

func (r *criteriaRepo) Find(ctx context.Context, subjectID, yearLevelID, schoolYearID string) (*model.GradingCriteria, error) {
	var c model.GradingCriteria
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND year_level_id = ? AND school_year_id = ?", subjectID, yearLevelID, schoolYearID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *criteriaRepo) Upsert(ctx context.Context, criteria *model.GradingCriteria) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subject_id"}, {Name: "year_level_id"}, {Name: "school_year_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"tests_weight":      criteria.TestsWeight,
				"homework_weight":   criteria.HomeworkWeight,
				"attendance_weight": criteria.AttendanceWeight,
				"updated_by":        criteria.UpdatedBy,
				"updated_at":        gorm.Expr("NOW()"),
			}),
		}).
		Create(criteria).Error
}

func (r *criteriaRepo) ListBySchoolYear(ctx context.Context, schoolYearID string) ([]model.GradingCriteria, error) {
	var list []model.GradingCriteria
	err := r.db.WithContext(ctx).
		Where("school_year_id = ?", schoolYearID).
		Order("subject_id, year_level_id").
		Find(&list).Error
	return list, err
}
