package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moz-sch/backend/internal/model"
)

// AssignmentGradeRepository 学生作业成绩读写接口
// 每次写入后由 Service 层触发成绩重算
type AssignmentGradeRepository interface {
	GetByID(ctx context.Context, id string) (*model.AssignmentGrade, error)
	GetAssignment(ctx context.Context, assignmentID string) (*model.Assignment, error)
	// Upsert 以 (assignment_id, student_id) 为键写入
	Upsert(ctx context.Context, grade *model.AssignmentGrade) error
	Delete(ctx context.Context, id string) error
}

type assignmentGradeRepo struct {
	db *gorm.DB
}

// NewAssignmentGradeRepo 创建 AssignmentGradeRepository 实例
func NewAssignmentGradeRepo(db *gorm.DB) AssignmentGradeRepository {
	return &assignmentGradeRepo{db: db}
}

func (r *assignmentGradeRepo) GetByID(ctx context.Context, id string) (*model.AssignmentGrade, error) {
	var g model.AssignmentGrade
	if err := r.db.WithContext(ctx).Where("assignment_grade_id = ?", id).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *assignmentGradeRepo) GetAssignment(ctx context.Context, assignmentID string) (*model.Assignment, error) {
	var a model.Assignment
	err := r.db.WithContext(ctx).
		Preload("AssessmentType").
		Preload("Term").
		Where("assignment_id = ?", assignmentID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentGradeRepo) Upsert(ctx context.Context, grade *model.AssignmentGrade) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":      grade.Score,
				"status":     grade.Status,
				"feedback":   grade.Feedback,
				"graded_by":  grade.GradedBy,
				"graded_at":  grade.GradedAt,
				"updated_by": grade.UpdatedBy,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(grade).Error
}

func (r *assignmentGradeRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("assignment_grade_id = ?", id).
		Delete(&model.AssignmentGrade{}).Error
}
