package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moz-sch/backend/internal/model"
)

// GradeComponentRepository 成绩组成项数据访问接口
type GradeComponentRepository interface {
	GetByID(ctx context.Context, id string) (*model.GradeComponent, error)
	// GetByKey 按 (student, subject, term, component_name) 查询；不存在时返回 (nil, nil)
	GetByKey(ctx context.Context, studentID, subjectID, termID, name string) (*model.GradeComponent, error)
	List(ctx context.Context, studentID, subjectID, termID string) ([]model.GradeComponent, error)
	// Upsert 手工录入：以 (student, subject, term, component_name) 为键整行覆盖
	Upsert(ctx context.Context, component *model.GradeComponent) error
	// UpsertDerived 自动生成：冲突时只刷新分数与来源作业，不修改教师设置的权重
	UpsertDerived(ctx context.Context, component *model.GradeComponent) error
	Delete(ctx context.Context, id string) error
}

type gradeComponentRepo struct {
	db *gorm.DB
}

// NewGradeComponentRepo 创建 GradeComponentRepository 实例
func NewGradeComponentRepo(db *gorm.DB) GradeComponentRepository {
	return &gradeComponentRepo{db: db}
}

var componentKeyColumns = []clause.Column{
	{Name: "student_id"}, {Name: "subject_id"}, {Name: "term_id"}, {Name: "component_name"},
}

func (r *gradeComponentRepo) GetByID(ctx context.Context, id string) (*model.GradeComponent, error) {
	var c model.GradeComponent
	if err := r.db.WithContext(ctx).Where("component_id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gradeComponentRepo) GetByKey(ctx context.Context, studentID, subjectID, termID, name string) (*model.GradeComponent, error) {
	var c model.GradeComponent
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ? AND term_id = ? AND component_name = ?", studentID, subjectID, termID, name).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gradeComponentRepo) List(ctx context.Context, studentID, subjectID, termID string) ([]model.GradeComponent, error) {
	var list []model.GradeComponent
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ? AND term_id = ?", studentID, subjectID, termID).
		Order("component_name").
		Find(&list).Error
	return list, err
}

func (r *gradeComponentRepo) Upsert(ctx context.Context, component *model.GradeComponent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: componentKeyColumns,
			DoUpdates: clause.AssignmentColumns([]string{
				"component_type", "score", "max_score", "weight", "source_type",
				"assignment_ids", "notes", "updated_by", "updated_at",
			}),
		}).
		Create(component).Error
}

func (r *gradeComponentRepo) UpsertDerived(ctx context.Context, component *model.GradeComponent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: componentKeyColumns,
			DoUpdates: clause.AssignmentColumns([]string{
				"component_type", "score", "max_score", "source_type",
				"assignment_ids", "updated_by", "updated_at",
			}),
		}).
		Create(component).Error
}

func (r *gradeComponentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("component_id = ?", id).
		Delete(&model.GradeComponent{}).Error
}
